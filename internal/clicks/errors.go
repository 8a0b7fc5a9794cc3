package clicks

import "errors"

var (
	// ErrLinkNotFound means the short code did not resolve to a live
	// link; nothing is recorded.
	ErrLinkNotFound = errors.New("link not found")

	// ErrNotFound means a requested aggregate or event does not exist.
	ErrNotFound = errors.New("not found")
)
