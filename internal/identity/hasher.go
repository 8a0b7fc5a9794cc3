package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// FallbackIP substitutes for a missing client IP so a click is never
// rejected for lack of one.
const FallbackIP = "127.0.0.1"

// DefaultSessionWindow is how long a session identifier stays stable
// for the same visitor.
const DefaultSessionWindow = 30 * time.Minute

// Hasher derives privacy-preserving visitor identifiers from raw
// request signals. All outputs are one-way and deterministic: the same
// inputs within the same session window always hash to the same values,
// and raw IPs are never retained.
type Hasher struct {
	salt          []byte
	sessionWindow time.Duration
}

// NewHasher creates a Hasher with the given secret salt. A zero
// sessionWindow falls back to DefaultSessionWindow.
func NewHasher(salt string, sessionWindow time.Duration) *Hasher {
	if sessionWindow <= 0 {
		sessionWindow = DefaultSessionWindow
	}

	return &Hasher{
		salt:          []byte(salt),
		sessionWindow: sessionWindow,
	}
}

// HashIP returns a stable one-way hash of the client IP, used to count
// distinct visitors without storing the address itself.
func (h *Hasher) HashIP(ip string) string {
	return h.sum(normalizeIP(ip))
}

// Fingerprint combines IP and user-agent into a device fingerprint for
// high-confidence reload detection.
func (h *Hasher) Fingerprint(ip, userAgent string) string {
	return h.sum(normalizeIP(ip) + "|" + userAgent)
}

// SessionID returns a session identifier stable for the duration of the
// session window and rotating once it elapses.
func (h *Hasher) SessionID(ip, userAgent string, at time.Time) string {
	bucket := at.Unix() / int64(h.sessionWindow.Seconds())

	return h.sum(normalizeIP(ip) + "|" + userAgent + "|" + strconv.FormatInt(bucket, 10))
}

func (h *Hasher) sum(input string) string {
	digest := sha256.New()
	digest.Write(h.salt)
	digest.Write([]byte(input))

	return hex.EncodeToString(digest.Sum(nil))
}

func normalizeIP(ip string) string {
	if ip == "" {
		return FallbackIP
	}

	return ip
}
