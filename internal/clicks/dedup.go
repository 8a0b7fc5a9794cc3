package clicks

import "time"

// Windows are the dedup time windows layered over one history query.
type Windows struct {
	// Reload is the cooldown within which a repeat click from the same
	// visitor+link counts as a page reload and is rejected outright.
	Reload time.Duration

	// Session is the window after which a returning visitor starts a
	// new session.
	Session time.Duration
}

// DefaultWindows returns the production dedup windows.
func DefaultWindows() Windows {
	return Windows{
		Reload:  60 * time.Second,
		Session: 30 * time.Minute,
	}
}

// Decision is the dedup engine's verdict on one incoming click. Reason
// is for observability only; nothing branches on it.
type Decision struct {
	ShouldRecord    bool   `json:"shouldRecord"`
	IsUniqueVisitor bool   `json:"isUniqueVisitor"`
	IsNewSession    bool   `json:"isNewSession"`
	IsUniqueToday   bool   `json:"isUniqueToday"`
	Reason          string `json:"reason"`
}

// Decide resolves one click against the visitor's prior history.
//
// The reload cooldown is an absolute veto evaluated before anything
// else; session and daily uniqueness are derived independently from the
// same history afterwards. A burst of genuinely distinct rapid clicks
// is indistinguishable from a reload and deliberately counts as one.
func Decide(history VisitorHistory, now time.Time, loc *time.Location, w Windows) Decision {
	if history.Total == 0 {
		return Decision{
			ShouldRecord:    true,
			IsUniqueVisitor: true,
			IsNewSession:    true,
			IsUniqueToday:   true,
			Reason:          "first click for visitor",
		}
	}

	elapsed := now.Sub(history.LastSeen)
	if elapsed < w.Reload {
		return Decision{
			ShouldRecord: false,
			Reason:       "reload within cooldown",
		}
	}

	return Decision{
		ShouldRecord:  true,
		IsNewSession:  elapsed >= w.Session,
		IsUniqueToday: history.LastSeen.Before(StartOfDay(now, loc)),
		Reason:        "returning visitor",
	}
}
