package hub

import (
	"time"

	"github.com/DoyleJ11/chess-session-backend/internal/room"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
)

// TTLs are the three independent expiry thresholds of the GC sweep.
type TTLs struct {
	Completed time.Duration // idle time after completion
	Inactive  time.Duration // idle time in any status
	Max       time.Duration // age in any status
}

// Expired reports whether a room with meta m should be removed at now, and why.
// The first matching rule wins.
func (t TTLs) Expired(m room.Meta, now time.Time) (string, bool) {
	idle := now.Sub(m.LastActivityAt)
	switch {
	case m.Occupants == 0:
		return "empty", true
	case m.Status == session.StatusCompleted && idle > t.Completed:
		return "completed", true
	case idle > t.Inactive:
		return "inactive", true
	case now.Sub(m.CreatedAt) > t.Max:
		return "max-age", true
	}
	return "", false
}
