package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/DoyleJ11/chess-session-backend/internal/engine"
)

// Policy decides what a seated identity's disconnect does to its game.
type Policy string

const (
	// GracePeriod pauses the game and gives the identity time to come back.
	GracePeriod Policy = "grace"
	// StrictForfeit ends an in-progress game at once, opponent wins.
	StrictForfeit Policy = "strict"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case GracePeriod, StrictForfeit:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown disconnect policy %q", s)
}

type JoinOutcome struct {
	Role Role
	// Rejoined is set when identity already held a seat or slot.
	Rejoined bool
	// Started is set when this join filled the second seat and the game began.
	Started bool
	// Resumed is set when this join ended a grace-period pause.
	Resumed bool
}

// Join admits identity. A held seat is reclaimed, a free seat is taken, and
// otherwise the identity becomes a spectator if there is room.
func (s *Session) Join(identity string, maxSpectators int, now time.Time) (JoinOutcome, error) {
	if side, ok := s.ColorOf(identity); ok {
		s.Seat(side).Connected = true
		out := JoinOutcome{Role: roleFor(side), Rejoined: true}
		if s.Clock.Started {
			out.Resumed = s.maybeStart(now)
		} else {
			out.Started = s.maybeStart(now)
		}
		s.touch(now)
		return out, nil
	}

	if slices.Contains(s.Spectators, identity) {
		return JoinOutcome{Role: RoleSpectator, Rejoined: true}, nil
	}

	if s.Status != StatusCompleted {
		for _, side := range []engine.Color{engine.White, engine.Black} {
			seat := s.Seat(side)
			if seat.Empty() {
				*seat = Seat{Identity: identity, Connected: true}
				started := s.maybeStart(now)
				s.touch(now)
				return JoinOutcome{Role: roleFor(side), Started: started}, nil
			}
		}
	}

	if len(s.Spectators) >= maxSpectators {
		return JoinOutcome{}, ErrSpectatorsFull
	}
	s.Spectators = append(s.Spectators, identity)
	s.touch(now)
	return JoinOutcome{Role: RoleSpectator}, nil
}

// maybeStart activates a waiting session once both seats are held by
// connected identities. The clock starts on first activation and resumes after.
func (s *Session) maybeStart(now time.Time) bool {
	if s.Status != StatusWaiting {
		return false
	}
	if s.White.Empty() || s.Black.Empty() || !s.White.Connected || !s.Black.Connected {
		return false
	}
	s.Status = StatusActive
	if s.Clock.Started {
		s.Clock.Resume(now)
	} else {
		s.Clock.Start(now)
	}
	return true
}

type DisconnectOutcome struct {
	Role   Role
	Side   engine.Color
	Paused bool // game paused, reconnection window open
	Held   bool // seat kept for the identity
	Result *Result
	// Vacated is set when the seat was released because there was no game to hold it for.
	Vacated bool
}

// Disconnect applies policy to identity's seat, or drops its spectator slot.
func (s *Session) Disconnect(identity string, policy Policy, now time.Time) DisconnectOutcome {
	side, seated := s.ColorOf(identity)
	if !seated {
		if s.RemoveSpectator(identity) {
			if s.Status != StatusCompleted {
				s.touch(now)
			}
			return DisconnectOutcome{Role: RoleSpectator}
		}
		return DisconnectOutcome{}
	}

	out := DisconnectOutcome{Role: roleFor(side), Side: side}
	seat := s.Seat(side)
	seat.Connected = false

	// A finished game only ages out on CompletedTTL; leaving it must not
	// extend that window.
	if s.Status == StatusCompleted {
		out.Held = true
		return out
	}
	s.touch(now)

	switch {
	case policy == StrictForfeit && s.InProgress():
		r := Result{Reason: ReasonDisconnect, Winner: side.Opponent()}
		s.complete(r, now)
		out.Result = &r
		out.Held = true
	case policy == StrictForfeit:
		*seat = Seat{}
		out.Vacated = true
	default:
		if s.Status == StatusActive {
			s.Clock.Pause(s.Turn, now)
			s.Status = StatusWaiting
			out.Paused = true
		}
		out.Held = true
	}
	return out
}

// ExpireGrace ends a reconnection window that ran out. A game in progress is
// lost by abandonment; otherwise the seat is released. It is a no-op when the
// identity came back or the session is already over.
func (s *Session) ExpireGrace(identity string, now time.Time) DisconnectOutcome {
	side, seated := s.ColorOf(identity)
	if !seated || s.Seat(side).Connected || s.Status == StatusCompleted {
		return DisconnectOutcome{}
	}

	out := DisconnectOutcome{Role: roleFor(side), Side: side}
	if s.InProgress() && !s.Seat(side.Opponent()).Empty() {
		r := Result{Reason: ReasonAbandonment, Winner: side.Opponent()}
		s.complete(r, now)
		out.Result = &r
		out.Held = true
		return out
	}

	*s.Seat(side) = Seat{}
	s.touch(now)
	out.Vacated = true
	return out
}

type LeaveOutcome struct {
	Role   Role
	Result *Result
}

// Leave releases identity's seat or spectator slot. Leaving a game in progress
// forfeits it.
func (s *Session) Leave(identity string, now time.Time) (LeaveOutcome, error) {
	side, seated := s.ColorOf(identity)
	if !seated {
		if s.RemoveSpectator(identity) {
			s.touch(now)
			return LeaveOutcome{Role: RoleSpectator}, nil
		}
		return LeaveOutcome{}, ErrNotInSession
	}

	out := LeaveOutcome{Role: roleFor(side)}
	if s.InProgress() && !s.Seat(side.Opponent()).Empty() {
		r := Result{Reason: ReasonAbandonment, Winner: side.Opponent()}
		s.complete(r, now)
		out.Result = &r
	}
	*s.Seat(side) = Seat{}
	s.Offer = ""
	s.touch(now)
	return out, nil
}

func (s *Session) RemoveSpectator(identity string) bool {
	i := slices.Index(s.Spectators, identity)
	if i < 0 {
		return false
	}
	s.Spectators = slices.Delete(s.Spectators, i, i+1)
	return true
}
