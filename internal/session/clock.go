package session

import (
	"time"

	"github.com/DoyleJ11/chess-session-backend/internal/engine"
)

// Clock is a dual countdown. It charges the side to move for the time
// elapsed since LastTick while Running.
type Clock struct {
	White    time.Duration
	Black    time.Duration
	LastTick time.Time
	Started  bool
	Running  bool
}

func NewClock(allotment time.Duration) Clock {
	return Clock{White: allotment, Black: allotment}
}

func (c *Clock) remaining(side engine.Color) *time.Duration {
	if side == engine.Black {
		return &c.Black
	}
	return &c.White
}

func (c Clock) Remaining(side engine.Color) time.Duration {
	return *c.remaining(side)
}

func (c *Clock) Start(now time.Time) {
	c.Started = true
	c.Running = true
	c.LastTick = now
}

// Resume restarts a paused clock. A clock that never started stays inert.
func (c *Clock) Resume(now time.Time) {
	if !c.Started {
		return
	}
	c.Running = true
	c.LastTick = now
}

// Charge debits side for the elapsed time and returns what it has left.
func (c *Clock) Charge(side engine.Color, now time.Time) time.Duration {
	left := c.remaining(side)
	if !c.Running {
		return *left
	}
	if elapsed := now.Sub(c.LastTick); elapsed > 0 {
		*left -= elapsed
		c.LastTick = now
	}
	if *left < 0 {
		*left = 0
	}
	return *left
}

func (c *Clock) Pause(side engine.Color, now time.Time) {
	c.Charge(side, now)
	c.Running = false
}

func (c *Clock) Stop(side engine.Color, now time.Time) { c.Pause(side, now) }

// Live returns both sides' remaining time as of now without mutating the clock.
func (c Clock) Live(side engine.Color, now time.Time) (white, black time.Duration) {
	c.Charge(side, now)
	return c.White, c.Black
}

// Tick charges the side to move and completes the session by timeout when that
// side has run out. It reports whether this call ended the session.
func (s *Session) Tick(now time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	if s.Clock.Charge(s.Turn, now) > 0 {
		return false
	}
	s.complete(Result{Reason: ReasonTimeout, Winner: s.Turn.Opponent()}, now)
	return true
}

// LiveClock is the clock as a client should see it at now.
func (s *Session) LiveClock(now time.Time) (white, black time.Duration) {
	return s.Clock.Live(s.Turn, now)
}
