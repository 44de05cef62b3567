// Package clock is the time source shared by rooms and the hub. Tickers and
// timers come from the same Clock as Now so tests can drive them with a fake.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type (
	Clock  = clockwork.Clock
	Ticker = clockwork.Ticker
	Timer  = clockwork.Timer
	Fake   = clockwork.FakeClock
)

// Real returns the system clock.
func Real() Clock { return clockwork.NewRealClock() }

// NewFake returns a clock frozen at start. Tickers and timers only fire when
// it is advanced.
func NewFake(start time.Time) *Fake { return clockwork.NewFakeClockAt(start) }
