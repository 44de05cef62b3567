package session

import (
	"errors"
	"time"

	"github.com/DoyleJ11/chess-session-backend/internal/engine"
	"github.com/DoyleJ11/chess-session-backend/internal/errs"
)

// MoveOutcome reports what an accepted move did.
type MoveOutcome struct {
	Mover    engine.Color
	SAN      string
	Captured []string
	// TimedOut is set when the mover's flag had already fallen. The move is
	// discarded and the session completed by timeout instead.
	TimedOut bool
}

// ApplyMove plays move for identity. It validates everything before mutating,
// so a returned error leaves the session untouched.
func (s *Session) ApplyMove(identity, move string, rules engine.Rules, now time.Time) (MoveOutcome, error) {
	switch s.Status {
	case StatusCompleted:
		return MoveOutcome{}, ErrSessionOver
	case StatusWaiting:
		return MoveOutcome{}, ErrNotActive
	}

	mover, ok := s.ColorOf(identity)
	if !ok {
		return MoveOutcome{}, ErrNotSeated
	}
	if mover != s.Turn {
		return MoveOutcome{}, ErrNotYourTurn
	}

	applied, err := rules.Apply(s.Position, move)
	if err != nil {
		if errors.Is(err, engine.ErrIllegalMove) || errors.Is(err, engine.ErrEmptyMove) {
			return MoveOutcome{}, errs.Wrap(errs.InvalidOperation, "illegal move", err)
		}
		return MoveOutcome{}, errs.Wrap(errs.InternalFault, "rules engine failure", err)
	}

	before, err := rules.Material(s.Position)
	if err != nil {
		return MoveOutcome{}, errs.Wrap(errs.InternalFault, "material before move", err)
	}
	after, err := rules.Material(applied.Position)
	if err != nil {
		return MoveOutcome{}, errs.Wrap(errs.InternalFault, "material after move", err)
	}

	if s.Clock.Charge(mover, now) <= 0 {
		s.complete(Result{Reason: ReasonTimeout, Winner: mover.Opponent()}, now)
		return MoveOutcome{Mover: mover, TimedOut: true}, nil
	}

	// Only the opponent's material can shrink on a move, so the per-move diff
	// stays exact through promotions.
	captured := engine.Lost(before[mover.Opponent()], after[mover.Opponent()])

	s.Position = applied.Position
	s.MoveHistory = append(s.MoveHistory, applied.SAN)
	s.Turn = engine.TurnForPly(len(s.MoveHistory))
	key := engine.PositionKey(applied.Position)
	s.PositionHistory = append(s.PositionHistory, key)
	s.Captures[mover] = append(s.Captures[mover], captured...)
	s.touch(now)

	if r, over := terminalResult(applied.Outcome); over {
		s.complete(r, now)
	} else if s.repetitions(key) >= 3 {
		s.complete(Result{Reason: ReasonThreefold}, now)
	}

	return MoveOutcome{Mover: mover, SAN: applied.SAN, Captured: captured}, nil
}

func (s *Session) repetitions(key string) int {
	n := 0
	for _, k := range s.PositionHistory {
		if k == key {
			n++
		}
	}
	return n
}

func terminalResult(o engine.Outcome) (Result, bool) {
	switch o.Terminal {
	case engine.Checkmate:
		return Result{Reason: ReasonCheckmate, Winner: o.Winner}, true
	case engine.Stalemate:
		return Result{Reason: ReasonStalemate}, true
	case engine.InsufficientMaterial:
		return Result{Reason: ReasonInsufficientMaterial}, true
	case engine.OtherDraw:
		return Result{Reason: ReasonDraw}, true
	}
	return Result{}, false
}

// Resign completes an in-progress game with the opponent as winner.
func (s *Session) Resign(identity string, now time.Time) (Result, error) {
	side, ok := s.ColorOf(identity)
	if !ok {
		return Result{}, ErrNotSeated
	}
	if s.Status == StatusCompleted {
		return Result{}, ErrSessionOver
	}
	if !s.InProgress() {
		return Result{}, ErrNotStarted
	}
	r := Result{Reason: ReasonResignation, Winner: side.Opponent()}
	s.complete(r, now)
	return r, nil
}
