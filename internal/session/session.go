// Package session holds the game aggregate and the pure operations that
// mutate it. Nothing here blocks or reads the wall clock; callers pass now.
// A Session is not safe for concurrent use: the owning room serializes access.
package session

import (
	"slices"
	"time"

	"github.com/DoyleJ11/chess-session-backend/internal/engine"
	"github.com/DoyleJ11/chess-session-backend/internal/errs"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Role string

const (
	RoleNone      Role = ""
	RoleWhite     Role = "white"
	RoleBlack     Role = "black"
	RoleSpectator Role = "spectator"
)

func roleFor(c engine.Color) Role {
	if c == engine.White {
		return RoleWhite
	}
	return RoleBlack
}

type Reason string

const (
	ReasonCheckmate            Reason = "checkmate"
	ReasonStalemate            Reason = "stalemate"
	ReasonInsufficientMaterial Reason = "insufficient-material"
	ReasonThreefold            Reason = "threefold-draw"
	ReasonDraw                 Reason = "draw"
	ReasonResignation          Reason = "resignation"
	ReasonTimeout              Reason = "timeout"
	ReasonDisconnect           Reason = "disconnect"
	ReasonAbandonment          Reason = "abandonment"
)

// Result is the terminal cause. Winner is empty for draws.
type Result struct {
	Reason Reason
	Winner engine.Color
}

type Seat struct {
	Identity  string
	Connected bool
}

func (s Seat) Empty() bool { return s.Identity == "" }

var (
	ErrNotSeated      = errs.New(errs.Forbidden, "you are not seated in this session")
	ErrNotYourTurn    = errs.New(errs.Forbidden, "not your turn")
	ErrNotActive      = errs.New(errs.InvalidOperation, "session is not active")
	ErrSessionOver    = errs.New(errs.InvalidOperation, "session is already completed")
	ErrSpectatorsFull = errs.New(errs.CapacityExceeded, "spectator capacity exceeded")
	ErrNotInSession   = errs.New(errs.Forbidden, "you are not part of this session")
	ErrNotStarted     = errs.New(errs.InvalidOperation, "game has not started")
	ErrRematchNotOver = errs.New(errs.InvalidOperation, "rematch requires a completed session")
	ErrRematchTaken   = errs.New(errs.InvalidOperation, "rematch already started")
	ErrNoOpponent     = errs.New(errs.InvalidOperation, "no opponent to rematch")
	ErrNoOffer        = errs.New(errs.InvalidOperation, "no pending rematch offer")
	ErrOwnOffer       = errs.New(errs.Forbidden, "cannot answer your own rematch offer")
	ErrOpponentAway   = errs.New(errs.InvalidOperation, "opponent is not connected")
)

type Session struct {
	ID              string
	Position        string
	Turn            engine.Color
	Status          Status
	White           Seat
	Black           Seat
	Spectators      []string
	MoveHistory     []string
	Captures        map[engine.Color][]string
	PositionHistory []string
	Clock           Clock
	CreatedAt       time.Time
	LastActivityAt  time.Time
	Result          *Result
	Offer           engine.Color // side with a pending rematch offer
	Successor       string       // id of the rematch session, once spawned
}

// New seats owner as white in a waiting session at position.
func New(id, owner, position string, allotment time.Duration, now time.Time) *Session {
	return &Session{
		ID:              id,
		Position:        position,
		Turn:            engine.White,
		Status:          StatusWaiting,
		White:           Seat{Identity: owner, Connected: true},
		Captures:        map[engine.Color][]string{engine.White: {}, engine.Black: {}},
		PositionHistory: []string{engine.PositionKey(position)},
		Clock:           NewClock(allotment),
		CreatedAt:       now,
		LastActivityAt:  now,
	}
}

func (s *Session) Clone() *Session {
	c := *s
	c.Spectators = slices.Clone(s.Spectators)
	c.MoveHistory = slices.Clone(s.MoveHistory)
	c.PositionHistory = slices.Clone(s.PositionHistory)
	c.Captures = make(map[engine.Color][]string, len(s.Captures))
	for side, pieces := range s.Captures {
		c.Captures[side] = slices.Clone(pieces)
	}
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return &c
}

func (s *Session) Seat(c engine.Color) *Seat {
	if c == engine.White {
		return &s.White
	}
	return &s.Black
}

// ColorOf reports which seat identity holds.
func (s *Session) ColorOf(identity string) (engine.Color, bool) {
	switch {
	case identity == "":
		return "", false
	case s.White.Identity == identity:
		return engine.White, true
	case s.Black.Identity == identity:
		return engine.Black, true
	}
	return "", false
}

func (s *Session) RoleOf(identity string) Role {
	if c, ok := s.ColorOf(identity); ok {
		return roleFor(c)
	}
	if slices.Contains(s.Spectators, identity) {
		return RoleSpectator
	}
	return RoleNone
}

// Occupants counts held seats and spectators.
func (s *Session) Occupants() int {
	n := len(s.Spectators)
	if !s.White.Empty() {
		n++
	}
	if !s.Black.Empty() {
		n++
	}
	return n
}

// InProgress is true once the clock has started and until the session completes.
// A grace-period pause keeps a game in progress.
func (s *Session) InProgress() bool {
	return s.Status == StatusActive || (s.Status == StatusWaiting && s.Clock.Started)
}

func (s *Session) touch(now time.Time) {
	if now.After(s.LastActivityAt) {
		s.LastActivityAt = now
	}
}

func (s *Session) complete(r Result, now time.Time) {
	s.Clock.Stop(s.Turn, now)
	s.Status = StatusCompleted
	s.Result = &r
	s.Offer = ""
	s.touch(now)
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) { s.touch(now) }
