package session

import (
	"time"

	"github.com/DoyleJ11/chess-session-backend/internal/engine"
)

// OfferRematch records identity's rematch offer and returns the side that
// should be asked.
func (s *Session) OfferRematch(identity string, now time.Time) (engine.Color, error) {
	side, ok := s.ColorOf(identity)
	if !ok {
		return "", ErrNotSeated
	}
	if err := s.rematchable(side); err != nil {
		return "", err
	}
	s.Offer = side
	s.touch(now)
	return side.Opponent(), nil
}

// AnswerRematch settles a pending offer. It returns the offering side.
// Declining clears the offer; accepting leaves it for Supersede.
func (s *Session) AnswerRematch(identity string, accept bool, now time.Time) (engine.Color, error) {
	side, ok := s.ColorOf(identity)
	if !ok {
		return "", ErrNotSeated
	}
	if s.Offer == "" {
		return "", ErrNoOffer
	}
	if s.Offer == side {
		return "", ErrOwnOffer
	}
	if err := s.rematchable(side); err != nil {
		return "", err
	}
	offerer := s.Offer
	if accept && !s.Seat(offerer).Connected {
		return "", ErrOpponentAway
	}
	if !accept {
		s.Offer = ""
	}
	s.touch(now)
	return offerer, nil
}

func (s *Session) rematchable(side engine.Color) error {
	switch {
	case s.Status != StatusCompleted:
		return ErrRematchNotOver
	case s.Successor != "":
		return ErrRematchTaken
	case s.Seat(side.Opponent()).Empty():
		return ErrNoOpponent
	}
	return nil
}

// Rematch builds the successor session with colors swapped. Both identities
// are present, so it starts active.
func (s *Session) Rematch(id, position string, allotment time.Duration, now time.Time) *Session {
	next := New(id, s.Black.Identity, position, allotment, now)
	next.White.Connected = s.Black.Connected
	next.Black = s.White
	next.maybeStart(now)
	return next
}

// Supersede marks the session as replaced by successor.
func (s *Session) Supersede(successor string, now time.Time) {
	s.Successor = successor
	s.Offer = ""
	s.Status = StatusCompleted
	s.touch(now)
}
