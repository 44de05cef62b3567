package types

import (
	"time"

	"github.com/DoyleJ11/chess-session-backend/internal/engine"
	"github.com/DoyleJ11/chess-session-backend/internal/errs"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
)

type EventType string

const (
	EvtConnected           EventType = "connected"
	EvtSessionCreated      EventType = "sessionCreated"
	EvtSessionJoined       EventType = "sessionJoined"
	EvtSessionStarted      EventType = "sessionStarted"
	EvtSessionPaused       EventType = "sessionPaused"
	EvtSessionResumed      EventType = "sessionResumed"
	EvtMoveApplied         EventType = "moveApplied"
	EvtSessionEnded        EventType = "sessionEnded"
	EvtSeatVacated         EventType = "seatVacated"
	EvtSpectatorsChanged   EventType = "spectatorsChanged"
	EvtRematchOffered      EventType = "rematchOffered"
	EvtRematchSessionReady EventType = "rematchSessionReady"
	EvtRematchDeclined     EventType = "rematchDeclined"
	EvtSessionClosed       EventType = "sessionClosed"
	EvtError               EventType = "error"
)

// Event is every server-to-client message. Seq orders events within one session.
type Event struct {
	Type         EventType    `json:"type"`
	SessionID    string       `json:"sessionId,omitempty"`
	Seq          uint64       `json:"seq,omitempty"`
	Identity     string       `json:"identity,omitempty"`
	Role         string       `json:"role,omitempty"`
	Session      *SessionView `json:"session,omitempty"`
	Move         *MoveView    `json:"move,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	Winner       string       `json:"winner,omitempty"`
	Spectators   *int         `json:"spectators,omitempty"`
	NewSessionID string       `json:"newSessionId,omitempty"`
	Error        *ErrorView   `json:"error,omitempty"`
}

type ErrorView struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

type SeatView struct {
	Identity  string `json:"identity"`
	Connected bool   `json:"connected"`
}

type ClockView struct {
	WhiteMs int64 `json:"whiteMs"`
	BlackMs int64 `json:"blackMs"`
	Running bool  `json:"running"`
}

type ResultView struct {
	Reason string `json:"reason"`
	Winner string `json:"winner,omitempty"`
}

type SessionView struct {
	ID             string              `json:"id"`
	Position       string              `json:"position"`
	Turn           string              `json:"turn"`
	Status         string              `json:"status"`
	White          *SeatView           `json:"white,omitempty"`
	Black          *SeatView           `json:"black,omitempty"`
	Spectators     int                 `json:"spectators"`
	MoveHistory    []string            `json:"moveHistory"`
	Captures       map[string][]string `json:"captures"`
	Clock          ClockView           `json:"clock"`
	CreatedAt      time.Time           `json:"createdAt"`
	LastActivityAt time.Time           `json:"lastActivityAt"`
	Result         *ResultView         `json:"result,omitempty"`
	Successor      string              `json:"successor,omitempty"`
}

// MoveView is the moveApplied payload.
type MoveView struct {
	By          string              `json:"by"`
	SAN         string              `json:"san"`
	Position    string              `json:"position"`
	Turn        string              `json:"turn"`
	MoveHistory []string            `json:"moveHistory"`
	Captures    map[string][]string `json:"captures"`
	Clock       ClockView           `json:"clock"`
	Terminal    *ResultView         `json:"terminalStatus,omitempty"`
}

func seatView(s session.Seat) *SeatView {
	if s.Empty() {
		return nil
	}
	return &SeatView{Identity: s.Identity, Connected: s.Connected}
}

func resultView(r *session.Result) *ResultView {
	if r == nil {
		return nil
	}
	return &ResultView{Reason: string(r.Reason), Winner: string(r.Winner)}
}

func clockView(s *session.Session, now time.Time) ClockView {
	white, black := s.LiveClock(now)
	return ClockView{WhiteMs: white.Milliseconds(), BlackMs: black.Milliseconds(), Running: s.Clock.Running}
}

func capturesView(s *session.Session) map[string][]string {
	return map[string][]string{
		string(engine.White): append([]string{}, s.Captures[engine.White]...),
		string(engine.Black): append([]string{}, s.Captures[engine.Black]...),
	}
}

// ViewOf snapshots s as of now. The view shares nothing with s.
func ViewOf(s *session.Session, now time.Time) *SessionView {
	return &SessionView{
		ID:             s.ID,
		Position:       s.Position,
		Turn:           string(s.Turn),
		Status:         string(s.Status),
		White:          seatView(s.White),
		Black:          seatView(s.Black),
		Spectators:     len(s.Spectators),
		MoveHistory:    append([]string{}, s.MoveHistory...),
		Captures:       capturesView(s),
		Clock:          clockView(s, now),
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		Result:         resultView(s.Result),
		Successor:      s.Successor,
	}
}

func MoveViewOf(s *session.Session, out session.MoveOutcome, now time.Time) *MoveView {
	return &MoveView{
		By:          string(out.Mover),
		SAN:         out.SAN,
		Position:    s.Position,
		Turn:        string(s.Turn),
		MoveHistory: append([]string{}, s.MoveHistory...),
		Captures:    capturesView(s),
		Clock:       clockView(s, now),
		Terminal:    resultView(s.Result),
	}
}

func ErrorEvent(sessionID string, err error) Event {
	return Event{
		Type:      EvtError,
		SessionID: sessionID,
		Error:     &ErrorView{Code: errs.CodeOf(err), Message: errs.Message(err)},
	}
}

func Ended(s *session.Session) Event {
	ev := Event{Type: EvtSessionEnded, SessionID: s.ID}
	if s.Result != nil {
		ev.Reason = string(s.Result.Reason)
		ev.Winner = string(s.Result.Winner)
	}
	return ev
}
