package types

import (
	"encoding/json"
	"strings"

	"github.com/DoyleJ11/chess-session-backend/internal/errs"
)

// Command is a decoded client message. The set is closed: every
// implementation lives in this file and dispatch switches over all of them.
type Command interface {
	isCommand()
	// Session is the target session id, empty for CreateSession.
	Session() string
}

type CreateSession struct{}

type JoinSession struct{ SessionID string }

type SubmitMove struct {
	SessionID string
	Move      string
}

type Resign struct{ SessionID string }

type LeaveSession struct{ SessionID string }

type RequestRematch struct{ SessionID string }

type RespondRematch struct {
	SessionID string
	Accept    bool
}

func (CreateSession) isCommand()  {}
func (JoinSession) isCommand()    {}
func (SubmitMove) isCommand()     {}
func (Resign) isCommand()         {}
func (LeaveSession) isCommand()   {}
func (RequestRematch) isCommand() {}
func (RespondRematch) isCommand() {}

func (CreateSession) Session() string    { return "" }
func (c JoinSession) Session() string    { return c.SessionID }
func (c SubmitMove) Session() string     { return c.SessionID }
func (c Resign) Session() string         { return c.SessionID }
func (c LeaveSession) Session() string   { return c.SessionID }
func (c RequestRematch) Session() string { return c.SessionID }
func (c RespondRematch) Session() string { return c.SessionID }

// ClientMessage is the wire envelope of a Command.
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Move      string `json:"move,omitempty"`
	Accept    *bool  `json:"accept,omitempty"`
}

var (
	ErrBadJSON        = errs.New(errs.InvalidOperation, "bad json")
	ErrUnknownType    = errs.New(errs.InvalidOperation, "unknown message type")
	ErrMissingSession = errs.New(errs.InvalidOperation, "sessionId is required")
	ErrMissingMove    = errs.New(errs.InvalidOperation, "move is required")
	ErrMissingAccept  = errs.New(errs.InvalidOperation, "accept is required")
)

func Decode(data []byte) (Command, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errs.Wrap(errs.InvalidOperation, ErrBadJSON.Message, err)
	}
	return m.Command()
}

// Command validates the envelope and returns the matching variant.
func (m ClientMessage) Command() (Command, error) {
	id := strings.ToUpper(strings.TrimSpace(m.SessionID))
	if m.Type != "createSession" && id == "" {
		if _, known := knownTypes[m.Type]; known {
			return nil, ErrMissingSession
		}
		return nil, ErrUnknownType
	}

	switch m.Type {
	case "createSession":
		return CreateSession{}, nil
	case "joinSession":
		return JoinSession{SessionID: id}, nil
	case "submitMove":
		if strings.TrimSpace(m.Move) == "" {
			return nil, ErrMissingMove
		}
		return SubmitMove{SessionID: id, Move: m.Move}, nil
	case "resign":
		return Resign{SessionID: id}, nil
	case "leaveSession":
		return LeaveSession{SessionID: id}, nil
	case "requestRematch":
		return RequestRematch{SessionID: id}, nil
	case "respondRematch":
		if m.Accept == nil {
			return nil, ErrMissingAccept
		}
		return RespondRematch{SessionID: id, Accept: *m.Accept}, nil
	default:
		return nil, ErrUnknownType
	}
}

var knownTypes = map[string]struct{}{
	"createSession":  {},
	"joinSession":    {},
	"submitMove":     {},
	"resign":         {},
	"leaveSession":   {},
	"requestRematch": {},
	"respondRematch": {},
}
