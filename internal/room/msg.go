package room

import (
	"github.com/DoyleJ11/chess-session-backend/internal/broadcast"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
	"github.com/DoyleJ11/chess-session-backend/internal/types"
)

// Msg is everything a room's inbox accepts.
type Msg interface{ isRoomMsg() }

// Join subscribes Client and admits its identity as player or spectator.
type Join struct {
	Client *broadcast.Client
	Reply  chan error
}

type Move struct {
	Identity string
	Move     string
	Reply    chan error
}

type Resign struct {
	Identity string
	Reply    chan error
}

type Leave struct {
	Identity string
	Reply    chan error
}

type RequestRematch struct {
	Identity string
	Reply    chan error
}

type RespondRematch struct {
	Identity string
	Accept   bool
	Reply    chan error
}

// Disconnect reports that Client's connection is gone. It is ignored when the
// identity has since resubscribed through another client.
type Disconnect struct {
	Client *broadcast.Client
}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

type graceExpired struct {
	identity string
	gen      uint64
}

func (Join) isRoomMsg()           {}
func (Move) isRoomMsg()           {}
func (Resign) isRoomMsg()         {}
func (Leave) isRoomMsg()          {}
func (RequestRematch) isRoomMsg() {}
func (RespondRematch) isRoomMsg() {}
func (Disconnect) isRoomMsg()     {}
func (GetState) isRoomMsg()       {}
func (Shutdown) isRoomMsg()       {}
func (graceExpired) isRoomMsg()   {}

// View is a race-free copy of the room, for tests and read endpoints.
type View struct {
	Session     *session.Session
	Snapshot    *types.SessionView
	Subscribers []string
	Seq         uint64
}

func replyOf(m Msg) chan error {
	switch msg := m.(type) {
	case Join:
		return msg.Reply
	case Move:
		return msg.Reply
	case Resign:
		return msg.Reply
	case Leave:
		return msg.Reply
	case RequestRematch:
		return msg.Reply
	case RespondRematch:
		return msg.Reply
	}
	return nil
}

func reply(ch chan error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}
