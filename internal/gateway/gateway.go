// Package gateway binds connections to identities and routes decoded
// commands to the owning session actor.
package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/chess-session-backend/internal/broadcast"
	"github.com/DoyleJ11/chess-session-backend/internal/errs"
	"github.com/DoyleJ11/chess-session-backend/internal/ids"
	"github.com/DoyleJ11/chess-session-backend/internal/room"
	"github.com/DoyleJ11/chess-session-backend/internal/types"
)

// Registry is the part of the hub the gateway needs.
type Registry interface {
	Create(ctx context.Context, c *broadcast.Client) (*room.Room, error)
	Get(ctx context.Context, id string) (*room.Room, error)
	Rooms(ctx context.Context) ([]*room.Room, error)
}

type Gateway struct {
	reg        Registry
	log        *zap.Logger
	outboxSize int
}

func New(reg Registry, log *zap.Logger, outboxSize int) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{reg: reg, log: log.Named("gateway"), outboxSize: outboxSize}
}

// OnConnect creates the outbox for a new connection. An empty identity gets a
// fresh one; reusing an identity reclaims its seats on join.
func (g *Gateway) OnConnect(identity string) *broadcast.Client {
	if identity == "" {
		identity = ids.NewIdentity()
	}
	c := broadcast.NewClient(identity, g.outboxSize)
	c.Deliver(types.Event{Type: types.EvtConnected, Identity: identity})
	g.log.Debug("client connected", zap.String("identity", identity))
	return c
}

// Dispatch decodes raw and handles it. Any failure is reported to c alone.
func (g *Gateway) Dispatch(ctx context.Context, c *broadcast.Client, raw []byte) {
	cmd, err := types.Decode(raw)
	if err != nil {
		c.Deliver(types.ErrorEvent("", err))
		return
	}
	if err := g.Handle(ctx, c, cmd); err != nil {
		if errs.CodeOf(err) == errs.InternalFault {
			g.log.Error("command failed", zap.String("identity", c.ID), zap.Error(err))
		}
		c.Deliver(types.ErrorEvent(cmd.Session(), err))
	}
}

// Handle runs one command for c. A panic is returned as an InternalFault.
func (g *Gateway) Handle(ctx context.Context, c *broadcast.Client, cmd types.Command) (err error) {
	defer func() {
		if p := recover(); p != nil {
			g.log.Error("command panicked",
				zap.String("identity", c.ID),
				zap.String("command", fmt.Sprintf("%T", cmd)),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
			err = errs.New(errs.InternalFault, "internal error")
		}
	}()

	if _, ok := cmd.(types.CreateSession); ok {
		_, err := g.reg.Create(ctx, c)
		return err
	}

	rm, err := g.reg.Get(ctx, cmd.Session())
	if err != nil {
		return err
	}

	switch cmd := cmd.(type) {
	case types.JoinSession:
		return rm.Join(ctx, c)
	case types.SubmitMove:
		return rm.Move(ctx, c.ID, cmd.Move)
	case types.Resign:
		return rm.Resign(ctx, c.ID)
	case types.LeaveSession:
		return rm.Leave(ctx, c.ID)
	case types.RequestRematch:
		return rm.RequestRematch(ctx, c.ID)
	case types.RespondRematch:
		return rm.RespondRematch(ctx, c.ID, cmd.Accept)
	}
	return errs.New(errs.InvalidOperation, "unsupported command")
}

// OnDisconnect tells every room that c is gone. Rooms that do not know the
// identity ignore it.
func (g *Gateway) OnDisconnect(ctx context.Context, c *broadcast.Client) {
	c.Kick()
	rooms, err := g.reg.Rooms(ctx)
	if err != nil {
		g.log.Warn("list rooms on disconnect", zap.String("identity", c.ID), zap.Error(err))
		return
	}
	for _, rm := range rooms {
		if err := rm.Disconnect(ctx, c); err != nil {
			g.log.Warn("deliver disconnect", zap.String("identity", c.ID), zap.String("session_id", rm.ID()), zap.Error(err))
		}
	}
	g.log.Debug("client disconnected", zap.String("identity", c.ID))
}
