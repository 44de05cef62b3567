package room

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/chess-session-backend/internal/broadcast"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
	"github.com/DoyleJ11/chess-session-backend/internal/types"
)

func (r *Room) join(c *broadcast.Client) error {
	now := r.deps.Clock.Now()
	next := r.sess.Clone()
	out, err := next.Join(c.ID, r.cfg.MaxSpectators, now)
	if err != nil {
		return err
	}
	r.group.Add(c)
	if out.Rejoined {
		r.stopGrace(c.ID)
	}
	r.commit(next)

	r.send(c.ID, types.Event{
		Type:    types.EvtSessionJoined,
		Role:    string(out.Role),
		Session: types.ViewOf(next, now),
	})
	switch {
	case out.Started:
		r.log.Info("game started")
		r.publish(types.Event{Type: types.EvtSessionStarted, Session: types.ViewOf(next, now)})
	case out.Resumed:
		r.publish(types.Event{Type: types.EvtSessionResumed, Identity: c.ID, Role: string(out.Role), Session: types.ViewOf(next, now)})
	case out.Role == session.RoleSpectator && !out.Rejoined:
		r.publish(types.Event{Type: types.EvtSpectatorsChanged, Spectators: r.spectators()})
	}
	return nil
}

func (r *Room) move(identity, mv string) error {
	now := r.deps.Clock.Now()
	next := r.sess.Clone()
	out, err := next.ApplyMove(identity, mv, r.deps.Rules, now)
	if err != nil {
		return err
	}
	r.commit(next)

	if out.TimedOut {
		r.log.Info("flag fell before move", zap.String("side", string(out.Mover)))
		r.publish(types.Ended(next))
		return nil
	}
	r.publish(types.Event{Type: types.EvtMoveApplied, Move: types.MoveViewOf(next, out, now)})
	if next.Result != nil {
		r.log.Info("game over", zap.String("reason", string(next.Result.Reason)))
		r.publish(types.Ended(next))
	}
	return nil
}

func (r *Room) resign(identity string) error {
	next := r.sess.Clone()
	if _, err := next.Resign(identity, r.deps.Clock.Now()); err != nil {
		return err
	}
	r.commit(next)
	r.publish(types.Ended(next))
	return nil
}

func (r *Room) leave(identity string) error {
	now := r.deps.Clock.Now()
	next := r.sess.Clone()
	out, err := next.Leave(identity, now)
	if err != nil {
		return err
	}
	r.commit(next)
	r.stopGrace(identity)

	if out.Result != nil {
		r.publish(types.Ended(next))
	}
	if out.Role == session.RoleSpectator {
		r.group.Remove(identity)
		r.publish(types.Event{Type: types.EvtSpectatorsChanged, Spectators: r.spectators()})
	} else {
		r.publish(types.Event{Type: types.EvtSeatVacated, Identity: identity, Role: string(out.Role), Session: types.ViewOf(next, now)})
		r.group.Remove(identity)
	}
	r.storeMeta()
	return nil
}

func (r *Room) tick() {
	defer r.recoverFault("clock tick")
	if r.sess.Status != session.StatusActive {
		return
	}
	next := r.sess.Clone()
	if !next.Tick(r.deps.Clock.Now()) {
		return
	}
	r.commit(next)
	r.log.Info("flag fell", zap.String("side", string(next.Turn)))
	r.publish(types.Ended(next))
}

func (r *Room) disconnect(c *broadcast.Client) {
	if cur := r.group.Get(c.ID); cur != nil && cur != c {
		return
	}
	r.group.Remove(c.ID)

	now := r.deps.Clock.Now()
	next := r.sess.Clone()
	out := next.Disconnect(c.ID, r.cfg.Policy, now)
	if out.Role == session.RoleNone {
		r.storeMeta()
		return
	}
	r.commit(next)

	switch {
	case out.Role == session.RoleSpectator:
		r.publish(types.Event{Type: types.EvtSpectatorsChanged, Spectators: r.spectators()})
	case out.Result != nil:
		r.log.Info("forfeit on disconnect", zap.String("identity", c.ID))
		r.publish(types.Ended(next))
	case out.Vacated:
		r.publish(types.Event{Type: types.EvtSeatVacated, Identity: c.ID, Role: string(out.Role), Session: types.ViewOf(next, now)})
	case out.Held && next.Status != session.StatusCompleted:
		if out.Paused {
			r.publish(types.Event{Type: types.EvtSessionPaused, Identity: c.ID, Role: string(out.Role), Session: types.ViewOf(next, now)})
		}
		r.armGrace(c.ID)
	}
}

func (r *Room) expireGrace(msg graceExpired) {
	if r.graceGen[msg.identity] != msg.gen {
		return
	}
	delete(r.grace, msg.identity)

	now := r.deps.Clock.Now()
	next := r.sess.Clone()
	out := next.ExpireGrace(msg.identity, now)
	if out.Role == session.RoleNone {
		return
	}
	r.commit(next)

	if out.Result != nil {
		r.log.Info("grace period expired", zap.String("identity", msg.identity))
		r.publish(types.Ended(next))
	}
	if out.Vacated {
		r.publish(types.Event{Type: types.EvtSeatVacated, Identity: msg.identity, Role: string(out.Role), Session: types.ViewOf(next, now)})
	}
}

func (r *Room) armGrace(identity string) {
	r.stopGrace(identity)
	r.graceGen[identity]++
	gen := r.graceGen[identity]
	r.grace[identity] = r.deps.Clock.AfterFunc(r.cfg.GracePeriod, func() {
		select {
		case r.inbox <- graceExpired{identity: identity, gen: gen}:
		case <-r.ctx.Done():
		}
	})
}

// stopGrace cancels identity's reconnection window. Bumping the generation
// drops a fire that is already queued.
func (r *Room) stopGrace(identity string) {
	if t, ok := r.grace[identity]; ok {
		t.Stop()
		delete(r.grace, identity)
	}
	r.graceGen[identity]++
}

func (r *Room) stopGraceTimers() {
	for id := range r.grace {
		r.stopGrace(id)
	}
}

func (r *Room) requestRematch(identity string) error {
	next := r.sess.Clone()
	ask, err := next.OfferRematch(identity, r.deps.Clock.Now())
	if err != nil {
		return err
	}
	r.commit(next)
	r.send(next.Seat(ask).Identity, types.Event{Type: types.EvtRematchOffered, Identity: identity})
	return nil
}

func (r *Room) respondRematch(identity string, accept bool) error {
	now := r.deps.Clock.Now()
	next := r.sess.Clone()
	offerer, err := next.AnswerRematch(identity, accept, now)
	if err != nil {
		return err
	}
	offererID := next.Seat(offerer).Identity

	if !accept {
		r.commit(next)
		r.send(offererID, types.Event{Type: types.EvtRematchDeclined, Identity: identity})
		return nil
	}

	var clients []*broadcast.Client
	for _, id := range []string{offererID, identity} {
		if c := r.group.Get(id); c != nil {
			clients = append(clients, c)
		}
	}

	// Spawn runs on the room context only. The hub must not register a
	// successor this room has stopped waiting for.
	build := func(id string) *session.Session {
		return next.Rematch(id, r.deps.Rules.StartPosition(), r.cfg.ClockInitial, now)
	}
	successor, err := r.deps.Spawner.Spawn(r.ctx, build, clients)
	if err != nil {
		return err
	}

	for _, c := range clients {
		r.group.Remove(c.ID)
	}
	next.Supersede(successor, now)
	r.commit(next)
	r.log.Info("rematch spawned", zap.String("successor", successor))
	r.publish(types.Event{Type: types.EvtRematchSessionReady, NewSessionID: successor})
	return nil
}
