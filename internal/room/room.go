// Package room runs one goroutine per chess session. Every mutation of a
// session goes through its room's inbox, so operations on one session are
// strictly ordered while distinct sessions run in parallel.
package room

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/chess-session-backend/internal/broadcast"
	"github.com/DoyleJ11/chess-session-backend/internal/clock"
	"github.com/DoyleJ11/chess-session-backend/internal/engine"
	"github.com/DoyleJ11/chess-session-backend/internal/errs"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
	"github.com/DoyleJ11/chess-session-backend/internal/types"
)

type ClockMode string

const (
	// Continuous charges the side to move on a ticker and flags it at zero.
	Continuous ClockMode = "continuous"
	// PerMove only charges when a move is accepted.
	PerMove ClockMode = "move"
)

var ErrClosed = errs.New(errs.NotFound, "session closed")

type Config struct {
	MaxSpectators int
	Policy        session.Policy
	GracePeriod   time.Duration
	ClockInitial  time.Duration
	ClockMode     ClockMode
	ClockTick     time.Duration
}

// Spawner registers a successor session. build receives the allocated id.
type Spawner interface {
	Spawn(ctx context.Context, build func(id string) *session.Session, clients []*broadcast.Client) (string, error)
}

// Recorder stores a completed game. It is called off the room goroutine.
type Recorder interface {
	Record(ctx context.Context, s *session.Session) error
}

type Deps struct {
	Rules    engine.Rules
	Clock    clock.Clock
	Logger   *zap.Logger
	Spawner  Spawner
	Recorder Recorder
}

// Meta is the part of a room the hub may read without messaging it.
type Meta struct {
	ID             string
	Status         session.Status
	CreatedAt      time.Time
	LastActivityAt time.Time
	Occupants      int
	Subscribers    int
}

type Room struct {
	id    string
	inbox chan Msg
	sess  *session.Session
	group *broadcast.Group
	seq   uint64
	cfg   Config
	deps  Deps
	log   *zap.Logger

	greeting types.EventType

	grace    map[string]clock.Timer
	graceGen map[string]uint64

	// background tracks archive writes; the room waits for them before Done.
	background sync.WaitGroup

	meta atomic.Pointer[Meta]

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts a room owning s. clients are subscribed before anything else
// runs and each receives a greeting event with its role and the snapshot.
func New(parent context.Context, s *session.Session, cfg Config, deps Deps, clients []*broadcast.Client, greeting types.EventType) *Room {
	ctx, cancel := context.WithCancel(parent)
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := &Room{
		id:       s.ID,
		inbox:    make(chan Msg, 64),
		sess:     s,
		group:    broadcast.NewGroup(clients...),
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger.With(zap.String("session_id", s.ID)),
		greeting: greeting,
		grace:    make(map[string]clock.Timer),
		graceGen: make(map[string]uint64),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	r.storeMeta()

	go r.loop()
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) Meta() Meta { return *r.meta.Load() }

// Done is closed once the room goroutine has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// Close stops the room. Subscribers are told sessionClosed.
func (r *Room) Close() { r.cancel() }

// Inbox exposes the raw inbox for tests and the gateway.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	defer r.finish()
	r.greet()

	var tick <-chan time.Time
	if r.cfg.ClockMode != PerMove && r.cfg.ClockTick > 0 {
		t := r.deps.Clock.NewTicker(r.cfg.ClockTick)
		defer t.Stop()
		tick = t.Chan()
	}

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-tick:
			r.tick()

		case m := <-r.inbox:
			if _, ok := m.(Shutdown); ok {
				return
			}
			r.handle(m)
		}
	}
}

func (r *Room) finish() {
	for id, t := range r.grace {
		t.Stop()
		delete(r.grace, id)
	}
	r.publish(types.Event{Type: types.EvtSessionClosed})
	r.group.Drain()
	r.storeMeta()
	r.cancel()
	r.background.Wait()
	r.log.Debug("room stopped")
	close(r.done)
}

func (r *Room) greet() {
	if r.greeting == "" {
		return
	}
	now := r.deps.Clock.Now()
	for _, id := range r.group.IDs() {
		ev := types.Event{
			Type:    r.greeting,
			Role:    string(r.sess.RoleOf(id)),
			Session: types.ViewOf(r.sess, now),
		}
		if r.greeting == types.EvtRematchSessionReady {
			ev.NewSessionID = r.id
		}
		r.send(id, ev)
	}
}

// recoverFault logs a panic from work that has no sender to answer.
func (r *Room) recoverFault(what string) {
	if p := recover(); p != nil {
		r.log.Error(what+" panicked",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}
}

// handle applies one message. A panic is logged and turned into an
// InternalFault for the sender; the session stays as it was.
func (r *Room) handle(m Msg) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("room message panicked",
				zap.String("msg", fmt.Sprintf("%T", m)),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
			reply(replyOf(m), errs.New(errs.InternalFault, "internal error"))
		}
	}()

	switch msg := m.(type) {
	case Join:
		reply(msg.Reply, r.join(msg.Client))
	case Move:
		reply(msg.Reply, r.move(msg.Identity, msg.Move))
	case Resign:
		reply(msg.Reply, r.resign(msg.Identity))
	case Leave:
		reply(msg.Reply, r.leave(msg.Identity))
	case RequestRematch:
		reply(msg.Reply, r.requestRematch(msg.Identity))
	case RespondRematch:
		reply(msg.Reply, r.respondRematch(msg.Identity, msg.Accept))
	case Disconnect:
		r.disconnect(msg.Client)
	case graceExpired:
		r.expireGrace(msg)
	case GetState:
		msg.Reply <- View{
			Session:     r.sess.Clone(),
			Snapshot:    types.ViewOf(r.sess, r.deps.Clock.Now()),
			Subscribers: r.group.IDs(),
			Seq:         r.seq,
		}
	}
}

// commit replaces the session with next, which was built on a clone.
func (r *Room) commit(next *session.Session) {
	ended := r.sess.Result == nil && next.Result != nil
	r.sess = next
	r.storeMeta()
	if ended {
		r.stopGraceTimers()
		r.archive(next.Clone())
	}
}

func (r *Room) storeMeta() {
	r.meta.Store(&Meta{
		ID:             r.sess.ID,
		Status:         r.sess.Status,
		CreatedAt:      r.sess.CreatedAt,
		LastActivityAt: r.sess.LastActivityAt,
		Occupants:      r.sess.Occupants(),
		Subscribers:    r.group.Len(),
	})
}

func (r *Room) stamp(ev types.Event) types.Event {
	r.seq++
	ev.Seq = r.seq
	ev.SessionID = r.id
	return ev
}

func (r *Room) publish(ev types.Event) {
	for _, id := range r.group.Publish(r.stamp(ev)) {
		r.log.Warn("dropped slow subscriber", zap.String("identity", id))
	}
}

func (r *Room) send(id string, ev types.Event) {
	if !r.group.Has(id) {
		return
	}
	if !r.group.Send(id, r.stamp(ev)) {
		r.log.Warn("dropped slow subscriber", zap.String("identity", id))
	}
}

func (r *Room) spectators() *int {
	n := len(r.sess.Spectators)
	return &n
}

func (r *Room) archive(s *session.Session) {
	if r.deps.Recorder == nil {
		return
	}
	rec := r.deps.Recorder
	r.background.Add(1)
	go func() {
		defer r.background.Done()
		defer r.recoverFault("archive")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.Record(ctx, s); err != nil {
			r.log.Error("archive game", zap.Error(err))
		}
	}()
}

// call posts m and waits for its reply.
func (r *Room) call(ctx context.Context, m Msg, ch chan error) error {
	select {
	case r.inbox <- m:
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ch:
		return err
	case <-r.done:
		select {
		case err := <-ch:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) Join(ctx context.Context, c *broadcast.Client) error {
	ch := make(chan error, 1)
	return r.call(ctx, Join{Client: c, Reply: ch}, ch)
}

func (r *Room) Move(ctx context.Context, identity, move string) error {
	ch := make(chan error, 1)
	return r.call(ctx, Move{Identity: identity, Move: move, Reply: ch}, ch)
}

func (r *Room) Resign(ctx context.Context, identity string) error {
	ch := make(chan error, 1)
	return r.call(ctx, Resign{Identity: identity, Reply: ch}, ch)
}

func (r *Room) Leave(ctx context.Context, identity string) error {
	ch := make(chan error, 1)
	return r.call(ctx, Leave{Identity: identity, Reply: ch}, ch)
}

func (r *Room) RequestRematch(ctx context.Context, identity string) error {
	ch := make(chan error, 1)
	return r.call(ctx, RequestRematch{Identity: identity, Reply: ch}, ch)
}

func (r *Room) RespondRematch(ctx context.Context, identity string, accept bool) error {
	ch := make(chan error, 1)
	return r.call(ctx, RespondRematch{Identity: identity, Accept: accept, Reply: ch}, ch)
}

// Disconnect queues a disconnect without waiting for it to be applied.
func (r *Room) Disconnect(ctx context.Context, c *broadcast.Client) error {
	select {
	case r.inbox <- Disconnect{Client: c}:
		return nil
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) State(ctx context.Context) (View, error) {
	ch := make(chan View, 1)
	select {
	case r.inbox <- GetState{Reply: ch}:
	case <-r.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-ch:
		return v, nil
	case <-r.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
