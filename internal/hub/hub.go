// Package hub is the session registry. It owns the room map, enforces the
// session cap and sweeps expired sessions. While running the hub never waits
// on a room: it reads room metadata atomically and stops rooms by cancelling
// them. Only shutdown waits for rooms to exit.
package hub

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/chess-session-backend/internal/broadcast"
	"github.com/DoyleJ11/chess-session-backend/internal/clock"
	"github.com/DoyleJ11/chess-session-backend/internal/engine"
	"github.com/DoyleJ11/chess-session-backend/internal/errs"
	"github.com/DoyleJ11/chess-session-backend/internal/ids"
	"github.com/DoyleJ11/chess-session-backend/internal/room"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
	"github.com/DoyleJ11/chess-session-backend/internal/types"
)

const codeAttempts = 16

var (
	ErrSessionNotFound = errs.New(errs.NotFound, "session not found")
	ErrCapacity        = errs.New(errs.CapacityExceeded, "session capacity exceeded")
	ErrHubClosed       = errs.New(errs.InternalFault, "registry is shut down")
)

type Config struct {
	MaxSessions int
	GCInterval  time.Duration
	TTL         TTLs
	Room        room.Config
}

type Deps struct {
	Rules    engine.Rules
	Clock    clock.Clock
	Logger   *zap.Logger
	Recorder room.Recorder
	// NewCode allocates session codes. Defaults to ids.NewSessionCode.
	NewCode func() (string, error)
}

type HubMsg interface{ isHubMsg() }

type createResult struct {
	room *room.Room
	err  error
}

type spawnResult struct {
	id  string
	err error
}

type CreateSession struct {
	Client *broadcast.Client
	Reply  chan createResult
}

type GetSession struct {
	ID    string
	Reply chan *room.Room
}

type ListRooms struct {
	Reply chan []*room.Room
}

type SpawnSession struct {
	Build   func(id string) *session.Session
	Clients []*broadcast.Client
	Reply   chan spawnResult
}

// Collect runs a GC sweep now and replies with the removed ids.
type Collect struct {
	Reply chan []string
}

type GetStats struct {
	Reply chan Stats
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (ListRooms) isHubMsg()     {}
func (SpawnSession) isHubMsg()  {}
func (Collect) isHubMsg()       {}
func (GetStats) isHubMsg()      {}
func (ShutdownHub) isHubMsg()   {}

type Stats struct {
	Sessions  int `json:"sessions"`
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Occupants int `json:"occupants"`
}

type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room
	// retired rooms were collected but may still be stopping.
	retired []*room.Room
	cfg     Config
	deps    Deps
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(parent context.Context, cfg Config, deps Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Rules == nil {
		deps.Rules = engine.NewChess()
	}
	if deps.NewCode == nil {
		deps.NewCode = ids.NewSessionCode
	}

	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		cfg:    cfg,
		deps:   deps,
		log:    deps.Logger.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed after every room has exited and the hub loop has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)

	var gc <-chan time.Time
	if h.cfg.GCInterval > 0 {
		t := h.deps.Clock.NewTicker(h.cfg.GCInterval)
		defer t.Stop()
		gc = t.Chan()
	}

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-gc:
			h.sweep()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				rm, err := h.create(msg.Client)
				msg.Reply <- createResult{room: rm, err: err}

			case GetSession:
				msg.Reply <- h.rooms[msg.ID] // may be nil

			case ListRooms:
				out := make([]*room.Room, 0, len(h.rooms))
				for _, rm := range h.rooms {
					out = append(out, rm)
				}
				msg.Reply <- out

			case SpawnSession:
				id, err := h.spawn(msg.Build, msg.Clients)
				msg.Reply <- spawnResult{id: id, err: err}

			case Collect:
				msg.Reply <- h.collect()

			case GetStats:
				msg.Reply <- h.stats()

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) roomDeps() room.Deps {
	return room.Deps{
		Rules:    h.deps.Rules,
		Clock:    h.deps.Clock,
		Logger:   h.deps.Logger,
		Spawner:  h,
		Recorder: h.deps.Recorder,
	}
}

func (h *Hub) allocate() (string, error) {
	if len(h.rooms) >= h.cfg.MaxSessions {
		return "", ErrCapacity
	}
	for range codeAttempts {
		code, err := h.deps.NewCode()
		if err != nil {
			return "", errs.Wrap(errs.InternalFault, "generate session code", err)
		}
		if _, taken := h.rooms[code]; !taken {
			return code, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", code))
	}
	return "", errs.New(errs.InternalFault, "could not allocate a session code")
}

func (h *Hub) create(c *broadcast.Client) (*room.Room, error) {
	id, err := h.allocate()
	if err != nil {
		return nil, err
	}
	now := h.deps.Clock.Now()
	s := session.New(id, c.ID, h.deps.Rules.StartPosition(), h.cfg.Room.ClockInitial, now)
	rm := room.New(h.ctx, s, h.cfg.Room, h.roomDeps(), []*broadcast.Client{c}, types.EvtSessionCreated)
	h.rooms[id] = rm
	h.log.Info("session created", zap.String("session_id", id), zap.String("owner", c.ID))
	return rm, nil
}

func (h *Hub) spawn(build func(string) *session.Session, clients []*broadcast.Client) (string, error) {
	id, err := h.allocate()
	if err != nil {
		return "", err
	}
	s := build(id)
	h.rooms[id] = room.New(h.ctx, s, h.cfg.Room, h.roomDeps(), clients, types.EvtRematchSessionReady)
	h.log.Info("rematch session created", zap.String("session_id", id))
	return id, nil
}

// sweep is the periodic collect. A fault is logged and the next tick retries.
func (h *Hub) sweep() {
	defer func() {
		if p := recover(); p != nil {
			h.log.Error("gc sweep panicked",
				zap.String("panic_type", fmt.Sprintf("%T", p)),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
		}
	}()
	h.collect()
}

// collect removes every room the TTL policy expires and every room that has
// already stopped on its own.
func (h *Hub) collect() []string {
	h.pruneRetired()
	now := h.deps.Clock.Now()
	var removed []string
	for id, rm := range h.rooms {
		reason, expired := h.cfg.TTL.Expired(rm.Meta(), now)
		select {
		case <-rm.Done():
			reason, expired = "stopped", true
		default:
		}
		if !expired {
			continue
		}
		rm.Close()
		delete(h.rooms, id)
		h.retired = append(h.retired, rm)
		removed = append(removed, id)
		h.log.Info("session collected", zap.String("session_id", id), zap.String("reason", reason))
	}
	return removed
}

func (h *Hub) pruneRetired() {
	live := h.retired[:0]
	for _, rm := range h.retired {
		select {
		case <-rm.Done():
		default:
			live = append(live, rm)
		}
	}
	clear(h.retired[len(live):])
	h.retired = live
}

func (h *Hub) stats() Stats {
	st := Stats{Sessions: len(h.rooms)}
	for _, rm := range h.rooms {
		m := rm.Meta()
		st.Occupants += m.Occupants
		switch m.Status {
		case session.StatusWaiting:
			st.Waiting++
		case session.StatusActive:
			st.Active++
		case session.StatusCompleted:
			st.Completed++
		}
	}
	return st
}

// shutdown cancels every room and waits for them to exit. A room blocked on
// Spawn gives up once its own context is cancelled, so this cannot deadlock.
func (h *Hub) shutdown() {
	h.cancel()
	for id, rm := range h.rooms {
		rm.Close()
		<-rm.Done()
		delete(h.rooms, id)
	}
	for _, rm := range h.retired {
		<-rm.Done()
	}
	h.retired = nil
	h.log.Debug("hub stopped")
}

// post sends m to the hub loop, giving up when ctx ends or the hub stops.
func (h *Hub) post(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, ch chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create registers a new waiting session owned by c. The room greets c with
// sessionCreated.
func (h *Hub) Create(ctx context.Context, c *broadcast.Client) (*room.Room, error) {
	reply := make(chan createResult, 1)
	if err := h.post(ctx, CreateSession{Client: c, Reply: reply}); err != nil {
		return nil, err
	}
	res, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return res.room, res.err
}

func (h *Hub) Get(ctx context.Context, id string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.post(ctx, GetSession{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	rm, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, ErrSessionNotFound
	}
	return rm, nil
}

func (h *Hub) Rooms(ctx context.Context) ([]*room.Room, error) {
	reply := make(chan []*room.Room, 1)
	if err := h.post(ctx, ListRooms{Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

// Spawn implements room.Spawner.
func (h *Hub) Spawn(ctx context.Context, build func(id string) *session.Session, clients []*broadcast.Client) (string, error) {
	reply := make(chan spawnResult, 1)
	if err := h.post(ctx, SpawnSession{Build: build, Clients: clients, Reply: reply}); err != nil {
		return "", err
	}
	res, err := await(ctx, h, reply)
	if err != nil {
		return "", err
	}
	return res.id, res.err
}

func (h *Hub) Collect(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := h.post(ctx, Collect{Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := h.post(ctx, GetStats{Reply: reply}); err != nil {
		return Stats{}, err
	}
	return await(ctx, h, reply)
}

// Shutdown stops every room and the hub itself.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
	}
}
