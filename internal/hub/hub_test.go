package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/chess-session-backend/internal/broadcast"
	"github.com/DoyleJ11/chess-session-backend/internal/clock"
	"github.com/DoyleJ11/chess-session-backend/internal/errs"
	"github.com/DoyleJ11/chess-session-backend/internal/room"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
	"github.com/DoyleJ11/chess-session-backend/internal/types"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		MaxSessions: 10,
		TTL: TTLs{
			Completed: 10 * time.Minute,
			Inactive:  30 * time.Minute,
			Max:       6 * time.Hour,
		},
		Room: room.Config{
			MaxSpectators: 4,
			Policy:        session.GracePeriod,
			GracePeriod:   time.Minute,
			ClockInitial:  10 * time.Minute,
			ClockMode:     room.Continuous,
			ClockTick:     time.Second,
		},
	}
}

func newTestHub(t *testing.T, cfg Config, deps Deps) (*Hub, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(start)
	deps.Clock = fake
	deps.Logger = zaptest.NewLogger(t)
	h := NewHub(context.Background(), cfg, deps)
	t.Cleanup(func() {
		h.Shutdown()
		<-h.Done()
	})
	return h, fake
}

func recvType(t *testing.T, c *broadcast.Client, want types.EventType) types.Event {
	t.Helper()
	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case ev := <-c.Events():
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("%s: timed out waiting for %s", c.ID, want)
			return types.Event{}
		}
	}
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h, _ := newTestHub(t, testConfig(), Deps{})
	ctx := context.Background()
	alice := broadcast.NewClient("alice", 8)

	rm1, err := h.Create(ctx, alice)
	require.NoError(t, err)
	created := recvType(t, alice, types.EvtSessionCreated)
	assert.Equal(t, rm1.ID(), created.SessionID)
	assert.Equal(t, "white", created.Role)
	assert.Equal(t, "waiting", created.Session.Status)

	rm2, err := h.Get(ctx, rm1.ID())
	require.NoError(t, err)
	if rm1 != rm2 {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_GetUnknownIsNotFound(t *testing.T) {
	h, _ := newTestHub(t, testConfig(), Deps{})
	_, err := h.Get(context.Background(), "NOPE00")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestHub_CapacityExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSessions = 1
	h, _ := newTestHub(t, cfg, Deps{})
	ctx := context.Background()

	_, err := h.Create(ctx, broadcast.NewClient("alice", 8))
	require.NoError(t, err)
	_, err = h.Create(ctx, broadcast.NewClient("bob", 8))
	assert.Equal(t, errs.CapacityExceeded, errs.CodeOf(err))
}

func TestHub_RetriesCodeCollision(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	next := func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	h, _ := newTestHub(t, testConfig(), Deps{NewCode: next})
	ctx := context.Background()

	rm1, err := h.Create(ctx, broadcast.NewClient("alice", 8))
	require.NoError(t, err)
	rm2, err := h.Create(ctx, broadcast.NewClient("bob", 8))
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", rm1.ID())
	assert.Equal(t, "BBBBBB", rm2.ID())
}

func TestTTLs_Expired(t *testing.T) {
	ttl := testConfig().TTL
	now := start.Add(7 * time.Hour)

	cases := []struct {
		name   string
		meta   room.Meta
		reason string
	}{
		{
			name: "fresh active",
			meta: room.Meta{Status: session.StatusActive, CreatedAt: now.Add(-time.Hour), LastActivityAt: now.Add(-time.Minute), Occupants: 2},
		},
		{
			name:   "completed and idle",
			meta:   room.Meta{Status: session.StatusCompleted, CreatedAt: now.Add(-time.Hour), LastActivityAt: now.Add(-11 * time.Minute), Occupants: 2},
			reason: "completed",
		},
		{
			name: "completed but recent",
			meta: room.Meta{Status: session.StatusCompleted, CreatedAt: now.Add(-time.Hour), LastActivityAt: now.Add(-9 * time.Minute), Occupants: 2},
		},
		{
			name:   "idle waiting",
			meta:   room.Meta{Status: session.StatusWaiting, CreatedAt: now.Add(-time.Hour), LastActivityAt: now.Add(-31 * time.Minute), Occupants: 1},
			reason: "inactive",
		},
		{
			name:   "too old while busy",
			meta:   room.Meta{Status: session.StatusActive, CreatedAt: now.Add(-6*time.Hour - time.Second), LastActivityAt: now, Occupants: 2},
			reason: "max-age",
		},
		{
			name:   "nobody left",
			meta:   room.Meta{Status: session.StatusWaiting, CreatedAt: now, LastActivityAt: now, Occupants: 0},
			reason: "empty",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, expired := ttl.Expired(tc.meta, now)
			assert.Equal(t, tc.reason != "", expired)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestHub_CollectRemovesIdleSessions(t *testing.T) {
	h, fake := newTestHub(t, testConfig(), Deps{})
	ctx := context.Background()
	alice := broadcast.NewClient("alice", 8)

	rm, err := h.Create(ctx, alice)
	require.NoError(t, err)

	removed, err := h.Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)

	fake.Advance(31 * time.Minute)
	removed, err = h.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{rm.ID()}, removed)

	recvType(t, alice, types.EvtSessionClosed)
	_, err = h.Get(ctx, rm.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHub_GCTickerSweepsOnSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.GCInterval = time.Minute
	cfg.Room.ClockMode = room.PerMove
	h, fake := newTestHub(t, cfg, Deps{})
	ctx := context.Background()
	alice := broadcast.NewClient("alice", 8)

	rm, err := h.Create(ctx, alice)
	require.NoError(t, err)
	recvType(t, alice, types.EvtSessionCreated)

	wait, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	require.NoError(t, fake.BlockUntilContext(wait, 1))

	fake.Advance(time.Minute)
	st, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Sessions, "not idle yet")

	fake.Advance(30 * time.Minute)
	recvType(t, alice, types.EvtSessionClosed)
	<-rm.Done()
	_, err = h.Get(ctx, rm.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHub_StatsAndRematchThroughRegistry(t *testing.T) {
	h, _ := newTestHub(t, testConfig(), Deps{})
	ctx := context.Background()
	alice, bob := broadcast.NewClient("alice", 32), broadcast.NewClient("bob", 32)

	rm, err := h.Create(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, rm.Join(ctx, bob))
	recvType(t, alice, types.EvtSessionStarted)

	st, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Sessions: 1, Active: 1, Occupants: 2}, st)

	require.NoError(t, rm.Resign(ctx, "bob"))
	recvType(t, alice, types.EvtSessionEnded)
	require.NoError(t, rm.RequestRematch(ctx, "alice"))
	recvType(t, bob, types.EvtRematchOffered)
	require.NoError(t, rm.RespondRematch(ctx, "bob", true))

	ready := recvType(t, alice, types.EvtRematchSessionReady)
	assert.Equal(t, "black", ready.Role)
	recvType(t, bob, types.EvtRematchSessionReady)

	next, err := h.Get(ctx, ready.NewSessionID)
	require.NoError(t, err)
	assert.NotEqual(t, rm.ID(), next.ID())

	rooms, err := h.Rooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	st, err = h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 1, st.Completed)
}

func TestHub_ShutdownStopsRooms(t *testing.T) {
	h, _ := newTestHub(t, testConfig(), Deps{})
	ctx := context.Background()
	alice := broadcast.NewClient("alice", 8)

	rm, err := h.Create(ctx, alice)
	require.NoError(t, err)

	h.Shutdown()
	<-h.Done()
	recvType(t, alice, types.EvtSessionClosed)
	<-rm.Done()

	_, err = h.Get(ctx, rm.ID())
	assert.ErrorIs(t, err, ErrHubClosed)
}
