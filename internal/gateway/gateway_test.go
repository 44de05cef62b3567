package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/chess-session-backend/internal/broadcast"
	"github.com/DoyleJ11/chess-session-backend/internal/errs"
	"github.com/DoyleJ11/chess-session-backend/internal/hub"
	"github.com/DoyleJ11/chess-session-backend/internal/room"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
	"github.com/DoyleJ11/chess-session-backend/internal/types"
)

func hubConfig(policy session.Policy) hub.Config {
	return hub.Config{
		MaxSessions: 4,
		TTL:         hub.TTLs{Completed: time.Hour, Inactive: time.Hour, Max: time.Hour},
		Room: room.Config{
			MaxSpectators: 2,
			Policy:        policy,
			GracePeriod:   time.Minute,
			ClockInitial:  10 * time.Minute,
			ClockMode:     room.Continuous,
			ClockTick:     10 * time.Millisecond,
		},
	}
}

func newGateway(t *testing.T, policy session.Policy) *Gateway {
	t.Helper()
	log := zaptest.NewLogger(t)
	h := hub.NewHub(context.Background(), hubConfig(policy), hub.Deps{Logger: log})
	t.Cleanup(func() {
		h.Shutdown()
		<-h.Done()
	})
	return New(h, log, 32)
}

func recvEvent(t *testing.T, c *broadcast.Client) types.Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("%s: timed out waiting for event", c.ID)
		return types.Event{}
	}
}

func expect(t *testing.T, c *broadcast.Client, want types.EventType) types.Event {
	t.Helper()
	ev := recvEvent(t, c)
	require.Equal(t, want, ev.Type, "%s got %+v", c.ID, ev)
	return ev
}

func send(t *testing.T, g *Gateway, c *broadcast.Client, raw string) {
	t.Helper()
	g.Dispatch(context.Background(), c, []byte(raw))
}

// startGame runs create, join and one move, returning both players and the session id.
func startGame(t *testing.T, g *Gateway) (alice, bob *broadcast.Client, id string) {
	t.Helper()
	alice = g.OnConnect("")
	hello := expect(t, alice, types.EvtConnected)
	require.NotEmpty(t, hello.Identity)
	require.Equal(t, alice.ID, hello.Identity)

	send(t, g, alice, `{"type":"createSession"}`)
	created := expect(t, alice, types.EvtSessionCreated)
	id = created.SessionID
	require.Len(t, id, 6)

	bob = g.OnConnect("bob")
	expect(t, bob, types.EvtConnected)
	send(t, g, bob, `{"type":"joinSession","sessionId":"`+id+`"}`)
	assert.Equal(t, "black", expect(t, bob, types.EvtSessionJoined).Role)
	expect(t, bob, types.EvtSessionStarted)
	expect(t, alice, types.EvtSessionStarted)

	send(t, g, alice, `{"type":"submitMove","sessionId":"`+id+`","move":"e2e4"}`)
	for _, c := range []*broadcast.Client{alice, bob} {
		assert.Equal(t, "e4", expect(t, c, types.EvtMoveApplied).Move.SAN)
	}
	return alice, bob, id
}

func TestGateway_ScenarioGracePeriod(t *testing.T) {
	g := newGateway(t, session.GracePeriod)
	alice, bob, id := startGame(t, g)

	// illegal reply goes to the sender only
	send(t, g, bob, `{"type":"submitMove","sessionId":"`+id+`","move":"e2e4"}`)
	bad := expect(t, bob, types.EvtError)
	assert.Equal(t, errs.InvalidOperation, bad.Error.Code)
	assert.Equal(t, id, bad.SessionID)

	g.OnDisconnect(context.Background(), alice)
	paused := expect(t, bob, types.EvtSessionPaused)
	assert.Equal(t, alice.ID, paused.Identity)

	again := g.OnConnect(alice.ID)
	expect(t, again, types.EvtConnected)
	send(t, g, again, `{"type":"joinSession","sessionId":"`+id+`"}`)
	assert.Equal(t, "white", expect(t, again, types.EvtSessionJoined).Role)
	expect(t, bob, types.EvtSessionResumed)
	expect(t, again, types.EvtSessionResumed)

	send(t, g, bob, `{"type":"submitMove","sessionId":"`+id+`","move":"e5"}`)
	assert.Equal(t, "e5", expect(t, again, types.EvtMoveApplied).Move.SAN)
}

func TestGateway_ScenarioStrictForfeit(t *testing.T) {
	g := newGateway(t, session.StrictForfeit)
	alice, bob, id := startGame(t, g)

	g.OnDisconnect(context.Background(), alice)
	ended := expect(t, bob, types.EvtSessionEnded)
	assert.Equal(t, "disconnect", ended.Reason)
	assert.Equal(t, "black", ended.Winner)

	// rejoining a completed session keeps the seat but the game stays over
	again := g.OnConnect(alice.ID)
	expect(t, again, types.EvtConnected)
	send(t, g, again, `{"type":"joinSession","sessionId":"`+id+`"}`)
	joined := expect(t, again, types.EvtSessionJoined)
	assert.Equal(t, "completed", joined.Session.Status)
	assert.Equal(t, "disconnect", joined.Session.Result.Reason)
}

func TestGateway_ErrorsGoToRequester(t *testing.T) {
	g := newGateway(t, session.GracePeriod)
	c := g.OnConnect("carol")
	expect(t, c, types.EvtConnected)

	cases := []struct {
		raw  string
		code errs.Code
	}{
		{raw: `not json`, code: errs.InvalidOperation},
		{raw: `{"type":"castle"}`, code: errs.InvalidOperation},
		{raw: `{"type":"joinSession","sessionId":"ZZZZZZ"}`, code: errs.NotFound},
		{raw: `{"type":"resign","sessionId":"ZZZZZZ"}`, code: errs.NotFound},
	}
	for _, tc := range cases {
		send(t, g, c, tc.raw)
		ev := expect(t, c, types.EvtError)
		assert.Equal(t, tc.code, ev.Error.Code, tc.raw)
	}
}

type panicRegistry struct{ Registry }

func (panicRegistry) Get(context.Context, string) (*room.Room, error) { panic("registry exploded") }

func TestGateway_PanicBecomesInternalFault(t *testing.T) {
	g := New(panicRegistry{}, zaptest.NewLogger(t), 4)
	c := g.OnConnect("dave")
	expect(t, c, types.EvtConnected)

	send(t, g, c, `{"type":"resign","sessionId":"ABCDEF"}`)
	ev := expect(t, c, types.EvtError)
	assert.Equal(t, errs.InternalFault, ev.Error.Code)
	assert.Equal(t, "internal error", ev.Error.Message)
}
