package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/chess-session-backend/internal/engine"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
)

func TestGameOf(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rules := engine.NewChess()
	s := session.New("ABC123", "alice", rules.StartPosition(), time.Minute, now)
	_, err := s.Join("bob", 0, now)
	require.NoError(t, err)
	for i, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		who := "alice"
		if i%2 == 1 {
			who = "bob"
		}
		_, err := s.ApplyMove(who, mv, rules, now.Add(time.Duration(i+1)*time.Second))
		require.NoError(t, err)
	}
	require.NotNil(t, s.Result)

	g := GameOf(s)
	assert.Equal(t, "ABC123", g.SessionID)
	assert.Equal(t, "alice", g.White)
	assert.Equal(t, "bob", g.Black)
	assert.Equal(t, "checkmate", g.Reason)
	assert.Equal(t, "black", g.Winner)
	assert.Equal(t, now, g.StartedAt)
	assert.Equal(t, now.Add(4*time.Second), g.EndedAt)
	require.Len(t, g.Moves, 4)
	last := g.Moves[3]
	assert.Equal(t, g.ID, last.GameID)
	assert.Equal(t, 2, last.Number)
	assert.Equal(t, "black", last.Color)
	assert.Equal(t, "1. f3 e5 2. g4 "+last.SAN, g.PGNMoves())
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), nil))
	assert.NoError(t, r.Close())
}
