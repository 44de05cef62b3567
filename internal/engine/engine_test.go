package engine

import (
	"errors"
	"strings"
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func play(t *testing.T, rules Rules, moves ...string) Applied {
	t.Helper()
	pos := rules.StartPosition()
	var last Applied
	for _, mv := range moves {
		applied, err := rules.Apply(pos, mv)
		if err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
		pos = applied.Position
		last = applied
	}
	return last
}

func TestStartPosition(t *testing.T) {
	if got := NewChess().StartPosition(); got != startFEN {
		t.Fatalf("start position: got %q, want %q", got, startFEN)
	}
}

func TestApplyAcceptsUCIAndSAN(t *testing.T) {
	cases := []struct {
		name string
		move string
		san  string
		uci  string
	}{
		{name: "uci pawn push", move: "e2e4", san: "e4", uci: "e2e4"},
		{name: "san knight", move: "Nf3", san: "Nf3", uci: "g1f3"},
		{name: "uci upper case", move: "D2D4", san: "d4", uci: "d2d4"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			applied, err := NewChess().Apply(startFEN, tc.move)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if applied.SAN != tc.san || applied.UCI != tc.uci {
				t.Fatalf("notation: got %s/%s, want %s/%s", applied.SAN, applied.UCI, tc.san, tc.uci)
			}
			if applied.Turn != Black {
				t.Fatalf("turn: got %s, want black", applied.Turn)
			}
			if applied.Outcome.Terminal != NotTerminal {
				t.Fatalf("unexpected terminal %q", applied.Outcome.Terminal)
			}
		})
	}
}

func TestApplyRejects(t *testing.T) {
	cases := []struct {
		name     string
		position string
		move     string
		want     error
	}{
		{name: "illegal pawn jump", position: startFEN, move: "e2e5", want: ErrIllegalMove},
		{name: "moving opponent piece", position: startFEN, move: "e7e5", want: ErrIllegalMove},
		{name: "garbage", position: startFEN, move: "hello", want: ErrIllegalMove},
		{name: "empty", position: startFEN, move: "  ", want: ErrEmptyMove},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChess().Apply(tc.position, tc.move)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyTerminalOutcomes(t *testing.T) {
	t.Run("fools mate", func(t *testing.T) {
		applied := play(t, NewChess(), "f2f3", "e7e5", "g2g4", "d8h4")
		if applied.Outcome != (Outcome{Terminal: Checkmate, Winner: Black}) {
			t.Fatalf("outcome: got %+v", applied.Outcome)
		}
	})

	t.Run("stalemate", func(t *testing.T) {
		applied, err := NewChess().Apply("7k/4Q3/6K1/8/8/8/8/8 w - - 0 1", "e7f7")
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if applied.Outcome.Terminal != Stalemate || applied.Outcome.Winner != "" {
			t.Fatalf("outcome: got %+v", applied.Outcome)
		}
	})

	t.Run("insufficient material", func(t *testing.T) {
		applied, err := NewChess().Apply("7k/8/8/8/4n3/3K4/8/8 w - - 0 1", "d3e4")
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if applied.Outcome.Terminal != InsufficientMaterial {
			t.Fatalf("outcome: got %+v", applied.Outcome)
		}
	})
}

func TestMaterialStartPosition(t *testing.T) {
	m, err := NewChess().Material(startFEN)
	if err != nil {
		t.Fatalf("material: %v", err)
	}
	want := Count{"p": 8, "n": 2, "b": 2, "r": 2, "q": 1}
	for _, side := range []Color{White, Black} {
		for code, n := range want {
			if m[side][code] != n {
				t.Fatalf("%s %s: got %d, want %d", side, code, m[side][code], n)
			}
		}
	}
}

func TestPositionKeyDropsCounters(t *testing.T) {
	a := PositionKey("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	b := PositionKey("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 4 3")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if strings.Count(a, " ") != 3 {
		t.Fatalf("expected four fields, got %q", a)
	}
}

func TestLost(t *testing.T) {
	got := Lost(Count{"p": 8, "n": 2, "q": 1}, Count{"p": 7, "n": 2})
	if strings.Join(got, ",") != "q,p" {
		t.Fatalf("lost: got %v", got)
	}
}

func TestTurnForPly(t *testing.T) {
	if TurnForPly(0) != White || TurnForPly(1) != Black || TurnForPly(4) != White {
		t.Fatalf("unexpected parity")
	}
}
