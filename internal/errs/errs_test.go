package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "coded", err: New(Forbidden, "not your turn"), want: Forbidden},
		{name: "wrapped coded", err: fmt.Errorf("move: %w", New(InvalidOperation, "illegal move")), want: InvalidOperation},
		{name: "plain", err: errors.New("boom"), want: InternalFault},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("CodeOf: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(NotFound, "session not found", errors.New("no such code"))
	if !errors.Is(err, New(NotFound, "")) {
		t.Fatalf("expected errors.Is to match by code")
	}
	if errors.Is(err, New(Forbidden, "")) {
		t.Fatalf("expected no match across codes")
	}
}

func TestMessageHidesInternalText(t *testing.T) {
	if got := Message(errors.New("db password leaked")); got != "internal error" {
		t.Fatalf("Message: got %q", got)
	}
	if got := Message(New(Forbidden, "not your turn")); got != "not your turn" {
		t.Fatalf("Message: got %q", got)
	}
}
