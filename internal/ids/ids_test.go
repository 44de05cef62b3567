package ids

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewSessionCodeFormat(t *testing.T) {
	code, err := NewSessionCode()
	if err != nil {
		t.Fatalf("new code: %v", err)
	}
	if len(code) != CodeLength {
		t.Fatalf("expected %d characters, got %q", CodeLength, code)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeCharset, r) {
			t.Fatalf("unexpected character %q in code", r)
		}
	}
}

func TestNewIdentityIsUUID(t *testing.T) {
	a, b := NewIdentity(), NewIdentity()
	if a == b {
		t.Fatalf("expected distinct identities")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("identity is not a uuid: %v", err)
	}
}
