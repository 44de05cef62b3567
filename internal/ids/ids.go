package ids

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the length of a session code.
const CodeLength = 6

// NewSessionCode returns a short shareable session code.
func NewSessionCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// NewIdentity returns an ephemeral participant handle.
func NewIdentity() string {
	return uuid.New().String()
}
