package errs

import "errors"

// Code classifies an error for the client. Codes travel on the wire as-is.
type Code string

const (
	NotFound         Code = "NotFound"
	Forbidden        Code = "Forbidden"
	CapacityExceeded Code = "CapacityExceeded"
	InvalidOperation Code = "InvalidOperation"
	InternalFault    Code = "InternalFault"
)

// Error is a coded error reported back to the requester only.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain.
// Anything else is an InternalFault.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalFault
}

// Message returns the client-facing text. Uncoded errors never leak their text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
