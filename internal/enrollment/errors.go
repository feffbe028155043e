package enrollment

import "fmt"

// ErrorKind classifies how an enrollment call failed.
type ErrorKind string

const (
	// ErrKindTransport covers network-level failures: unreachable host,
	// connection reset, unreadable body.
	ErrKindTransport ErrorKind = "transport"

	// ErrKindRejected means the service answered with a non-success status.
	ErrKindRejected ErrorKind = "rejected"

	// ErrKindMalformed means the service answered but the payload could not
	// be interpreted.
	ErrKindMalformed ErrorKind = "malformed"

	// ErrKindTimeout means the call exceeded its deadline.
	ErrKindTimeout ErrorKind = "timeout"
)

// Error describes a failed enrollment call with a message fit for display.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("enrollment %s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
