package proxmox

import (
	"errors"
	"fmt"
)

// Kind identifies one variant of the error taxonomy surfaced by the client
// and by the packages built on top of it.
type Kind int

const (
	// KindConnection covers every transport failure that is not one of the
	// recognized HTTP statuses (refused connection, DNS, timeouts, other
	// non-2xx responses).
	KindConnection Kind = iota + 1
	// KindInvalidCredentials is reported by Login when the ticket endpoint
	// fails server-side.
	KindInvalidCredentials
	// KindServer is HTTP 500.
	KindServer
	// KindUnauthorized is HTTP 401.
	KindUnauthorized
	// KindNotImplemented is HTTP 501.
	KindNotImplemented
	// KindTimeout is produced by the task poller when a task does not reach
	// a terminal state within its budget.
	KindTimeout
	// KindNoVMIDAvailable is produced when the configured VM id range is
	// exhausted.
	KindNoVMIDAvailable
	// KindMalformedResponse is produced when a response (or a task handle
	// inside one) does not have the expected shape.
	KindMalformedResponse
)

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindServer:
		return "server"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotImplemented:
		return "not_implemented"
	case KindTimeout:
		return "timeout"
	case KindNoVMIDAvailable:
		return "no_vm_id_available"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error is the single error type of the taxonomy.
//
// Message carries the underlying transport message for KindConnection and
// the caller-supplied message key for KindTimeout.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrConnection         = &Error{Kind: KindConnection}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrServer             = &Error{Kind: KindServer}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrNotImplemented     = &Error{Kind: KindNotImplemented}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrNoVMIDAvailable    = &Error{Kind: KindNoVMIDAvailable}
	ErrMalformedResponse  = &Error{Kind: KindMalformedResponse}
)

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("proxmox %s error: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("proxmox %s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("proxmox %s error", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or 0 when
// there is none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// NewTimeoutError returns a timeout error carrying the given message key.
func NewTimeoutError(messageKey string) *Error {
	return &Error{Kind: KindTimeout, Message: messageKey}
}

// NewMalformedResponseError returns a malformed-response error.
func NewMalformedResponseError(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedResponse, Message: fmt.Sprintf(format, args...)}
}

// MessageKey returns the message key of a timeout error, or "" if err is
// not a timeout.
func MessageKey(err error) string {
	var pe *Error
	if errors.As(err, &pe) && pe.Kind == KindTimeout {
		return pe.Message
	}
	return ""
}
