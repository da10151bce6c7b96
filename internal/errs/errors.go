// package errs defines the closed set of error kinds surfaced by this
// library. Every failure is classified into exactly one Kind at the point it
// is first observed and never reclassified upstream. The optional cause is
// carried for diagnostics only, never for control flow.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Kind partitions every failure surfaced to callers.
type Kind int

const (
	// BodyDecode is a content-framing decode failure in a response body.
	BodyDecode Kind = iota
	// BodyTransfer is an I/O failure while streaming a request or response body.
	BodyTransfer
	// Build is an invalid configuration detected before any I/O.
	Build
	// Connect is a transport or tunnel establishment failure.
	Connect
	// ConnectionUpgrade is a handshake/upgrade failure on an existing connection.
	ConnectionUpgrade
	// Other is an uncategorized failure.
	Other
	// Redirect is a redirect loop/limit excess or a malformed redirect target.
	Redirect
	// Request is a malformed or unsendable request.
	Request
	// Timeout is a caller-reported deadline exceeded.
	Timeout
	// UserAborted is an explicit cancellation by the caller.
	UserAborted
)

func (k Kind) String() string {
	switch k {
	case BodyDecode:
		return "Body Decode Error"
	case BodyTransfer:
		return "Body Transfer Error"
	case Build:
		return "Build Error"
	case Connect:
		return "Connect Error"
	case ConnectionUpgrade:
		return "Connection Upgrade Error"
	case Redirect:
		return "Redirect Error"
	case Request:
		return "Request Error"
	case Timeout:
		return "Timeout Error"
	case UserAborted:
		return "User Aborted Error"
	default:
		return "Other Error"
	}
}

// Error pairs a Kind with an optional opaque cause. The Kind is fixed at
// construction.
type Error struct {
	kind  Kind
	cause error
}

// New wraps cause into an Error of the given kind. A nil cause yields an
// Error carrying the kind alone.
func New(kind Kind, cause error) *Error {
	return &Error{kind: kind, cause: cause}
}

// Msg creates an Error whose cause is a plain message.
func Msg(kind Kind, message string) *Error {
	return &Error{kind: kind, cause: errors.New(message)}
}

// Newf creates an Error with a formatted message cause.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, cause: fmt.Errorf(format, args...)}
}

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Error() string {
	if e.cause == nil {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether err is an Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == kind
}

// FromContext translates a context error into its dedicated kind:
// cancellation becomes UserAborted, an exceeded deadline becomes Timeout.
// Returns nil when the context is still live.
func FromContext(ctx context.Context) *Error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return New(Timeout, err)
	default:
		return New(UserAborted, err)
	}
}
