package transport

import (
	"context"
	"errors"
	"io"

	"github.com/nettide/httpc/internal/http"
)

type Transport interface {
	Write(ctx context.Context, w io.Writer, req *http.PreparedRequest) error
	Read(ctx context.Context, r io.Reader, resp *http.Response) error
}

// ErrConn marks failures caused by the connection rather than by the
// message itself. The client consults this marker when deciding whether a
// stale pooled connection deserves one retry.
var ErrConn = errors.New("transport: connection failure")

// connErr wraps an I/O error with the ErrConn marker, keeping the original
// error reachable for diagnostics.
type connError struct {
	cause error
}

func (e *connError) Error() string   { return ErrConn.Error() + ": " + e.cause.Error() }
func (e *connError) Unwrap() []error { return []error{ErrConn, e.cause} }

func markConn(err error) error {
	if err == nil {
		return nil
	}
	return &connError{cause: err}
}

// connWriter tags write failures of the underlying connection so they can
// be told apart from body-source read failures after an io.Copy.
type connWriter struct {
	io.Writer
}

func (w connWriter) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)
	return n, markConn(err)
}
