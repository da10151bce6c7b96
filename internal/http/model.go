package http

import (
	"context"
	"io"
	"net/http"
)

// Dialers are responsible for creating underlying streams that requests
// could be written to and responses could be read from. A Dialer MUST NOT
// hold active connection state itself, so it can be swapped out from a
// Client without pain; it SHOULD hold connection-related configs.
type Dialer interface {
	// Dial returns an abstract stream for writing the request and reading
	// responses. The stream is established and, for TLS targets, verified
	// before it is returned.
	Dial(ctx context.Context, r *PreparedRequest) (io.ReadWriteCloser, error)
	Unwrap() Dialer
}

type Request struct {
	Method string
	URL    string
	Body   interface{}
	Header http.Header
}

type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64
	Body          io.ReadCloser
}
