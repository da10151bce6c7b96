// package httpc is an HTTP client library with blocking and non-blocking
// request execution over plain and TLS-secured connections, transparent
// forward-proxy tunneling, redirect following and a closed error taxonomy.
package httpc

import (
	"net/http"

	"github.com/nettide/httpc/internal"
	model "github.com/nettide/httpc/internal/http"
)

type Header = http.Header
type Client = internal.Client
type Request = model.Request
type PreparedRequest = model.PreparedRequest
type Response = model.Response

type Handler = internal.Handler
type Middleware = internal.Middleware

// Trace is a middleware tagging dispatches with request ids and logging
// them through the given zap logger.
var Trace = internal.Trace
