package internal

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/nettide/httpc/internal/dialer"
	"github.com/nettide/httpc/internal/errs"
	"github.com/nettide/httpc/internal/http"
	"github.com/nettide/httpc/internal/transport"
)

type PreparedRequest = http.PreparedRequest
type Response = http.Response

type Handler = func(ctx context.Context, req *PreparedRequest) (*http.Response, error)
type Middleware func(next Handler) Handler

type Dialer = http.Dialer

// DefaultMaxRedirects bounds redirect following for a zero-value Client.
const DefaultMaxRedirects = 10

type Client struct {
	middlewares []Middleware
	dialer      Dialer

	// MaxRedirects bounds redirect following. Negative disables following;
	// redirect responses are then handed back to the caller as-is. Zero
	// selects DefaultMaxRedirects.
	MaxRedirects int
	// RetrySafe marks methods eligible for the single retry on a stale
	// pooled connection. Nil selects the idempotent defaults (GET, HEAD,
	// OPTIONS, TRACE). A caller may mark others, e.g. POST carrying an
	// idempotency key.
	RetrySafe func(method string) bool
	// Logger receives dispatch diagnostics at debug level. Nil is silent.
	Logger *zap.Logger
}

var h1 = transport.HTTP1{}

var defaultDialer = &dialer.CoreDialer{}

// Use appends mw to the end of the chain. The first "Use"d mw is outermost
// and executes first.
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer swaps the dialer through wrap, receiving the currently
// configured one (nil means the default dialer is in place).
func (c *Client) UseDialer(wrap func(Dialer) Dialer) {
	c.dialer = wrap(c.dialer)
}

func (c *Client) dial(ctx context.Context, req *PreparedRequest) (io.ReadWriteCloser, error) {
	if c.dialer != nil {
		return c.dialer.Dial(ctx, req)
	}
	return defaultDialer.Dial(ctx, req)
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Client) CtxDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	pr, err := req.Prepare()
	if err != nil {
		return nil, err
	}
	next := c.dispatch
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return next(ctx, pr)
}

// dispatch runs the redirect loop around individual round trips. The hop
// bound turns a redirect loop into a Redirect error rather than endless
// connection churn.
func (c *Client) dispatch(ctx context.Context, pr *PreparedRequest) (*http.Response, error) {
	limit := c.MaxRedirects
	if limit == 0 {
		limit = DefaultMaxRedirects
	}
	req := pr
	for hops := 0; ; {
		resp, err := c.roundTrip(ctx, req)
		if err != nil {
			return nil, err
		}
		if limit < 0 || !isRedirect(resp.StatusCode) {
			return resp, nil
		}
		hops++
		if hops > limit {
			resp.Body.Close()
			return nil, errs.Newf(errs.Redirect, "stopped after %d redirect hops", limit)
		}
		next, err := redirectedRequest(req, resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body.Close()
		c.logger().Debug("following redirect",
			zap.Int("status", resp.StatusCode),
			zap.String("target", next.U.String()),
			zap.Int("hop", hops))
		req = next
	}
}

// roundTrip performs one exchange, retrying exactly once on a fresh
// connection when a reused pooled connection turns out stale under a
// retry-safe request.
func (c *Client) roundTrip(ctx context.Context, pr *PreparedRequest) (*http.Response, error) {
	resp, err, stale := c.attempt(ctx, pr)
	if err == nil || !stale || !c.retrySafe(pr.Method) {
		return resp, err
	}
	c.logger().Debug("stale pooled connection, retrying on a fresh one",
		zap.String("method", pr.Method),
		zap.String("host", pr.HeaderHost),
		zap.Error(err))
	resp, err, _ = c.attempt(dialer.WithFreshConn(ctx), pr)
	return resp, err
}

func (c *Client) retrySafe(method string) bool {
	if c.RetrySafe != nil {
		return c.RetrySafe(method)
	}
	switch method {
	case "GET", "HEAD", "OPTIONS", "TRACE":
		return true
	default:
		return false
	}
}

// attempt writes the request and reads the response head over a single
// connection. stale reports whether the failure hit a reused pooled
// connection at the transport level, the only situation the retry rule
// applies to. An errored connection is closed, never returned to the pool.
func (c *Client) attempt(ctx context.Context, pr *PreparedRequest) (resp *http.Response, err error, stale bool) {
	if err := errs.FromContext(ctx); err != nil {
		return nil, err, false
	}
	conn, err := c.dial(ctx, pr)
	if err != nil {
		return nil, err, false
	}
	reused := false
	if rc, ok := conn.(interface{ Reused() bool }); ok {
		reused = rc.Reused()
	}
	if err := h1.Write(ctx, conn, pr); err != nil {
		conn.Close()
		return nil, err, reused && errors.Is(err, transport.ErrConn)
	}
	resp = &http.Response{}
	if err := h1.Read(ctx, conn, resp); err != nil {
		conn.Close()
		return nil, err, reused && errors.Is(err, transport.ErrConn)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		resp.Body = http.NoBody
		recycle(conn, true)
		return resp, nil, false
	}
	resp.Body = &pooledBody{body: resp.Body, conn: conn}
	return resp, nil, false
}

func recycle(conn io.Closer, clean bool) {
	if r, ok := conn.(interface{ Release() }); ok && clean {
		r.Release()
		return
	}
	conn.Close()
}

// pooledBody ties the connection's pool lifecycle to the response body: a
// fully drained, error-free body releases the connection for reuse, any
// other end state evicts it so a possibly-corrupt connection never returns
// to the pool.
type pooledBody struct {
	body io.ReadCloser
	conn io.Closer

	drained bool
	broken  bool
	closed  bool
}

func (b *pooledBody) Read(p []byte) (n int, err error) {
	n, err = b.body.Read(p)
	switch err {
	case nil:
	case io.EOF:
		b.drained = true
	default:
		b.broken = true
	}
	return
}

func (b *pooledBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.body.Close()
	recycle(b.conn, b.drained && !b.broken)
	return err
}
