package internal_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nettide/httpc/internal"
	"github.com/nettide/httpc/internal/errs"
	model "github.com/nettide/httpc/internal/http"
)

// scriptConn plays one canned response and records everything written.
type scriptConn struct {
	reply  *strings.Reader
	wrote  strings.Builder
	reused bool
	closed bool
}

func newScriptConn(reply string, reused bool) *scriptConn {
	return &scriptConn{reply: strings.NewReader(reply), reused: reused}
}

func (c *scriptConn) Read(p []byte) (int, error)  { return c.reply.Read(p) }
func (c *scriptConn) Write(p []byte) (int, error) { return c.wrote.Write(p) }
func (c *scriptConn) Close() error                { c.closed = true; return nil }
func (c *scriptConn) Reused() bool                { return c.reused }

// staleConn acts like a pooled connection the peer already closed: the
// first write fails at the socket level.
type staleConn struct {
	reused bool
	closed bool
}

func (c *staleConn) Read(p []byte) (int, error)  { return 0, io.EOF }
func (c *staleConn) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }
func (c *staleConn) Close() error                { c.closed = true; return nil }
func (c *staleConn) Reused() bool                { return c.reused }

// scriptDialer hands out pre-arranged connections in order.
type scriptDialer struct {
	conns []io.ReadWriteCloser
	dials int
}

func (d *scriptDialer) Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error) {
	if d.dials >= len(d.conns) {
		return nil, errs.Msg(errs.Connect, "no more scripted connections")
	}
	c := d.conns[d.dials]
	d.dials++
	return c, nil
}

func (d *scriptDialer) Unwrap() model.Dialer { return nil }

func scriptedClient(conns ...io.ReadWriteCloser) (*internal.Client, *scriptDialer) {
	d := &scriptDialer{conns: conns}
	c := &internal.Client{}
	c.UseDialer(func(model.Dialer) model.Dialer { return d })
	return c, d
}

const emptyOK = "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"

func redirectTo(location string) string {
	return "HTTP/1.1 302 Found\r\nLocation: " + location + "\r\nContent-Length: 0\r\n\r\n"
}

func TestClientSingleExchange(t *testing.T) {
	conn := newScriptConn("HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\ndone", false)
	c, d := scriptedClient(conn)

	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://example.com/"})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "done", string(body))
	require.NoError(t, resp.Body.Close())

	require.Equal(t, 1, d.dials)
	require.True(t, strings.HasPrefix(conn.wrote.String(), "GET / HTTP/1.1\r\n"), conn.wrote.String())
	require.Contains(t, conn.wrote.String(), "Host: example.com\r\n")
	require.True(t, conn.closed, "no pool behind the conn, so close after drain")
}

func TestClientFollowsRedirectChain(t *testing.T) {
	hop1 := newScriptConn(redirectTo("/hop2"), false)
	hop2 := newScriptConn(redirectTo("http://example.com/hop3"), false)
	hop3 := newScriptConn(redirectTo("/done"), false)
	final := newScriptConn("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok", false)
	c, d := scriptedClient(hop1, hop2, hop3, final)
	c.MaxRedirects = 5

	resp, err := c.CtxDo(context.Background(), &model.Request{
		Method: "POST",
		URL:    "http://example.com/start",
		Body:   "payload",
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "ok", string(body))
	resp.Body.Close()

	require.Equal(t, 4, d.dials)
	require.True(t, strings.HasPrefix(hop1.wrote.String(), "POST /start HTTP/1.1\r\n"))
	require.Contains(t, hop1.wrote.String(), "Content-Length: 7\r\n")
	// a 302 rewrites to GET and drops the body
	require.True(t, strings.HasPrefix(hop2.wrote.String(), "GET /hop2 HTTP/1.1\r\n"), hop2.wrote.String())
	require.NotContains(t, hop2.wrote.String(), "Content-Length")
	require.True(t, strings.HasPrefix(final.wrote.String(), "GET /done HTTP/1.1\r\n"))
}

func TestClientSeeOtherKeepsHEAD(t *testing.T) {
	seeOther := newScriptConn(
		"HTTP/1.1 303 See Other\r\nLocation: /result\r\nContent-Length: 0\r\n\r\n", false)
	result := newScriptConn(emptyOK, false)
	c, _ := scriptedClient(seeOther, result)

	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "HEAD", URL: "http://example.com/job"})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	// 303 rewrites to GET for everything except HEAD
	require.True(t, strings.HasPrefix(result.wrote.String(), "HEAD /result HTTP/1.1\r\n"), result.wrote.String())
}

func TestClientRedirectHopLimit(t *testing.T) {
	c, d := scriptedClient(
		newScriptConn(redirectTo("/a"), false),
		newScriptConn(redirectTo("/b"), false),
		newScriptConn(redirectTo("/c"), false),
	)
	c.MaxRedirects = 2

	_, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://example.com/"})
	require.True(t, errs.Is(err, errs.Redirect), "got %v", err)
	require.Contains(t, err.Error(), "stopped after 2 redirect hops")
	require.Equal(t, 3, d.dials, "the limit counts followed hops, not round trips")
}

func TestClientRedirectFollowingDisabled(t *testing.T) {
	c, d := scriptedClient(newScriptConn(redirectTo("/elsewhere"), false))
	c.MaxRedirects = -1

	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://example.com/"})
	require.NoError(t, err)
	require.Equal(t, 302, resp.StatusCode)
	require.Equal(t, "/elsewhere", resp.Header.Get("Location"))
	require.Equal(t, 1, d.dials)
}

func TestClientRedirectDropsCredentialsAcrossHosts(t *testing.T) {
	sameHost := newScriptConn(redirectTo("/next"), false)
	crossHost := newScriptConn(redirectTo("http://other.example/landing"), false)
	landing := newScriptConn(emptyOK, false)
	c, _ := scriptedClient(sameHost, crossHost, landing)

	resp, err := c.CtxDo(context.Background(), &model.Request{
		Method: "GET",
		URL:    "http://example.com/",
		Header: http.Header{"Authorization": {"Bearer tok"}, "Cookie": {"a=b"}, "Accept": {"*/*"}},
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	require.Contains(t, crossHost.wrote.String(), "Authorization: Bearer tok\r\n",
		"same-host redirect keeps credentials")
	got := landing.wrote.String()
	require.Contains(t, got, "Host: other.example\r\n")
	require.Contains(t, got, "Accept: */*\r\n")
	require.NotContains(t, got, "Authorization")
	require.NotContains(t, got, "Cookie")
}

func TestClientTemporaryRedirectNeedsReplayableBody(t *testing.T) {
	c, _ := scriptedClient(newScriptConn(
		"HTTP/1.1 307 Temporary Redirect\r\nLocation: /again\r\nContent-Length: 0\r\n\r\n", false))

	_, err := c.CtxDo(context.Background(), &model.Request{
		Method: "POST",
		URL:    "http://example.com/upload",
		Body:   io.LimitReader(strings.NewReader("streamed"), 8), // one-shot
	})
	require.True(t, errs.Is(err, errs.Redirect), "got %v", err)
}

func TestClientRetriesStaleConnectionForSafeMethods(t *testing.T) {
	stale := &staleConn{reused: true}
	fresh := newScriptConn(emptyOK, false)
	c, d := scriptedClient(stale, fresh)

	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://example.com/"})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, 2, d.dials)
	require.True(t, stale.closed, "the stale connection must be evicted")
}

func TestClientDoesNotRetryUnsafeMethods(t *testing.T) {
	stale := &staleConn{reused: true}
	c, d := scriptedClient(stale, newScriptConn(emptyOK, false))

	_, err := c.CtxDo(context.Background(), &model.Request{
		Method: "POST", URL: "http://example.com/", Body: "payload",
	})
	require.Error(t, err)
	require.Equal(t, 1, d.dials, "POST gets no second attempt by default")
}

func TestClientRetrySafeOverride(t *testing.T) {
	stale := &staleConn{reused: true}
	fresh := newScriptConn(emptyOK, false)
	c, d := scriptedClient(stale, fresh)
	c.RetrySafe = func(method string) bool { return method == "POST" }

	resp, err := c.CtxDo(context.Background(), &model.Request{
		Method: "POST", URL: "http://example.com/", Body: "payload",
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, 2, d.dials)
}

func TestClientDoesNotRetryFreshConnections(t *testing.T) {
	stale := &staleConn{reused: false}
	c, d := scriptedClient(stale, newScriptConn(emptyOK, false))

	_, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://example.com/"})
	require.Error(t, err)
	require.Equal(t, 1, d.dials, "a failure on a brand-new connection is not staleness")
}

func TestClientCancelledBeforeDialing(t *testing.T) {
	c, d := scriptedClient(newScriptConn(emptyOK, false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CtxDo(ctx, &model.Request{Method: "GET", URL: "http://example.com/"})
	require.True(t, errs.Is(err, errs.UserAborted), "got %v", err)
	require.Zero(t, d.dials)
}

func TestClientMiddlewareOrderAndShortCircuit(t *testing.T) {
	c, d := scriptedClient(newScriptConn(emptyOK, false))
	var order []string
	c.Use(func(next internal.Handler) internal.Handler {
		return func(ctx context.Context, req *internal.PreparedRequest) (*internal.Response, error) {
			order = append(order, "outer")
			return next(ctx, req)
		}
	})
	c.Use(func(next internal.Handler) internal.Handler {
		return func(ctx context.Context, req *internal.PreparedRequest) (*internal.Response, error) {
			order = append(order, "inner")
			return nil, errs.Msg(errs.UserAborted, "short-circuited")
		}
	})

	_, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://example.com/"})
	require.True(t, errs.Is(err, errs.UserAborted))
	require.Equal(t, []string{"outer", "inner"}, order)
	require.Zero(t, d.dials, "short-circuiting middleware must prevent dialing")
}

func TestClientInvalidRequestNeverDials(t *testing.T) {
	c, d := scriptedClient(newScriptConn(emptyOK, false))

	_, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "ftp://example.com/"})
	require.True(t, errs.Is(err, errs.Request), "got %v", err)
	require.Zero(t, d.dials)
}
