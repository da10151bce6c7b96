package dialer

import (
	"context"
	"crypto/tls"
	"net"

	"go.uber.org/zap"

	"github.com/nettide/httpc/internal/errs"
	"github.com/nettide/httpc/internal/tlsx"
	"github.com/nettide/httpc/utils/nettools"
)

// upgrade drives a TLS handshake over conn until terminal, blocking on
// socket readiness whenever the engine suspends. failKind decides how a
// handshake failure is classified: ConnectionUpgrade for target upgrades,
// Connect when the handshake is part of tunnel establishment.
func (d *CoreDialer) upgrade(ctx context.Context, conn net.Conn, host string, cfg *tls.Config, failKind errs.Kind) (net.Conn, error) {
	sess, err := d.engine(cfg).NewSession(conn)
	if err != nil {
		conn.Close()
		return nil, errs.New(failKind, err)
	}
	outcome := d.drive(ctx, tlsx.Begin(sess, conn, host))
	switch outcome.State {
	case tlsx.Established:
		verify := outcome.Stream.VerifyResult()
		d.logger().Debug("handshake established",
			zap.String("host", host),
			zap.Bool("hostname_matched", verify.HostnameMatched),
			zap.Bool("chain_ok", verify.ChainOK),
			zap.String("detail", verify.Detail))
		return &blockingConn{outcome.Stream}, nil
	default:
		conn.Close()
		var classified *errs.Error
		if e, ok := outcome.Cause.(*errs.Error); ok {
			classified = e // cancellation observed while driving keeps its kind
		} else {
			classified = errs.New(failKind, outcome.Cause)
		}
		return nil, classified
	}
}

// drive resumes a suspended handshake whenever the socket becomes ready in
// the direction the engine asked for. Cancellation is observed between
// suspension points; the suspended handshake is abandoned, releasing its
// session and socket, and the dedicated error kind is returned instead of
// an engine fault.
func (d *CoreDialer) drive(ctx context.Context, outcome tlsx.Outcome) tlsx.Outcome {
	for outcome.State == tlsx.InProgress {
		if err := errs.FromContext(ctx); err != nil {
			outcome.Mid.Abandon()
			return tlsx.Outcome{State: tlsx.Failed, Cause: err}
		}
		dir := nettools.Read
		if outcome.Want == tlsx.WantWrite {
			dir = nettools.Write
		}
		if err := nettools.WaitReady(ctx, outcome.Mid.Conn(), dir); err != nil {
			outcome.Mid.Abandon()
			var cause error = err
			if ce := errs.FromContext(ctx); ce != nil {
				cause = ce
			}
			return tlsx.Outcome{State: tlsx.Failed, Cause: cause}
		}
		outcome = outcome.Mid.Resume()
	}
	return outcome
}

// blockingConn absorbs would-block signals from a verified stream by
// waiting on socket readiness, presenting ordinary blocking semantics to
// the HTTP codec. Independent connections still proceed fully in parallel;
// only this connection's caller blocks.
type blockingConn struct {
	*tlsx.Stream
}

func (c *blockingConn) Read(p []byte) (int, error) {
	for {
		n, err := c.Stream.Read(p)
		if werr := c.await(err); werr != nil {
			return n, werr
		} else if err == tlsx.ErrWantRead || err == tlsx.ErrWantWrite {
			continue
		}
		return n, err
	}
}

func (c *blockingConn) Write(p []byte) (int, error) {
	for {
		n, err := c.Stream.Write(p)
		if werr := c.await(err); werr != nil {
			return n, werr
		} else if err == tlsx.ErrWantRead || err == tlsx.ErrWantWrite {
			continue
		}
		return n, err
	}
}

// await waits for the readiness a would-block signal asks for. Non-signal
// errors pass through as nil so the caller returns them unchanged.
func (c *blockingConn) await(err error) error {
	switch err {
	case tlsx.ErrWantRead:
		return nettools.WaitReady(context.Background(), c.Stream.Raw(), nettools.Read)
	case tlsx.ErrWantWrite:
		return nettools.WaitReady(context.Background(), c.Stream.Raw(), nettools.Write)
	default:
		return nil
	}
}
