package dialer

import (
	"context"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/nettide/httpc/internal/errs"
	"github.com/nettide/httpc/internal/http"
	"github.com/nettide/httpc/utils/netpool"
)

var pool = netpool.NewGroup(100, 80)

var schemes = map[string]string{
	"http": "80", "https": "443",
}

var zeroDialer net.Dialer
var customDnsDialer = net.Dialer{
	Resolver: &customServerResolver,
}

// freshConnCtx forces the pool to hand out a newly established connection,
// bypassing idle entries. Used for the single stale-connection retry.
type freshConnCtx struct {
	context.Context
}

var freshConnCtxKey = &freshConnCtx{} // non-nil pointer, definitely unique

func (c freshConnCtx) Value(key interface{}) interface{} {
	if key == freshConnCtxKey {
		return true
	}
	return c.Context.Value(key)
}

// WithFreshConn marks the context so the next Dial bypasses pooled idle
// connections and establishes a new one.
func WithFreshConn(ctx context.Context) context.Context {
	return freshConnCtx{ctx}
}

func wantsFresh(ctx context.Context) bool {
	v, ok := ctx.Value(freshConnCtxKey).(bool)
	return ok && v
}

func (d *CoreDialer) Dial(ctx context.Context, r *http.PreparedRequest) (io.ReadWriteCloser, error) {
	if err := errs.FromContext(ctx); err != nil {
		return nil, err
	}
	addr, port := r.U.Host, schemes[r.U.Scheme]
	if add, prt, err := net.SplitHostPort(addr); err == nil {
		addr, port = add, prt
	}
	hp := net.JoinHostPort(addr, port)
	key := r.U.Scheme + "://" + hp

	connPool := d.ConnPool
	if connPool == nil {
		connPool = pool
	}
	c, err := connPool.Connect(ctx, key, wantsFresh(ctx), func(ctx context.Context) (net.Conn, error) {
		return d.dialNew(ctx, r, addr, port, hp)
	})
	if err != nil {
		if _, ok := err.(*errs.Error); ok {
			return nil, err
		}
		if ce := errs.FromContext(ctx); ce != nil {
			return nil, ce
		}
		return nil, errs.New(errs.Connect, err)
	}
	return c, nil
}

// dialNew establishes a transport socket to the target origin, tunneling
// through the configured proxy when there is one, then upgrades it into a
// verified stream for https targets. The returned conn is ready for
// request bytes; no partially handshaked conn ever escapes.
func (d *CoreDialer) dialNew(ctx context.Context, r *http.PreparedRequest, addr, port, hp string) (net.Conn, error) {
	conn, err := d.tryDialProxy(ctx, r)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		network, dialer, dialctx, dst := "tcp", &zeroDialer, ctx, hp

		if d.ResolveConfig != nil {
			if d.ResolveConfig.Network == "ip4" {
				network = "tcp4"
			} else if d.ResolveConfig.Network == "ip6" {
				network = "tcp6"
			}
			if static, ok := d.ResolveConfig.StaticHosts[addr]; ok {
				dst = net.JoinHostPort(static, port)
			}
			if dns := d.ResolveConfig.CustomDNSServer; dns != "" {
				dialctx = dnsServerCtx{dialctx, dns}
				dialer = &customDnsDialer
			}
		}

		conn, err = dialer.DialContext(dialctx, network, dst)
		if err != nil {
			if ce := errs.FromContext(ctx); ce != nil {
				return nil, ce
			}
			return nil, errs.New(errs.Connect, err)
		}
		d.logger().Debug("transport connected", zap.String("origin", hp))
	}
	if r.U.Scheme == "https" {
		return d.upgrade(ctx, conn, r.U.Hostname(), d.TLSConfig, errs.ConnectionUpgrade)
	}
	return conn, nil
}
