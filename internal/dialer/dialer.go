package dialer

import (
	"context"
	"crypto/tls"

	"go.uber.org/zap"

	"github.com/nettide/httpc/internal/http"
	"github.com/nettide/httpc/internal/tlsx"
	"github.com/nettide/httpc/utils/netpool"
)

// CoreDialer is the default implementation of the [http.Dialer] interface:
// pooled transport dial, optional forward-proxy tunnel, then a TLS upgrade
// driven through the handshake state machine for https targets.
type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use
	// Engine overrides the TLS engine backing https upgrades. Nil selects
	// the crypto/tls-backed [tlsx.StdEngine] built from TLSConfig.
	Engine tlsx.Engine

	ConnPool    *netpool.PoolGroup
	GetProxy    func(ctx context.Context, r *http.Request) (string, error)
	ProxyConfig *ProxyConfig

	// Logger receives dial-path diagnostics at debug level. Nil is silent.
	Logger *zap.Logger
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		Engine:        d.Engine,
		ConnPool:      d.ConnPool.NewEmpty(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
		Logger:        d.Logger,
	}
}

func (d *CoreDialer) Unwrap() http.Dialer {
	return nil
}

func (d *CoreDialer) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *CoreDialer) engine(cfg *tls.Config) tlsx.Engine {
	if d.Engine != nil {
		return d.Engine
	}
	return &tlsx.StdEngine{Config: cfg}
}
