package httpc

import (
	"github.com/nettide/httpc/internal/dialer"
	model "github.com/nettide/httpc/internal/http"
)

// Dialers are responsible for creating underlying streams that http requests
// could be written to and responses could be read from.
//
// Unlike [net/http.Transport], a Dialer MUST NOT hold active connection
// states, which means a Dialer must be able to be swapped out from a
// [Client] without pain. It SHOULD hold the connection related configs
// like [ProxyConfig] or *[crypto/tls.Config].
type Dialer = model.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It
// would be used by a zero value [Client].
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig

// Proxy is the immutable forward-proxy descriptor: scheme, address and
// optional credentials, fixed for the client's lifetime.
type Proxy = dialer.Proxy

var ParseProxy = dialer.ParseProxy

// WithFreshConn marks a context so the next dial bypasses pooled idle
// connections.
var WithFreshConn = dialer.WithFreshConn

type ResolveConfig = dialer.ResolveConfig
