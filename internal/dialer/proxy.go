package dialer

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"math/rand"
	"net"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nettide/httpc/internal/errs"
	"github.com/nettide/httpc/internal/http"
)

type ProxyConfig struct {
	TLSConfig      *tls.Config // the [*tls.Config] to use with proxy, if nil, *[CoreDialer.TLSConfig] will be used
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for dialing the proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

// Proxy is an immutable forward-proxy descriptor.
type Proxy struct {
	Scheme string
	Host   string
	Port   string
	User   *url.Userinfo
}

// ParseProxy validates a proxy URL into a descriptor. Failures are Build
// errors: the configuration is wrong before any I/O happened.
func ParseProxy(raw string) (*Proxy, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errs.New(errs.Build, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" { // TODO: socks
		return nil, errs.Newf(errs.Build, "unsupported proxy scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errs.Msg(errs.Build, "proxy URL missing host")
	}
	port := u.Port()
	if port == "" {
		port = schemes[u.Scheme]
	}
	return &Proxy{Scheme: u.Scheme, Host: u.Hostname(), Port: port, User: u.User}, nil
}

func (p *Proxy) hostPort() string {
	return net.JoinHostPort(p.Host, p.Port)
}

func (d *CoreDialer) tryDialProxy(ctx context.Context, r *http.PreparedRequest) (net.Conn, error) {
	if d.GetProxy == nil {
		return nil, nil
	}
	raw, err := d.GetProxy(ctx, r.Request)
	if err != nil {
		return nil, errs.New(errs.Build, err)
	}
	if raw == "" {
		return nil, nil
	}
	proxy, err := ParseProxy(raw)
	if err != nil {
		return nil, err
	}
	return d.DialContextOverProxy(ctx, r.U, proxy)
}

// DialContextOverProxy creates a connection to remote tunneled through an
// http/https forward proxy. This part of logic may be reused when wrapping
// *[CoreDialer] into a new custom [http.Dialer].
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote *url.URL, proxy *Proxy) (net.Conn, error) {
	conn, err := zeroDialer.DialContext(ctx, "tcp", proxy.hostPort())
	if err != nil {
		if ce := errs.FromContext(ctx); ce != nil {
			return nil, ce
		}
		return nil, errs.New(errs.Connect, err)
	}

	if proxy.Scheme == "https" {
		tlsCfg := d.ProxyConfig.tlsConfig()
		if tlsCfg == nil {
			tlsCfg = d.TLSConfig
		}
		// TLS towards the proxy is part of tunnel establishment, so a
		// failure here is a Connect error, not an upgrade error.
		upgraded, err := d.upgrade(ctx, conn, proxy.Host, tlsCfg, errs.Connect)
		if err != nil {
			return nil, err
		}
		conn = upgraded
	}

	addr, port := remote.Hostname(), remote.Port()
	if port == "" {
		port = schemes[remote.Scheme]
	}
	if d.ProxyConfig.resolveLocally() {
		dnsCfg := d.ProxyConfig.ResolveConfig.Merge(d.ResolveConfig)
		if res, ok := dnsCfg.StaticHosts[addr]; ok {
			addr = res
		} else {
			ips, err := d.lookup(ctx, dnsCfg, addr)
			if err != nil || len(ips) == 0 {
				conn.Close()
				return nil, errs.New(errs.Connect, err)
			}
			addr = ips[rand.Intn(len(ips))].String()
		}
	}

	if err := establishTunnel(ctx, conn, net.JoinHostPort(addr, port), proxy); err != nil {
		conn.Close()
		return nil, err
	}
	d.logger().Debug("proxy tunnel established",
		zap.String("proxy", proxy.hostPort()),
		zap.String("target", net.JoinHostPort(addr, port)))
	return conn, nil
}

func (c *ProxyConfig) tlsConfig() *tls.Config {
	if c == nil {
		return nil
	}
	return c.TLSConfig
}

func (c *ProxyConfig) resolveLocally() bool {
	return c != nil && c.ResolveLocally
}

// establishTunnel negotiates a byte-transparent relay to target through an
// already-connected proxy socket. The proxy's reply head is consumed fully
// before returning, so no handshake or request byte is ever written ahead
// of the tunnel verdict.
func establishTunnel(ctx context.Context, conn net.Conn, target string, proxy *Proxy) error {
	if err := errs.FromContext(ctx); err != nil {
		return err
	}
	var req strings.Builder
	req.WriteString("CONNECT ")
	req.WriteString(target)
	req.WriteString(" HTTP/1.1\r\nHost: ")
	req.WriteString(target)
	req.WriteString("\r\n")
	if proxy.User != nil {
		auth := base64.StdEncoding.EncodeToString([]byte(proxy.User.String()))
		req.WriteString("Proxy-Authorization: Basic ")
		req.WriteString(auth)
		req.WriteString("\r\n")
	}
	req.WriteString("\r\n")
	if _, err := conn.Write([]byte(req.String())); err != nil {
		return errs.New(errs.Connect, err)
	}

	status, err := readTunnelReply(conn)
	if err != nil {
		return errs.New(errs.Connect, err)
	}
	if code := tunnelStatusCode(status); code < 200 || code > 299 {
		return errs.Msg(errs.Connect, status)
	}
	return nil
}

// readTunnelReply reads the proxy's response head byte-wise, so not a
// single tunneled byte past the terminating blank line is consumed.
// The first line is returned; header lines are drained and dropped.
func readTunnelReply(conn net.Conn) (string, error) {
	br := bufio.NewReader(onebyteReader{conn})
	var statusLine string
	for read := 0; ; {
		line, err := br.ReadString('\n')
		read += len(line)
		if err != nil {
			return "", err
		}
		if read > 16<<10 {
			return "", errors.New("proxy response head too large")
		}
		line = strings.TrimRight(line, "\r\n")
		if statusLine == "" {
			statusLine = line
			continue
		}
		if line == "" {
			return statusLine, nil
		}
	}
}

// tunnelStatusCode extracts the leading numeric token of a status line,
// e.g. 200 from "HTTP/1.1 200 Connection Established". Returns 0 when the
// line is malformed.
func tunnelStatusCode(statusLine string) int {
	fields := strings.Fields(statusLine)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

type onebyteReader struct{ conn net.Conn }

func (r onebyteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return r.conn.Read(p)
}
