package tlsx

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
)

// StdEngine adapts crypto/tls to the Session surface. It is the blocking
// profile of the engine boundary: crypto/tls cannot suspend a handshake
// mid-flight, so Connect either completes or fails terminally in one step.
// Post-handshake reads and writes do translate deadline expiry into want
// codes, since crypto/tls keeps the connection usable across those.
type StdEngine struct {
	// Config is cloned per session. ServerName is overwritten by the
	// verification target; leave it empty.
	Config *tls.Config
}

func (e *StdEngine) NewSession(conn net.Conn) (Session, error) {
	cfg := e.Config.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	return &stdSession{conn: conn, cfg: cfg}, nil
}

type stdSession struct {
	conn net.Conn
	cfg  *tls.Config
	tc   *tls.Conn

	verifyIP   netip.Addr
	verifyHost string

	verify  VerifyResult
	failure error

	closeOnce sync.Once
	closeErr  error
}

func (s *stdSession) SetVerifyHost(host string) error {
	s.verifyHost = host
	s.cfg.ServerName = host
	return nil
}

func (s *stdSession) SetVerifyIP(ip netip.Addr) error {
	s.verifyIP = ip
	s.cfg.ServerName = ip.String()
	return nil
}

func (s *stdSession) Connect() (int, Code) {
	if s.tc == nil {
		s.tc = tls.Client(s.conn, s.cfg)
	}
	if err := s.tc.Handshake(); err != nil {
		s.failure = err
		return 0, classifyTLSError(err)
	}
	s.captureVerify()
	return 1, CodeNone
}

func (s *stdSession) captureVerify() {
	cs := s.tc.ConnectionState()
	s.verify = VerifyResult{
		ChainOK: len(cs.VerifiedChains) > 0,
		Detail:  tls.VersionName(cs.Version) + ", " + tls.CipherSuiteName(cs.CipherSuite),
	}
	if len(cs.PeerCertificates) == 0 {
		return
	}
	leaf := cs.PeerCertificates[0]
	s.verify.PeerNames = leaf.DNSNames
	if s.verifyIP.IsValid() {
		s.verify.HostnameMatched = leafMatchesIP(leaf, s.verifyIP)
	} else {
		s.verify.HostnameMatched = leafMatchesHost(leaf, s.verifyHost)
	}
}

func (s *stdSession) Read(p []byte) (int, Code) {
	n, err := s.tc.Read(p)
	switch {
	case err == nil:
		return n, CodeNone
	case errors.Is(err, io.EOF):
		return n, CodeZeroReturn
	case isTimeout(err):
		return n, CodeWantRead
	default:
		s.failure = err
		return n, classifyTLSError(err)
	}
}

func (s *stdSession) Write(p []byte) (int, Code) {
	n, err := s.tc.Write(p)
	switch {
	case err == nil:
		return n, CodeNone
	case isTimeout(err):
		return n, CodeWantWrite
	default:
		s.failure = err
		return n, classifyTLSError(err)
	}
}

func (s *stdSession) VerifyResult() VerifyResult { return s.verify }

func (s *stdSession) FailureCause() error { return s.failure }

func (s *stdSession) Close() error {
	s.closeOnce.Do(func() {
		if s.tc != nil {
			s.closeErr = s.tc.Close()
		}
	})
	return s.closeErr
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func classifyTLSError(err error) Code {
	var (
		certInvalid  x509.CertificateInvalidError
		hostname     x509.HostnameError
		unknownAuth  x509.UnknownAuthorityError
		recordHeader tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &certInvalid), errors.As(err, &hostname), errors.As(err, &unknownAuth):
		return CodeVerify
	case errors.As(err, &recordHeader):
		return CodeProtocol
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return CodeSyscall
	default:
		var ne net.Error
		if errors.As(err, &ne) {
			return CodeSyscall
		}
		return CodeProtocol
	}
}
