// package tlsx drives a native-style TLS engine from unconnected to an
// established, verified stream. The engine is reached only through the
// Session surface below: one handshake step, read, write, verification
// target and result. The package interprets the engine's sentinel codes;
// it does not implement the TLS protocol.
package tlsx

import (
	"net"
	"net/netip"
)

// Code explains a non-positive engine return. WantRead and WantWrite mean
// the step made no progress and must be retried with identical arguments
// once the socket is ready in that direction; everything else is terminal.
type Code int

const (
	// CodeNone accompanies a successful operation.
	CodeNone Code = iota
	// CodeWantRead suspends until the socket is readable.
	CodeWantRead
	// CodeWantWrite suspends until the socket is writable.
	CodeWantWrite
	// CodeZeroReturn is a clean close notify from the peer.
	CodeZeroReturn
	// CodeSyscall is a transport-level failure (reset, unexpected EOF).
	CodeSyscall
	// CodeProtocol is a TLS protocol violation.
	CodeProtocol
	// CodeVerify is a certificate validation failure.
	CodeVerify
)

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeWantRead:
		return "want read"
	case CodeWantWrite:
		return "want write"
	case CodeZeroReturn:
		return "zero return"
	case CodeSyscall:
		return "syscall"
	case CodeProtocol:
		return "protocol"
	case CodeVerify:
		return "verify"
	default:
		return "unknown"
	}
}

// VerifyResult is the verification snapshot fixed at handshake completion.
type VerifyResult struct {
	HostnameMatched bool
	ChainOK         bool
	PeerNames       []string // subject alternative names of the leaf, diagnostics only
	Detail          string
}

// Session is one connection's handle into the engine. It is exclusively
// owned by a single suspended handshake or a single Stream at a time and
// must never be touched from two goroutines concurrently. Close releases
// the engine-side state exactly once; further calls are no-ops.
type Session interface {
	// SetVerifyHost configures DNS-name verification for host, with
	// partial-wildcard matching disabled.
	SetVerifyHost(host string) error
	// SetVerifyIP configures IP-match verification.
	SetVerifyIP(ip netip.Addr) error

	// Connect performs one handshake step. A positive return means the
	// handshake advanced to completion; otherwise the Code decides between
	// suspension and terminal failure.
	Connect() (int, Code)
	// Read decrypts into p. A non-negative return is a byte count.
	Read(p []byte) (int, Code)
	// Write encrypts p. A non-negative return is a byte count.
	Write(p []byte) (int, Code)

	// VerifyResult reports the engine's verification state. Only meaningful
	// once the handshake completed or failed on validation.
	VerifyResult() VerifyResult
	// FailureCause describes the last terminal failure, if the engine can.
	FailureCause() error

	Close() error
}

// Engine creates per-connection sessions over an accepted transport socket.
type Engine interface {
	NewSession(conn net.Conn) (Session, error)
}
