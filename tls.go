package httpc

import (
	"github.com/nettide/httpc/internal/tlsx"
)

// The handshake state machine and verified stream are exposed for callers
// driving connections cooperatively: a would-block outcome hands ownership
// of the suspended handshake back to the scheduler, which waits for socket
// readiness and resumes. Blocking callers never see these; the core dialer
// absorbs suspension internally.

type HandshakeState = tlsx.State

const (
	HandshakeUnstarted   = tlsx.Unstarted
	HandshakeInProgress  = tlsx.InProgress
	HandshakeEstablished = tlsx.Established
	HandshakeFailed      = tlsx.Failed
)

type HandshakeWant = tlsx.Want

const (
	WantNone  = tlsx.WantNone
	WantRead  = tlsx.WantRead
	WantWrite = tlsx.WantWrite
)

type HandshakeOutcome = tlsx.Outcome
type MidHandshake = tlsx.MidHandshake

// BeginHandshake configures hostname/IP verification for expectedHost and
// performs the first handshake step.
var BeginHandshake = tlsx.Begin

type VerifiedStream = tlsx.Stream
type VerifyResult = tlsx.VerifyResult

type TLSEngine = tlsx.Engine
type TLSSession = tlsx.Session
type StdTLSEngine = tlsx.StdEngine

var (
	ErrWantRead  = tlsx.ErrWantRead
	ErrWantWrite = tlsx.ErrWantWrite
)
