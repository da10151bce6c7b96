package tlsx

import (
	"errors"
	"fmt"
	"net"
)

// State of a handshake drive. Established and Failed are terminal.
type State int

const (
	Unstarted State = iota
	InProgress
	Established
	Failed
)

// Want is the socket readiness a suspended handshake waits for.
type Want int

const (
	WantNone Want = iota
	WantRead
	WantWrite
)

// ErrResumed is the usage-error cause returned when Resume is called on a
// handshake that already reached a terminal state.
var ErrResumed = errors.New("tlsx: resume on a terminated handshake")

// Outcome is the tagged result of one handshake drive. Exactly one of
// Stream, Mid or Cause is populated, selected by State:
//
//	Established → Stream
//	InProgress  → Mid (and Want)
//	Failed      → Cause
//
// An InProgress outcome retains ownership of the in-progress session and
// socket through Mid until resumed or abandoned.
type Outcome struct {
	State  State
	Want   Want
	Stream *Stream
	Mid    *MidHandshake
	Cause  error
}

// MidHandshake is a suspended handshake. It must be driven from a single
// goroutine; the engine's per-session state is not safe for concurrent
// mutation.
type MidHandshake struct {
	sess Session
	conn net.Conn
	want Want
	done bool
}

// Conn exposes the socket for readiness waiting. The caller must not read
// from or write to it.
func (m *MidHandshake) Conn() net.Conn { return m.conn }

// Want reports the direction the suspended handshake is waiting on.
func (m *MidHandshake) Want() Want { return m.want }

// Abandon releases the session and socket of a handshake that will not be
// resumed. Safe to call after a terminal outcome.
func (m *MidHandshake) Abandon() {
	if !m.done {
		m.done = true
		m.sess.Close()
	}
	m.conn.Close()
}

// Begin configures the verification target for expectedHost on sess and
// performs one handshake step over conn. On a Failed outcome the session is
// already released; the socket stays with the caller.
func Begin(sess Session, conn net.Conn, expectedHost string) Outcome {
	if err := setVerifyTarget(sess, expectedHost); err != nil {
		sess.Close()
		return Outcome{State: Failed, Cause: fmt.Errorf("setting verification target: %w", err)}
	}
	m := &MidHandshake{sess: sess, conn: conn}
	return m.step()
}

// Resume re-invokes the engine step of a previously suspended handshake.
// The socket must be ready in the direction the last outcome asked for.
// Calling Resume after Established or Failed is a usage error and yields a
// Failed outcome carrying ErrResumed.
func (m *MidHandshake) Resume() Outcome {
	if m.done {
		return Outcome{State: Failed, Cause: ErrResumed}
	}
	return m.step()
}

func (m *MidHandshake) step() Outcome {
	ret, code := m.sess.Connect()
	if ret > 0 {
		m.done = true
		return Outcome{State: Established, Stream: newStream(m.sess, m.conn)}
	}
	switch code {
	case CodeWantRead:
		m.want = WantRead
		return Outcome{State: InProgress, Want: WantRead, Mid: m}
	case CodeWantWrite:
		m.want = WantWrite
		return Outcome{State: InProgress, Want: WantWrite, Mid: m}
	default:
		m.done = true
		cause := m.sess.FailureCause()
		if cause == nil {
			cause = fmt.Errorf("handshake failed (%v)", code)
		}
		m.sess.Close()
		return Outcome{State: Failed, Cause: cause}
	}
}
