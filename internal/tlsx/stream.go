package tlsx

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// Read/write suspension signals. The caller waits for socket readiness in
// the indicated direction and retries with the unchanged buffer.
var (
	ErrWantRead  = errors.New("tlsx: operation would block, want read")
	ErrWantWrite = errors.New("tlsx: operation would block, want write")
)

// Stream is a verified connection: the transport socket plus an established
// session, with the verification snapshot fixed at handshake completion.
// It implements net.Conn. The session is released exactly once on Close.
type Stream struct {
	conn   net.Conn
	sess   Session
	verify VerifyResult
	closed uint32
}

func newStream(sess Session, conn net.Conn) *Stream {
	return &Stream{conn: conn, sess: sess, verify: sess.VerifyResult()}
}

// VerifyResult returns the snapshot captured when the handshake completed.
// It is never recomputed.
func (s *Stream) VerifyResult() VerifyResult { return s.verify }

// Raw exposes the transport socket for readiness waiting only.
func (s *Stream) Raw() net.Conn { return s.conn }

func (s *Stream) Read(p []byte) (int, error) {
	n, code := s.sess.Read(p)
	return s.translate(n, code, "read")
}

func (s *Stream) Write(p []byte) (int, error) {
	n, code := s.sess.Write(p)
	return s.translate(n, code, "write")
}

func (s *Stream) translate(n int, code Code, op string) (int, error) {
	if n >= 0 && code == CodeNone {
		return n, nil
	}
	switch code {
	case CodeWantRead:
		return 0, ErrWantRead
	case CodeWantWrite:
		return 0, ErrWantWrite
	case CodeZeroReturn:
		return 0, io.EOF
	default:
		if cause := s.sess.FailureCause(); cause != nil {
			return 0, cause
		}
		return 0, fmt.Errorf("tlsx: %s failed (%v)", op, code)
	}
}

// Close releases the session, then the socket. Idempotent.
func (s *Stream) Close() error {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return nil
	}
	err := s.sess.Close()
	if cerr := s.conn.Close(); err == nil && !errors.Is(cerr, net.ErrClosed) {
		err = cerr
	}
	return err
}

func (s *Stream) LocalAddr() net.Addr                { return s.conn.LocalAddr() }
func (s *Stream) RemoteAddr() net.Addr               { return s.conn.RemoteAddr() }
func (s *Stream) SetDeadline(t time.Time) error      { return s.conn.SetDeadline(t) }
func (s *Stream) SetReadDeadline(t time.Time) error  { return s.conn.SetReadDeadline(t) }
func (s *Stream) SetWriteDeadline(t time.Time) error { return s.conn.SetWriteDeadline(t) }
