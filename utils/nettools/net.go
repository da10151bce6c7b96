// package nettools waits for socket readiness through the cheapest
// mechanism the platform offers. It is how blocking-mode callers absorb
// would-block signals: wait here, then retry the suspended operation.
package nettools

import (
	"context"
	"net"
	"syscall"
	"time"
)

// Direction of readiness to wait for.
type Direction int

const (
	Read Direction = iota
	Write
)

type Mode int

const (
	ModePoll Mode = iota
	ModeSelect
)

// waiters block for at most one slice and report whether the fd is ready.
var (
	supported = map[Mode]func(fd int, dir Direction, slice time.Duration) (bool, error){}
	picked    func(fd int, dir Direction, slice time.Duration) (bool, error)
)

func init() {
	for _, mode := range []Mode{ModePoll, ModeSelect} {
		if supported[mode] != nil {
			picked = supported[mode]
			break
		}
	}
}

// slice keeps single syscalls short so cancellation is observed promptly.
const slice = 50 * time.Millisecond

// WaitReady blocks until conn's socket is ready in the given direction or
// ctx is done, in which case the context error is returned. On platforms
// without a readiness primitive it degrades to a short sleep, letting the
// caller retry optimistically.
func WaitReady(ctx context.Context, conn net.Conn, dir Direction) error {
	rc := rawConnOf(conn)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rc == nil || picked == nil {
			time.Sleep(5 * time.Millisecond)
			return nil
		}
		var ready bool
		var werr error
		cerr := rc.Control(func(fd uintptr) {
			ready, werr = picked(int(fd), dir, slice)
		})
		if cerr != nil {
			return cerr
		}
		if werr != nil {
			return werr
		}
		if ready {
			return nil
		}
	}
}

// rawConnOf digs the raw socket out of wrapping conns. TLS streams and
// pooled conns expose their transport through NetConn/Raw.
func rawConnOf(raw net.Conn) syscall.RawConn {
	for {
		if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
			raw = t.NetConn()
			continue
		}
		if t, ok := raw.(interface{ Raw() net.Conn }); ok && t.Raw() != raw {
			raw = t.Raw()
			continue
		}
		break
	}
	if c, ok := raw.(syscall.Conn); ok {
		if rc, err := c.SyscallConn(); err == nil {
			return rc
		}
	}
	return nil
}
