package netpool

import (
	"context"
	"io"
	"net"
	"time"
)

// Conn is a pooled connection checked out to exactly one in-flight request
// at a time. No connection is handed out before its dial function returned
// successfully, i.e. before any handshake it performs is established.
type Conn interface {
	io.ReadWriteCloser
	// Release returns the connection to the idle set for reuse.
	// Only clean connections may be released; errored ones must be Closed.
	Release()
	// Reused reports whether the connection already served a request.
	Reused() bool
	Raw() net.Conn
}

type Pool struct {
	connTicket      chan struct{}
	idleTicket      chan *conn
	maxIdleDuration time.Duration
}

func NewPool(maxIdle, maxConn uint) *Pool {
	return &Pool{
		connTicket: make(chan struct{}, maxConn),
		idleTicket: make(chan *conn, maxIdle),
	}
}

// Connect hands out an idle connection or dials a new one, bounded by the
// pool's connection tickets. With fresh set, idle entries are discarded so
// the caller gets a newly established connection.
func (p *Pool) Connect(ctx context.Context, fresh bool, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	for {
		select {
		case c := <-p.idleTicket:
			if fresh || (p.maxIdleDuration != 0 && time.Since(c.lastIdle) > p.maxIdleDuration) {
				c.Close()
				continue
			}
			if c.Available() {
				c.reused = true
				return c, nil
			}
		default:
			select {
			case p.connTicket <- struct{}{}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			nc, err := dial(ctx)
			if err != nil {
				<-p.connTicket
				return nil, err
			}
			return &conn{conn: nc, p: p}, nil
		}
	}
}
