package netpool

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"
)

type conn struct {
	conn     net.Conn
	p        *Pool
	isClosed uint32
	reused   bool
	lastIdle time.Time
}

func (c *conn) Available() bool {
	return atomic.LoadUint32(&c.isClosed) == 0
}

func (c *conn) Reused() bool { return c.reused }

func (c *conn) Raw() net.Conn { return c.conn }

func (c *conn) Write(p []byte) (n int, err error) {
	n, err = c.conn.Write(p)
	if err != nil && !isTemporary(err) {
		c.Close()
	}
	return
}

func (c *conn) Read(p []byte) (n int, err error) {
	n, err = c.conn.Read(p)
	if err != nil && err != io.EOF && !isTemporary(err) {
		c.Close()
	}
	return
}

// Close evicts the connection and frees its pool ticket. A connection that
// errored is never returned to the idle set.
func (c *conn) Close() error {
	if !atomic.CompareAndSwapUint32(&c.isClosed, 0, 1) {
		return nil
	}
	err := c.conn.Close()
	<-c.p.connTicket
	return err
}

func (c *conn) Release() {
	if !c.Available() {
		return
	}
	c.lastIdle = time.Now()
	select {
	case c.p.idleTicket <- c:
	default: // idle set full
		c.Close()
	}
}

func isTemporary(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
