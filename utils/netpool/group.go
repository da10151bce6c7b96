package netpool

import (
	"context"
	"net"
	"sync"
)

// PoolGroup keys pools by target origin. Bookkeeping is mutex-protected;
// the lock is never held across dialing or I/O.
type PoolGroup struct {
	sync.RWMutex
	pools map[string]*Pool

	maxConnsPerHost, maxIdlePerHost uint
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint) *PoolGroup {
	return &PoolGroup{
		pools:           map[string]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
	}
}

// NewEmpty creates a group with the same limits and no pooled connections.
func (g *PoolGroup) NewEmpty() *PoolGroup {
	if g == nil {
		return nil
	}
	return NewGroup(g.maxConnsPerHost, g.maxIdlePerHost)
}

func (g *PoolGroup) Connect(ctx context.Context, key string, fresh bool, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p.Connect(ctx, fresh, dial)
	}
	g.Lock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost)
		g.pools[key] = p
	}
	g.Unlock()
	return p.Connect(ctx, fresh, dial)
}
