package chat

import (
	"sync"
	"time"

	"linker/tools/errs"
)

type ManagerConf struct {
	UnauthTTL  time.Duration    // close connections that never authenticate; <=0 disables
	SweepEvery time.Duration    // sweep period, default UnauthTTL/4
	Clock      func() time.Time // injectable for tests; nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.SweepEvery <= 0 && c.UnauthTTL > 0 {
		c.SweepEvery = c.UnauthTTL / 4
		if c.SweepEvery < time.Second {
			c.SweepEvery = time.Second
		}
	}
}

type connEntry struct {
	client     *Client
	authorized bool
	createdAt  time.Time
}

// ConnManager is the set of live connections. Broadcasts go to Snapshot(),
// so unauthenticated connections receive them too.
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*connEntry

	conf     ManagerConf
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewConnManager(conf ManagerConf) *ConnManager {
	conf.norm()
	m := &ConnManager{
		byConn: make(map[string]*connEntry),
		conf:   conf,
		stopCh: make(chan struct{}),
	}
	if conf.UnauthTTL > 0 {
		go m.sweeper()
	}
	return m
}

// Add registers a new, unauthenticated client.
func (m *ConnManager) Add(c *Client) error {
	if c == nil || c.ID == "" {
		return errs.ErrArgs.WrapMsg("client/id empty")
	}
	now := m.conf.Clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byConn[c.ID]; exists {
		return errs.ErrArgs.WrapMsg("conn id exists", "conn", c.ID)
	}
	m.byConn[c.ID] = &connEntry{client: c, createdAt: now}
	return nil
}

// Remove drops the client and reports whether it was present. It does not
// close the client.
func (m *ConnManager) Remove(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byConn[connID]; !ok {
		return false
	}
	delete(m.byConn, connID)
	return true
}

// MarkAuthorized exempts the connection from the unauthenticated sweep.
func (m *ConnManager) MarkAuthorized(connID string) {
	m.mu.Lock()
	if e, ok := m.byConn[connID]; ok {
		e.authorized = true
	}
	m.mu.Unlock()
}

// Snapshot returns the clients live at the time of the call.
func (m *ConnManager) Snapshot() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.byConn))
	for _, e := range m.byConn {
		out = append(out, e.client)
	}
	return out
}

func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byConn)
}

// Close stops the sweeper and closes every client. Their read loops then
// run the normal disconnect path.
func (m *ConnManager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	for _, c := range m.Snapshot() {
		c.Close()
	}
}

func (m *ConnManager) sweeper() {
	t := time.NewTicker(m.conf.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-t.C:
			m.sweepOnce(now)
		}
	}
}

// sweepOnce closes unauthenticated clients older than UnauthTTL. Entries
// stay in the map; the owning read loop removes them on its way out.
func (m *ConnManager) sweepOnce(now time.Time) []*Client {
	if m.conf.UnauthTTL <= 0 {
		return nil
	}
	var expired []*Client
	m.mu.RLock()
	for _, e := range m.byConn {
		if !e.authorized && now.Sub(e.createdAt) > m.conf.UnauthTTL {
			expired = append(expired, e.client)
		}
	}
	m.mu.RUnlock()

	// close outside the lock
	for _, c := range expired {
		c.Close()
	}
	return expired
}
