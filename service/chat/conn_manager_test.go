package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linker/tools/errs"
)

func TestConnManagerAddRemove(t *testing.T) {
	m := NewConnManager(ManagerConf{})
	defer m.Close()

	a := NewClient("a", nil, 4, 4)
	b := NewClient("b", nil, 4, 4)
	require.NoError(t, m.Add(a))
	require.NoError(t, m.Add(b))
	assert.True(t, errs.ErrArgs.Is(m.Add(a)))
	assert.Equal(t, 2, m.Len())

	assert.ElementsMatch(t, []*Client{a, b}, m.Snapshot())

	assert.True(t, m.Remove("a"))
	assert.False(t, m.Remove("a"))
	assert.Equal(t, 1, m.Len())
	assert.False(t, a.Closed(), "Remove must not close")
}

func TestSweepClosesOnlyStaleUnauthenticated(t *testing.T) {
	start := time.Unix(1000, 0)
	m := &ConnManager{
		byConn: map[string]*connEntry{},
		conf:   ManagerConf{UnauthTTL: 30 * time.Second, Clock: func() time.Time { return start }},
		stopCh: make(chan struct{}),
	}

	stale := NewClient("stale", nil, 4, 4)
	authed := NewClient("authed", nil, 4, 4)
	require.NoError(t, m.Add(stale))
	require.NoError(t, m.Add(authed))
	m.MarkAuthorized("authed")

	assert.Empty(t, m.sweepOnce(start.Add(10*time.Second)))

	expired := m.sweepOnce(start.Add(31 * time.Second))
	require.Len(t, expired, 1)
	assert.Equal(t, "stale", expired[0].ID)
	assert.True(t, stale.Closed())
	assert.False(t, authed.Closed())
}

func TestConnManagerCloseClosesClients(t *testing.T) {
	m := NewConnManager(ManagerConf{UnauthTTL: time.Hour})
	a := NewClient("a", nil, 4, 4)
	require.NoError(t, m.Add(a))
	m.Close()
	m.Close()
	assert.True(t, a.Closed())
}
