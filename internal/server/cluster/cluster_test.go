package cluster

import (
	"testing"

	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addrs = []string{"localhost:8001", "localhost:8002", "localhost:8003"}

func TestNewMembership(t *testing.T) {
	m, err := NewMembership(2, addrs)
	require.NoError(t, err)

	assert.Equal(t, Node{ID: 2, Address: "localhost:8002"}, m.Self())
	assert.Equal(t, 3, m.Size())
	assert.Equal(t, 2, m.Majority())
	assert.Equal(t, []Node{{1, "localhost:8001"}, {3, "localhost:8003"}}, m.Peers())
	assert.Equal(t, []Node{{1, "localhost:8001"}}, m.HigherPriority())
	assert.Equal(t, addrs, m.Addresses())

	n, ok := m.Node(3)
	require.True(t, ok)
	assert.Equal(t, "localhost:8003", n.Address)
	_, ok = m.Node(0)
	assert.False(t, ok)
}

func TestNewMembership_Invalid(t *testing.T) {
	_, err := NewMembership(1, nil)
	require.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = NewMembership(4, addrs)
	require.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = NewMembership(1, []string{"a:1", "a:1"})
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestMajority(t *testing.T) {
	for n, want := range map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 3} {
		assert.Equalf(t, want, Majority(n), "n=%d", n)
	}
}

func TestPeerTable_DownIsTerminalUntilReset(t *testing.T) {
	m, err := NewMembership(1, addrs)
	require.NoError(t, err)
	pt := NewPeerTable(m.Peers())
	assert.Equal(t, 1, pt.Incarnation())
	assert.Len(t, pt.Reachable(), 2)

	pt.Observe(2, false)
	assert.Equal(t, PeerUnreachable, pt.State(2))
	pt.Observe(2, true)
	assert.Equal(t, PeerReachable, pt.State(2))

	pt.MarkDown(3)
	pt.Observe(3, true)
	assert.Equal(t, PeerDown, pt.State(3), "a probe never revives a down peer")
	assert.Equal(t, []Node{{2, "localhost:8002"}}, pt.Reachable())

	pt.Reset()
	assert.Equal(t, 2, pt.Incarnation())
	assert.Equal(t, PeerReachable, pt.State(3))
	assert.Equal(t, PeerDown, pt.State(99))
	assert.Equal(t, "down", PeerDown.String())
}

func TestPool_ReusesConnections(t *testing.T) {
	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })

	a, err := p.Conn("localhost:8001")
	require.NoError(t, err)
	b, err := p.Conn("localhost:8001")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = p.Replication("localhost:8002")
	require.NoError(t, err)
	_, err = p.Health("localhost:8002")
	require.NoError(t, err)

	require.NoError(t, p.Close())
}
