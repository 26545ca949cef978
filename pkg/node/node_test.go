package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/objstore"
	"github.com/bmrelay/relaynode/pkg/wire"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	return New(Config{ListenPort: 8444}, objstore.New(), addrpool.New(), log, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
}

func TestShutdownIsIdempotentAndObservable(t *testing.T) {
	n := newTestNode(t)
	require.False(t, n.ShuttingDown())
	n.Shutdown()
	assert.True(t, n.ShuttingDown())
	n.Shutdown()
	assert.True(t, n.ShuttingDown())
}

func TestIsSelfNonce(t *testing.T) {
	n := newTestNode(t)
	assert.True(t, n.IsSelfNonce([8]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.False(t, n.IsSelfNonce([8]byte{9, 9, 9, 9, 9, 9, 9, 9}))
}

func TestAdvertiseQueuesDrainCollapsesDuplicatesAndEmpties(t *testing.T) {
	q := NewAdvertiseQueues()
	v := object.Vector{1}
	q.EnqueueVector(v)
	q.EnqueueVector(v)
	q.EnqueueAddr("peer-a", wire.NetAddr{Host: "198.51.100.4", Port: 8444})
	q.EnqueueAddr("peer-a", wire.NetAddr{Host: "198.51.100.4", Port: 8444})

	vectors := q.DrainVectors()
	addrs := q.DrainAddrs()
	assert.Len(t, vectors, 1)
	assert.Len(t, addrs, 1)

	assert.Empty(t, q.DrainVectors())
	assert.Empty(t, q.DrainAddrs())
}
