package advertiser

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/objstore"
	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/wire"
)

type fakeConn struct {
	id          string
	established bool
	network     string
	invs        [][]object.Vector
	addrs       [][]wire.NetAddr
}

func (f *fakeConn) ID() string                    { return f.id }
func (f *fakeConn) Status() string                { return "fully_established" }
func (f *fakeConn) IsFullyEstablished() bool       { return f.established }
func (f *fakeConn) Network() string                { return f.network }
func (f *fakeConn) RemoteHost() string             { return "127.0.0.1" }
func (f *fakeConn) RemotePort() uint16             { return 8444 }
func (f *fakeConn) Services() uint64               { return 1 }
func (f *fakeConn) Inbound() bool                  { return false }
func (f *fakeConn) Close()                         {}
func (f *fakeConn) QueueInv(v []object.Vector)      { f.invs = append(f.invs, v) }
func (f *fakeConn) QueueAddr(a []wire.NetAddr)      { f.addrs = append(f.addrs, a) }

func newTestNode(t *testing.T) *node.Node {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	n := node.New(node.Config{}, objstore.New(), addrpool.New(), logger.Sugar(), [8]byte{1})
	n.Clock = clock.NewMock()
	return n
}

func TestAdvertiserTickFansOutToEstablishedPeersOnly(t *testing.T) {
	n := newTestNode(t)
	established := &fakeConn{id: "a", established: true, network: "ip"}
	pending := &fakeConn{id: "b", established: false, network: "ip"}
	n.Connections.Add(established)
	n.Connections.Add(pending)

	n.Advertise.EnqueueVector(object.Vector{1})
	n.Advertise.EnqueueAddr("1.2.3.4:8444", wire.NetAddr{Port: 8444})

	New(n).tick()

	assert.Len(t, established.invs, 1)
	assert.Len(t, established.addrs, 1)
	assert.Nil(t, pending.invs)
	assert.Nil(t, pending.addrs)
}

func TestAdvertiserTickSkipsI2PForAddrBurst(t *testing.T) {
	n := newTestNode(t)
	i2pConn := &fakeConn{id: "c", established: true, network: "i2p"}
	n.Connections.Add(i2pConn)

	n.Advertise.EnqueueAddr("dest", wire.NetAddr{})
	New(n).tick()

	assert.Nil(t, i2pConn.addrs)
}

func TestAdvertiserTickNoopWhenQueuesEmpty(t *testing.T) {
	n := newTestNode(t)
	c := &fakeConn{id: "a", established: true, network: "ip"}
	n.Connections.Add(c)

	New(n).tick()

	assert.Nil(t, c.invs)
	assert.Nil(t, c.addrs)
}
