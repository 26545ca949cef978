package relaymgr

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/objstore"
	"github.com/bmrelay/relaynode/pkg/wire"
)

func newTestNode(t *testing.T) *node.Node {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	n := node.New(node.Config{OutgoingTarget: 8}, objstore.New(), addrpool.New(), logger.Sugar(), [8]byte{1})
	n.Clock = clock.NewMock()
	return n
}

func TestOutgoingCountCountsOnlyOutboundConnections(t *testing.T) {
	n := newTestNode(t)
	n.Connections.Add(&fakeConn{host: "a", inbound: false})
	n.Connections.Add(&fakeConn{host: "b", inbound: true})

	m := New(Options{Node: n})
	assert.Equal(t, 1, m.outgoingCount())
}

func TestSelectCandidatesSkipsAlreadyConnected(t *testing.T) {
	n := newTestNode(t)
	m := New(Options{Node: n})
	n.Connections.Add(&fakeConn{host: "10.0.0.1"})

	candidates := []addrpool.Addr{{Network: addrpool.IP, Host: "10.0.0.1", Port: 8444}, {Network: addrpool.IP, Host: "10.0.0.2", Port: 8444}}
	got := m.selectCandidates(candidates, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "10.0.0.2", got[0].Host)
}

func TestSelectCandidatesDedupsAcrossGroups(t *testing.T) {
	n := newTestNode(t)
	m := New(Options{Node: n})
	a := addrpool.Addr{Network: addrpool.IP, Host: "10.0.0.1", Port: 8444}
	got := m.selectCandidates([]addrpool.Addr{a}, []addrpool.Addr{a})
	assert.Len(t, got, 1)
}

func TestReapDialersDropsStaleEntries(t *testing.T) {
	n := newTestNode(t)
	m := New(Options{Node: n})
	now := n.Clock.Now()
	m.dialing["stale"] = now.Add(-dialerStaleAfter - time.Second)
	m.dialing["fresh"] = now

	m.reapDialers(now)

	assert.False(t, m.isDialing("stale"))
	assert.True(t, m.isDialing("fresh"))
}

type fakeConn struct {
	host    string
	inbound bool
}

func (f *fakeConn) ID() string              { return f.host }
func (f *fakeConn) Status() string          { return "fully_established" }
func (f *fakeConn) IsFullyEstablished() bool { return true }
func (f *fakeConn) Network() string         { return "ip" }
func (f *fakeConn) RemoteHost() string      { return f.host }
func (f *fakeConn) RemotePort() uint16      { return 8444 }
func (f *fakeConn) Services() uint64        { return 1 }
func (f *fakeConn) Inbound() bool           { return f.inbound }
func (f *fakeConn) Close()                       {}
func (f *fakeConn) QueueInv(v []object.Vector)   {}
func (f *fakeConn) QueueAddr(a []wire.NetAddr)   {}
