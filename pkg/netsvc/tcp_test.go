package netsvc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/objstore"
	"github.com/bmrelay/relaynode/pkg/wire"
)

func TestPortStringRoundTripsParsePort(t *testing.T) {
	for _, p := range []uint16{0, 1, 80, 8444, 65535} {
		s := portString(p)
		assert.Equal(t, p, parsePort(s))
	}
}

func newTestNode(t *testing.T, connLimit int) *node.Node {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	return node.New(node.Config{ConnectionLimit: connLimit}, objstore.New(), addrpool.New(), log, [8]byte{})
}

func TestListenServeAcceptsUpToConnectionLimit(t *testing.T) {
	n := newTestNode(t, 1)
	ln, err := Listen(n, "127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.ln.Addr().String()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ln.Serve(ctx)

	n.Connections.Add(fakeConnAtLimit{})

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(buf)
	assert.Error(t, err, "connection over the limit should be closed by the listener")
}

type fakeConnAtLimit struct{}

func (fakeConnAtLimit) ID() string                          { return "over-limit" }
func (fakeConnAtLimit) Status() string                      { return "fully_established" }
func (fakeConnAtLimit) IsFullyEstablished() bool            { return true }
func (fakeConnAtLimit) Network() string                     { return "ip" }
func (fakeConnAtLimit) RemoteHost() string                  { return "203.0.113.9" }
func (fakeConnAtLimit) RemotePort() uint16                  { return 8444 }
func (fakeConnAtLimit) Services() uint64                    { return 1 }
func (fakeConnAtLimit) Inbound() bool                       { return false }
func (fakeConnAtLimit) QueueInv(vectors []object.Vector)    {}
func (fakeConnAtLimit) QueueAddr(addrs []wire.NetAddr)      {}
func (fakeConnAtLimit) Close()                              {}
