package netsvc

import (
	"context"

	"github.com/bmrelay/relaynode/pkg/i2p"
	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/peer"
)

// I2PListener repeatedly opens a STREAM ACCEPT socket against the
// node's I2P session and hands each inbound stream to pkg/peer,
// recreating the accept socket after every connection the way
// original_source/minode/i2p/listener.py does.
type I2PListener struct {
	n  *node.Node
	cl *i2p.Client
}

func NewI2PListener(n *node.Node, cl *i2p.Client) *I2PListener {
	return &I2PListener{n: n, cl: cl}
}

func (l *I2PListener) Serve(ctx context.Context) {
	for {
		if ctx.Err() != nil || l.n.ShuttingDown() {
			return
		}
		conn, destination, err := l.cl.AcceptOnce()
		if err != nil {
			l.n.Logger.Debugw("netsvc: i2p accept error", "error", err)
			continue
		}
		if l.n.Connections.Len() >= l.n.Config.ConnectionLimit {
			_ = conn.Close()
			continue
		}
		c := peer.New(peer.Options{
			Node:    l.n,
			Conn:    conn,
			Network: "i2p",
			Host:    destination,
			Inbound: true,
		})
		go c.Run()
	}
}

// DialI2P opens an outbound I2P stream to destination and starts its
// Connection.
func DialI2P(n *node.Node, cl *i2p.Client, destination string) (*peer.Connection, error) {
	conn, err := cl.Dial(destination)
	if err != nil {
		return nil, err
	}
	c := peer.New(peer.Options{
		Node:    n,
		Conn:    conn,
		Network: "i2p",
		Host:    destination,
		Inbound: false,
	})
	return c, nil
}
