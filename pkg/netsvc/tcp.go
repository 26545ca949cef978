// Package netsvc owns the node's transport endpoints: for plain TCP (this
// file) an accept loop for inbound connections and a dial helper for
// outbound ones, and their I2P counterparts in i2p.go. It is grounded on
// `original_source/minode/listener.py`'s poll-with-timeout accept loop,
// translated into a blocking net.Listener accept loop that Serve ends by
// closing the listener when its context is canceled, and on the
// teacher's own pkg/network server dial/listen split.
package netsvc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/peer"
)

// DialTimeout bounds how long an outbound TCP dial may take.
const DialTimeout = 10 * time.Second

// Listener accepts inbound IP connections and hands each one to
// pkg/peer once the node's connection-limit gate allows it.
type Listener struct {
	n   *node.Node
	ln  net.Listener
	log *zap.SugaredLogger
}

// Listen binds host:port for both IPv4 and IPv6, matching the original's
// dual-stack sockets (it ran one Listener per address family; Go's
// net.Listen on "tcp" already dual-stacks when host is empty or a
// wildcard).
func Listen(n *node.Node, host string, port uint16) (*Listener, error) {
	addr := net.JoinHostPort(host, portString(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{n: n, ln: ln, log: n.Logger.With("component", "listener")}, nil
}

// Serve accepts connections until ctx is canceled or the node begins
// shutting down.
func (l *Listener) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.n.ShuttingDown() || ctx.Err() != nil {
				return
			}
			l.log.Warnw("netsvc: accept error", "error", err)
			continue
		}
		if l.n.Connections.Len() >= l.n.Config.ConnectionLimit {
			_ = conn.Close()
			continue
		}

		host, portStr, err := net.SplitHostPort(conn.RemoteAddr().String())
		if err != nil {
			_ = conn.Close()
			continue
		}
		l.log.Infow("netsvc: inbound connection", "remote", conn.RemoteAddr())

		c := peer.New(peer.Options{
			Node:    l.n,
			Conn:    conn,
			Network: "ip",
			Host:    host,
			Port:    parsePort(portStr),
			Inbound: true,
		})
		go c.Run()
	}
}

func (l *Listener) Close() error { return l.ln.Close() }

// Dial opens an outbound TCP connection to an IP peer and starts its
// Connection.
func Dial(ctx context.Context, n *node.Node, host string, port uint16) (*peer.Connection, error) {
	dialer := net.Dialer{Timeout: DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, portString(port)))
	if err != nil {
		return nil, err
	}
	c := peer.New(peer.Options{
		Node:    n,
		Conn:    conn,
		Network: "ip",
		Host:    host,
		Port:    port,
		Inbound: false,
	})
	return c, nil
}

func portString(p uint16) string {
	b := [5]byte{}
	i := len(b)
	if p == 0 {
		return "0"
	}
	for p > 0 {
		i--
		b[i] = byte('0' + p%10)
		p /= 10
	}
	return string(b[i:])
}

func parsePort(s string) uint16 {
	var p uint16
	for _, c := range s {
		if c < '0' || c > '9' {
			return p
		}
		p = p*10 + uint16(c-'0')
	}
	return p
}
