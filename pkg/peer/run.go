package peer

import (
	"sync"
	"time"

	"github.com/bmrelay/relaynode/pkg/wire"
	"github.com/bmrelay/relaynode/pkg/wire/payload"
)

// Run drives the connection to completion: handshake, steady-state
// loop, and disconnect. It registers the connection in the node's
// connection set on entry and removes it on exit, so callers only need
// to `go c.Run()` after constructing a Connection.
func (c *Connection) Run() {
	c.n.Connections.Add(c)
	defer c.n.Connections.Remove(c.id)

	c.log.Infow("peer: connection established", "network", c.network, "inbound", c.inbound)

	if err := c.runHandshake(); err != nil {
		c.log.Debugw("peer: handshake failed", "error", err)
		c.setStatus(StatusDisconnecting)
		c.closeSocket()
		c.setStatus(StatusDisconnected)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.readLoop() }()
	go func() { defer wg.Done(); c.tickLoop() }()
	c.writeLoop()
	wg.Wait()

	c.setStatus(StatusDisconnected)
	c.log.Infow("peer: disconnected", "network", c.network)
}

// runHandshake performs the whole pre-steady-state dance on a single
// goroutine that the caller waits on (closing the socket if
// preHandshakeTimeout passes first), with no other goroutine yet reading
// or writing c.conn: the
// version exchange (plaintext), the conditional session upgrade, and
// the verack exchange. Only once this returns does Run start the
// concurrent read/write/tick loops, so there is never a second goroutine
// racing the raw conn during the session upgrade.
func (c *Connection) runHandshake() error {
	done := make(chan error, 1)
	go func() { done <- c.handshakeBody() }()

	select {
	case err := <-done:
		return err
	case <-time.After(preHandshakeTimeout):
		c.closeSocket()
		<-done
		return ErrTimeout
	}
}

func (c *Connection) handshakeBody() error {
	if !c.inbound {
		if err := c.sendVersionRaw(); err != nil {
			return err
		}
	}

	var gotVersion, gotVerAck, sentVerAck bool
	for !(gotVerAck && sentVerAck) {
		h, body, err := wire.ReadMessage(c.conn)
		if err != nil {
			return err
		}
		switch h.Command {
		case wire.CmdVersion:
			if gotVersion {
				return ErrProtocolViolation
			}
			gotVersion = true
			if err := c.onVersion(body); err != nil {
				return err
			}
			if c.inbound {
				if err := c.sendVersionRaw(); err != nil {
					return err
				}
			}
			if err := c.maybeUpgradeTransportRaw(); err != nil {
				return err
			}
			verack, err := payload.Encode(payload.VerAck{})
			if err != nil {
				return err
			}
			if _, err := c.conn.Write(verack); err != nil {
				return err
			}
			sentVerAck = true
		case wire.CmdVerAck:
			gotVerAck = true
		default:
			// Anything else before the handshake completes is
			// ignored rather than treated as fatal, since a
			// reconnecting peer occasionally races a stray ping.
		}
		if gotVerAck && !gotVersion {
			return ErrProtocolViolation
		}
	}

	c.mu.Lock()
	c.verackSent = true
	c.verackReceived = true
	c.mu.Unlock()

	c.registerPeerFromVersion()
	c.beginSteadyState()
	return nil
}

// beginSteadyState queues the post-handshake burst and flips status, run
// once the handshake goroutine has exclusive use of c.conn one last time
// before the steady-state loops take over.
func (c *Connection) beginSteadyState() {
	if addr := c.buildAddrBurst(); addr != nil {
		if _, err := c.conn.Write(addr); err != nil {
			return
		}
	}
	for _, msg := range c.buildInvBurst() {
		if _, err := c.conn.Write(msg); err != nil {
			return
		}
	}
	c.mu.Lock()
	c.lastTx = c.n.Clock.Now()
	c.mu.Unlock()
	c.setStatus(StatusFullyEstablished)
	c.log.Infow("peer: fully established", "network", c.network, "peer", c.remoteAddrString())
}

// readLoop blocks on framed message reads, dispatching each one in
// arrival order. Any malformed byte sequence or protocol violation
// terminates only this connection (K1/K2, §7).
func (c *Connection) readLoop() {
	for {
		h, body, err := wire.ReadMessage(c.conn)
		if err != nil {
			if c.Status() != string(StatusDisconnecting) && c.Status() != string(StatusDisconnected) {
				c.log.Debugw("peer: read error", "error", err)
			}
			c.setStatus(StatusDisconnecting)
			c.closeSocket()
			return
		}
		c.mu.Lock()
		c.lastRx = c.n.Clock.Now()
		c.mu.Unlock()

		if err := c.dispatch(h.Command, body); err != nil {
			c.log.Debugw("peer: protocol error", "command", h.Command, "error", err)
			c.setStatus(StatusDisconnecting)
			c.closeSocket()
			return
		}
		if c.Status() == string(StatusDisconnecting) {
			c.closeSocket()
			return
		}
	}
}

// writeLoop drains the outbound channel in FIFO order until the
// connection is closed.
func (c *Connection) writeLoop() {
	for {
		select {
		case b, ok := <-c.outbound:
			if !ok {
				return
			}
			if _, err := c.conn.Write(b); err != nil {
				c.log.Debugw("peer: write error", "error", err)
				c.setStatus(StatusDisconnecting)
				c.closeSocket()
				return
			}
			c.mu.Lock()
			c.lastTx = c.n.Clock.Now()
			c.mu.Unlock()
		case <-c.closed:
			return
		}
	}
}

// tickLoop is the steady-state driver from §4.3.3/§4.3.4/§4.3.5: object
// fetch pacing and liveness checks, run every 200ms.
func (c *Connection) tickLoop() {
	ticker := c.n.Clock.Ticker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			if c.checkLiveness() {
				c.closeSocket()
				return
			}
			if c.IsFullyEstablished() {
				c.requestObjects()
				c.sendObjects()
			}
		}
	}
}

// checkLiveness applies the §4.3.5 timers and returns true once the
// connection has moved to disconnecting and the socket should close.
func (c *Connection) checkLiveness() bool {
	if c.n.ShuttingDown() {
		c.setStatus(StatusDisconnecting)
		return true
	}

	now := c.n.Clock.Now()
	c.mu.Lock()
	lastRx, lastTx := c.lastRx, c.lastTx
	c.mu.Unlock()

	if now.Sub(lastRx) > idleTimeout {
		c.log.Debugw("peer: idle timeout")
		c.setStatus(StatusDisconnecting)
		return true
	}
	if now.Sub(lastTx) > pongAfterIdleSend {
		if msg, err := payload.Encode(payload.NewPong(nil)); err == nil {
			c.send(msg)
		}
	}
	return c.Status() == string(StatusDisconnecting)
}
