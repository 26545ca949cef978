package peer

import (
	"math/rand"
	"net"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/wire"
	"github.com/bmrelay/relaynode/pkg/wire/payload"
)

// services returns the bitfield this node advertises: always
// ServiceNode, plus ServiceSSL since pkg/transport implements the
// anonymous-ECDH session upgrade.
func (c *Connection) services() uint64 {
	return payload.ServiceNode | payload.ServiceSSL
}

// sendVersionRaw builds this node's Version message and writes it
// directly to the conn. It is only ever called from the single
// handshake goroutine, before the steady-state write loop exists, so a
// direct write (rather than queuing through c.send) cannot race the
// later, channel-driven sends. Per original_source/minode/connection.py,
// an I2P connection's Version carries a fixed placeholder remote
// address since I2P has no meaningful host:port pair.
func (c *Connection) sendVersionRaw() error {
	remoteHost, remotePort := c.host, c.port
	if c.network == "i2p" {
		remoteHost, remotePort = "127.0.0.1", 7656
	}
	localHost := c.n.Config.ListenHost
	if localHost == "" {
		localHost = "127.0.0.1"
	}

	v := &payload.Version{
		ProtocolVersion: payload.ProtocolVersion,
		Services:        c.services(),
		Timestamp:       uint64(c.n.Clock.Now().Unix()),
		Remote:          wire.NetAddrNoPrefix{Services: 0, Host: parseIP(remoteHost), Port: remotePort},
		Local:           wire.NetAddrNoPrefix{Services: c.services(), Host: parseIP(localHost), Port: c.n.Config.ListenPort},
		Nonce:           c.n.Nonce,
		UserAgent:       c.n.Config.UserAgent,
		Streams:         []uint32{payload.Stream},
	}
	msg, err := payload.Encode(v)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(msg)
	return err
}

func parseIP(s string) net.IP {
	ip := net.ParseIP(s)
	if ip == nil {
		return net.IPv4zero
	}
	return ip
}

// dispatch implements §4.3.3's steady-state message dispatch table. A
// repeated version or verack after the handshake has already completed
// is a protocol violation (K2).
func (c *Connection) dispatch(command string, body []byte) error {
	switch command {
	case wire.CmdVersion, wire.CmdVerAck:
		return ErrProtocolViolation
	case wire.CmdInv:
		return c.handleInv(body)
	case wire.CmdGetData:
		return c.handleGetData(body)
	case wire.CmdObject:
		return c.handleObject(body)
	case wire.CmdAddr:
		return c.handleAddr(body)
	case wire.CmdPing:
		pong, err := payload.Encode(payload.NewPong(nil))
		if err != nil {
			return err
		}
		c.send(pong)
		return nil
	case wire.CmdPong:
		return nil
	case wire.CmdError:
		c.log.Warnw("peer: remote error", "payload", string(body))
		return nil
	default:
		c.log.Debugw("peer: unknown command", "command", command)
		return nil
	}
}

// onVersion decodes and validates the remote's Version message, called
// once from the handshake goroutine.
func (c *Connection) onVersion(body []byte) error {
	v, err := payload.DecodeVersion(body)
	if err != nil {
		return err
	}
	if v.ProtocolVersion != payload.ProtocolVersion {
		return ErrProtocolViolation
	}
	if c.n.IsSelfNonce(v.Nonce) {
		c.log.Debugw("peer: self-connection detected")
		return ErrProtocolViolation
	}
	c.mu.Lock()
	c.remoteVersion = v
	c.mu.Unlock()
	return nil
}

// registerPeerFromVersion implements the addr-advertise and known-pool
// promotion rule once the handshake completes (§4.3.1): for IP, gossip
// the remote's NetAddr and add it to the known-IP pool; for I2P, add the
// destination to the known-I2P pool without gossiping it (§12a).
func (c *Connection) registerPeerFromVersion() {
	c.mu.Lock()
	v := c.remoteVersion
	c.mu.Unlock()
	if v == nil {
		return
	}

	if c.network == "i2p" {
		c.n.Pools.PromoteKnown(addrpool.Addr{Network: addrpool.I2P, Host: c.host, Services: v.Services})
		return
	}
	c.n.Pools.PromoteKnown(addrpool.Addr{Network: addrpool.IP, Host: c.host, Port: c.port, Services: v.Services})
	na := wire.NetAddr{
		Time:     uint64(c.n.Clock.Now().Unix()),
		Stream:   payload.Stream,
		Services: v.Services,
		Host:     parseIP(c.host),
		Port:     c.port,
	}
	c.n.Advertise.EnqueueAddr(c.host+":"+portStr(c.port), na)
}

func portStr(p uint16) string {
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

// maybeUpgradeTransportRaw negotiates the anonymous-ECDH session layer
// only for IP peers that both advertise NODE_SSL (services&2), per
// §4.3.1. It runs on the single handshake goroutine, directly on the
// raw conn, before any other goroutine has started reading or writing
// it. I2P already runs over an end-to-end encrypted tunnel, so no
// additional session layer is negotiated there.
func (c *Connection) maybeUpgradeTransportRaw() error {
	if c.network != "ip" {
		return nil
	}
	c.mu.Lock()
	remote := c.remoteVersion
	c.mu.Unlock()
	if remote == nil || remote.Services&payload.ServiceSSL == 0 || c.services()&payload.ServiceSSL == 0 {
		return nil
	}
	netConn, ok := c.conn.(net.Conn)
	if !ok {
		// Already a Conn that isn't a net.Conn (e.g. a bare io pipe in
		// a unit test that doesn't exercise the upgrade), nothing to do.
		return nil
	}
	session, err := upgradeSession(netConn, !c.inbound)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = session
	c.tlsUpgraded = true
	c.mu.Unlock()
	return nil
}

func (c *Connection) buildAddrBurst() []byte {
	addrs := c.collectAddrBurst()
	if len(addrs) == 0 {
		return nil
	}
	msg, err := payload.Encode(&payload.Addr{Addrs: addrs})
	if err != nil {
		c.log.Warnw("peer: failed to encode addr burst", "error", err)
		return nil
	}
	return msg
}

// collectAddrBurst implements §4.3.2's addr burst contents: established
// outbound IP peers, plus up to 10 random known-IP and 10 random unchecked-IP
// entries. I2P peers are never included, per §12a.
func (c *Connection) collectAddrBurst() []wire.NetAddr {
	seen := make(map[string]struct{})
	var out []wire.NetAddr

	for _, conn := range c.n.Connections.Snapshot() {
		if conn.Network() != "ip" || conn.Inbound() || !conn.IsFullyEstablished() {
			continue
		}
		key := conn.RemoteHost()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, wire.NetAddr{
			Time:     uint64(c.n.Clock.Now().Unix()),
			Stream:   payload.Stream,
			Services: conn.Services(),
			Host:     parseIP(conn.RemoteHost()),
			Port:     conn.RemotePort(),
		})
	}

	for _, a := range c.n.Pools.SampleKnownIP(10) {
		if _, ok := seen[a.Host]; ok {
			continue
		}
		seen[a.Host] = struct{}{}
		out = append(out, wire.NetAddr{Time: uint64(c.n.Clock.Now().Unix()), Stream: payload.Stream, Services: 1, Host: parseIP(a.Host), Port: a.Port})
	}
	for _, a := range c.n.Pools.SampleUncheckedIP(10) {
		if _, ok := seen[a.Host]; ok {
			continue
		}
		seen[a.Host] = struct{}{}
		out = append(out, wire.NetAddr{Time: uint64(c.n.Clock.Now().Unix()), Stream: payload.Stream, Services: 1, Host: parseIP(a.Host), Port: a.Port})
	}
	return out
}

// buildInvBurst implements §4.3.2's inv burst: every non-expired vector
// in the store, randomly partitioned into chunks of at most
// payload.MaxVectorsPerMessage.
func (c *Connection) buildInvBurst() [][]byte {
	now := c.n.Clock.Now()
	vectors := c.n.Store.KeysFilter(func(o *object.Object) bool {
		return !o.IsExpired(now)
	})
	if len(vectors) == 0 {
		return nil
	}
	rand.Shuffle(len(vectors), func(i, j int) { vectors[i], vectors[j] = vectors[j], vectors[i] })

	pvecs := make([]payload.Vector, len(vectors))
	for i, v := range vectors {
		pvecs[i] = payload.Vector(v)
	}

	var out [][]byte
	for _, chunk := range payload.ChunkVectors(pvecs) {
		msg, err := payload.Encode(&payload.Inv{Vectors: chunk})
		if err != nil {
			c.log.Warnw("peer: failed to encode inv chunk", "error", err)
			continue
		}
		out = append(out, msg)
		for _, v := range chunk {
			c.knownInventory.Add(object.Vector(v), struct{}{})
		}
	}
	return out
}
