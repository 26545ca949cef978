package peer

import (
	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/i2p"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/wire/payload"
)

// handleInv implements §4.3.3's inv handling: every vector this node
// neither stores nor has already requested goes on this connection's
// to-get list for the next fetch tick. Any of these vectors still
// sitting in to-send are dropped, since the peer just told us it already
// has them.
func (c *Connection) handleInv(body []byte) error {
	inv, err := payload.DecodeInv(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pv := range inv.Vectors {
		v := object.Vector(pv)
		c.knownInventory.Add(v, struct{}{})
		delete(c.toSend, v)
		if c.n.Store.Has(v) {
			continue
		}
		if _, already := c.requested[v]; already {
			continue
		}
		c.toGet[v] = struct{}{}
	}
	return nil
}

// handleGetData queues every requested vector this node actually holds
// for send on the next fetch tick; misses are silently ignored (§4.3.4,
// K3).
func (c *Connection) handleGetData(body []byte) error {
	gd, err := payload.DecodeGetData(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pv := range gd.Vectors {
		v := object.Vector(pv)
		if c.n.Store.Has(v) {
			c.toSend[v] = struct{}{}
		}
	}
	return nil
}

// handleObject validates and stores an incoming object, then fans its
// vector out to every other fully-established connection. A self-
// published I2P destination marker is additionally unwrapped into the
// I2P unchecked pool so the dialer can learn of it (§4.3.3, §14).
func (c *Connection) handleObject(body []byte) error {
	msg, err := payload.DecodeObjectMsg(body)
	if err != nil {
		return err
	}
	o, err := object.FromBytes(msg.Raw)
	if err != nil {
		return err
	}

	v, err := o.Vector()
	if err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.requested, v)
	delete(c.toGet, v)
	c.mu.Unlock()

	newV, isNew, err := c.n.Store.InsertIfAbsentAndValid(o)
	if err != nil {
		c.log.Debugw("peer: rejected object", "error", err)
		return nil
	}
	if !isNew {
		return nil
	}

	c.n.Advertise.EnqueueVector(newV)
	if o.ObjectType == object.I2PDestinationObjectType && o.Version == object.I2PDestinationObjectVersion {
		c.acceptI2PDestination(o)
	}
	return nil
}

// acceptI2PDestination adds the sender's advertised I2P destination to
// the I2P unchecked pool, keyed by its .b32.i2p address, without
// gossiping it further (§12a: I2P destinations spread only as payload
// objects, never as addr entries).
func (c *Connection) acceptI2PDestination(o *object.Object) {
	addr := i2p.B32Address(o.Payload)
	c.n.Pools.AddUnchecked(addrpool.Addr{Network: addrpool.I2P, Host: addr})
}

// handleAddr adds every advertised IP address to the unchecked pool;
// I2P destinations never travel in addr messages, only as objects.
func (c *Connection) handleAddr(body []byte) error {
	a, err := payload.DecodeAddr(body)
	if err != nil {
		return err
	}
	for _, na := range a.Addrs {
		c.n.Pools.AddUnchecked(addrpool.Addr{
			Network:  addrpool.IP,
			Host:     na.Host.String(),
			Port:     na.Port,
			Services: na.Services,
		})
	}
	return nil
}

// requestObjects drains this connection's to-get set into getdata
// messages, bounded by the in-flight cap and per-request chunk size
// from §4.3.4. Entries that were stored by the time this runs (e.g.
// fetched via another connection) are stripped without being requested.
func (c *Connection) requestObjects() {
	c.mu.Lock()
	if len(c.requested) >= maxInFlight || len(c.toGet) == 0 {
		c.mu.Unlock()
		return
	}
	room := maxInFlight - len(c.requested)
	if room > maxGetDataPerRequest {
		room = maxGetDataPerRequest
	}
	now := c.n.Clock.Now()
	vectors := make([]payload.Vector, 0, room)
	for v := range c.toGet {
		if c.n.Store.Has(v) {
			delete(c.toGet, v)
			continue
		}
		if len(vectors) >= room {
			continue
		}
		delete(c.toGet, v)
		c.requested[v] = now
		vectors = append(vectors, payload.Vector(v))
	}
	c.mu.Unlock()

	if len(vectors) == 0 {
		return
	}
	msg, err := payload.Encode(&payload.GetData{Vectors: vectors})
	if err != nil {
		c.log.Warnw("peer: failed to encode getdata", "error", err)
		return
	}
	c.send(msg)
}

// sendObjects drains this connection's to-send set, up to
// maxObjectsPerSend objects per tick, and also reaps requested entries
// that have gone stale or expired (§4.3.4).
func (c *Connection) sendObjects() {
	now := c.n.Clock.Now()

	c.mu.Lock()
	for v, t := range c.requested {
		age := now.Sub(t)
		switch {
		case age > requestedExpire:
			delete(c.requested, v)
		case age > requestedStale:
			delete(c.requested, v)
			c.toGet[v] = struct{}{}
		}
	}
	sendCount := maxObjectsPerSend
	if len(c.toSend) < sendCount {
		sendCount = len(c.toSend)
	}
	vectors := make([]object.Vector, 0, sendCount)
	for v := range c.toSend {
		if len(vectors) >= sendCount {
			break
		}
		delete(c.toSend, v)
		vectors = append(vectors, v)
	}
	c.mu.Unlock()

	for _, v := range vectors {
		o, ok := c.n.Store.Get(v)
		if !ok {
			continue
		}
		raw, err := o.ToBytes()
		if err != nil {
			continue
		}
		msg, err := payload.Encode(&payload.ObjectMsg{Raw: raw})
		if err != nil {
			c.log.Warnw("peer: failed to encode object", "error", err)
			continue
		}
		c.send(msg)
	}
}
