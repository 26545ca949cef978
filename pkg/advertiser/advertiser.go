// Package advertiser drains the two node-wide advertise queues (newly
// stored vectors, newly learned addresses) and fans each drain out to
// every fully-established connection. It is grounded on
// `original_source/src/advertiser.py`'s drain-then-multicast loop,
// generalized to the "fully_established" status name used by the newer
// `minode/connection.py`.
package advertiser

import (
	"context"
	"time"

	"github.com/bmrelay/relaynode/pkg/node"
)

// TickInterval is how often the advertiser drains its queues (§4.6).
const TickInterval = 400 * time.Millisecond

// Advertiser periodically drains node.Advertise and multicasts the
// result to every fully-established connection.
type Advertiser struct {
	n *node.Node
}

func New(n *node.Node) *Advertiser { return &Advertiser{n: n} }

// Run blocks until ctx is canceled or the node begins shutting down.
func (a *Advertiser) Run(ctx context.Context) {
	ticker := a.n.Clock.Ticker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.n.ShuttingDown() {
				return
			}
			a.tick()
		}
	}
}

// tick drains both queues once and, if either is non-empty, queues the
// vectors on every fully established connection and the addresses on
// every fully established IP connection (I2P connections never receive
// addr). Further chunking (inv's 10,000-vector cap) is the Connection's job, not the
// Advertiser's.
func (a *Advertiser) tick() {
	vectors := a.n.Advertise.DrainVectors()
	addrs := a.n.Advertise.DrainAddrs()
	if len(vectors) == 0 && len(addrs) == 0 {
		return
	}

	for _, c := range a.n.Connections.Snapshot() {
		if !c.IsFullyEstablished() {
			continue
		}
		if len(vectors) > 0 {
			c.QueueInv(vectors)
		}
		if len(addrs) > 0 && c.Network() == "ip" {
			c.QueueAddr(addrs)
		}
	}
}
