// Package node replaces the teacher's style of process-wide singletons
// with an explicit context: every long-running component receives a
// *Node instead of reaching into globals. Node carries only immutable
// configuration plus a handful of typed, concurrency-safe containers.
package node

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/objstore"
	"github.com/bmrelay/relaynode/pkg/wire"
)

// NetworkTimeout is the idle-connection cutoff described for liveness
// checks.
const NetworkTimeout = 600 * time.Second

// Config is the subset of pkg/config.Config the node needs at runtime;
// kept as a small value type here so pkg/node does not import
// pkg/config, which in turn depends on the CLI/YAML layers.
type Config struct {
	ListenHost      string
	ListenPort      uint16
	UserAgent       string
	ConnectionLimit int
	NoIncoming      bool
	NoOutgoing      bool
	NoIP            bool
	OutgoingTarget  int
	TrustedPeer     *addrpool.Addr
	DataDir         string
	I2PEnabled      bool
	I2PTransient    bool
}

// AdvertiseQueues holds the two queues Connections and the PoW worker
// feed and the Advertiser drains: one set of vectors, one set of
// addresses. Both collapse duplicates between drains, matching the
// reference implementation's use of plain sets rather than ordered
// queues for these two.
type AdvertiseQueues struct {
	mu      sync.Mutex
	vectors map[object.Vector]struct{}
	addrs   map[string]wire.NetAddr
}

func NewAdvertiseQueues() *AdvertiseQueues {
	return &AdvertiseQueues{
		vectors: make(map[object.Vector]struct{}),
		addrs:   make(map[string]wire.NetAddr),
	}
}

func (q *AdvertiseQueues) EnqueueVector(v object.Vector) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.vectors[v] = struct{}{}
}

func (q *AdvertiseQueues) EnqueueAddr(key string, a wire.NetAddr) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.addrs[key] = a
}

// DrainVectors empties and returns the vector queue.
func (q *AdvertiseQueues) DrainVectors() []object.Vector {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]object.Vector, 0, len(q.vectors))
	for v := range q.vectors {
		out = append(out, v)
	}
	q.vectors = make(map[object.Vector]struct{})
	return out
}

// DrainAddrs empties and returns the addr queue.
func (q *AdvertiseQueues) DrainAddrs() []wire.NetAddr {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]wire.NetAddr, 0, len(q.addrs))
	for _, a := range q.addrs {
		out = append(out, a)
	}
	q.addrs = make(map[string]wire.NetAddr)
	return out
}

// Node is the shared context passed to every component constructor.
type Node struct {
	Config Config
	Clock  clock.Clock
	Logger *zap.SugaredLogger

	Store *objstore.Store
	Pools *addrpool.Pools

	Advertise *AdvertiseQueues

	Connections *ConnectionSet

	shuttingDown int32

	Nonce [8]byte

	OutgoingCount int32
}

func New(cfg Config, store *objstore.Store, pools *addrpool.Pools, logger *zap.SugaredLogger, nonce [8]byte) *Node {
	return &Node{
		Config:      cfg,
		Clock:       clock.New(),
		Logger:      logger,
		Store:       store,
		Pools:       pools,
		Advertise:   NewAdvertiseQueues(),
		Connections: NewConnectionSet(),
		Nonce:       nonce,
	}
}

// ShuttingDown reports whether shutdown has been requested.
func (n *Node) ShuttingDown() bool { return atomic.LoadInt32(&n.shuttingDown) != 0 }

// Shutdown flips the shared cancellation flag. It is idempotent and safe
// to call from a signal handler.
func (n *Node) Shutdown() { atomic.StoreInt32(&n.shuttingDown, 1) }

// IsSelfNonce reports whether remoteNonce matches this node's own nonce,
// the self-connection detection the handshake relies on.
func (n *Node) IsSelfNonce(remote [8]byte) bool { return remote == n.Nonce }
