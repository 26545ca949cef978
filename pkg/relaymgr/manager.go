// Package relaymgr implements the periodic Manager tick described in
// spec.md §4.5: reaping dead connections and dialers, choosing outgoing
// dial targets, expiring objects, snapshotting the object store and
// peer pools to disk, and republishing this node's own I2P destination.
// It is grounded on `original_source/minode/manager.py` for every
// interval and the dial-selection algorithm, and on
// `_pkg.dev/connmgr/connmgr.go`'s `NewRequest`/`failed`/`connected`
// retry bookkeeping for the Go-idiomatic in-flight-dialer shape.
package relaymgr

import (
	"context"
	"sync"
	"time"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/i2p"
	"github.com/bmrelay/relaynode/pkg/netsvc"
	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/peer"
	"github.com/bmrelay/relaynode/pkg/pow"
)

// Tick is the Manager's own loop period (§4.5); each sub-action below
// fires on its own multiple of this tick rather than its own ticker, so
// a single goroutine drives every periodic duty.
const Tick = 800 * time.Millisecond

// Interval table from §4.5.
const (
	reapAndDialInterval     = 2 * time.Second
	expireObjectsInterval   = 90 * time.Second
	snapshotObjectsInterval = 100 * time.Second
	snapshotPoolsInterval   = 60 * time.Second
	republishI2PInterval    = 3600 * time.Second
)

// Dial-selection sizes from §4.5.
const (
	maxOutgoing        = 8
	candidatesUnchecked = 16
	candidatesKnown     = 8
	dialerStaleAfter    = netsvc.DialTimeout + 5*time.Second
)

// Manager drives the node's periodic duties.
type Manager struct {
	n         *node.Node
	i2pClient *i2p.Client
	publisher *pow.Publisher

	objectsSnapshotPath string
	poolsSnapshotDir    string

	dialingMu sync.Mutex
	dialing   map[string]time.Time

	lastReapAndDial     time.Time
	lastExpire          time.Time
	lastSnapshotObjects time.Time
	lastSnapshotPools   time.Time
	lastRepublish       time.Time
}

// Options configures a new Manager.
type Options struct {
	Node                *node.Node
	I2PClient           *i2p.Client // nil when I2P transport is disabled
	Publisher           *pow.Publisher
	ObjectsSnapshotPath string
	PoolsSnapshotDir    string
}

func New(opts Options) *Manager {
	return &Manager{
		n:                   opts.Node,
		i2pClient:           opts.I2PClient,
		publisher:           opts.Publisher,
		objectsSnapshotPath: opts.ObjectsSnapshotPath,
		poolsSnapshotDir:    opts.PoolsSnapshotDir,
		dialing:             make(map[string]time.Time),
	}
}

// Run blocks, ticking every Tick, until ctx is canceled or shutdown is
// requested. Each sub-action is gated on its own interval having
// elapsed since it last ran.
func (m *Manager) Run(ctx context.Context) {
	now := m.n.Clock.Now()
	m.lastReapAndDial = now
	m.lastExpire = now
	m.lastSnapshotObjects = now
	m.lastSnapshotPools = now
	m.lastRepublish = now

	ticker := m.n.Clock.Ticker(Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.n.ShuttingDown() {
				return
			}
			m.tick()
		}
	}
}

func (m *Manager) tick() {
	now := m.n.Clock.Now()

	if now.Sub(m.lastReapAndDial) >= reapAndDialInterval {
		m.lastReapAndDial = now
		m.reapDialers(now)
		m.dial()
	}
	if now.Sub(m.lastExpire) >= expireObjectsInterval {
		m.lastExpire = now
		if n := m.n.Store.ExpireOlderThan(now); n > 0 {
			m.n.Logger.Debugw("relaymgr: expired objects", "count", n)
		}
	}
	if now.Sub(m.lastSnapshotObjects) >= snapshotObjectsInterval {
		m.lastSnapshotObjects = now
		m.snapshotObjects()
	}
	if now.Sub(m.lastSnapshotPools) >= snapshotPoolsInterval {
		m.lastSnapshotPools = now
		m.n.Pools.Cap()
		m.snapshotPools()
	}
	if m.n.Config.I2PEnabled && !m.n.Config.I2PTransient && now.Sub(m.lastRepublish) >= republishI2PInterval {
		m.lastRepublish = now
		m.republishI2PDestination()
	}
}

// snapshotObjects persists the object store; a K6 persistence error is
// logged and the next tick retries, per §7.
func (m *Manager) snapshotObjects() {
	if m.objectsSnapshotPath == "" {
		return
	}
	if err := m.n.Store.SaveSnapshot(m.objectsSnapshotPath); err != nil {
		m.n.Logger.Warnw("relaymgr: object snapshot failed", "error", err)
	}
}

// snapshotPools persists the four peer pools; same non-fatal K6 policy.
func (m *Manager) snapshotPools() {
	if m.poolsSnapshotDir == "" {
		return
	}
	if err := m.n.Pools.SaveSnapshot(m.poolsSnapshotDir); err != nil {
		m.n.Logger.Warnw("relaymgr: pool snapshot failed", "error", err)
	}
}

// republishI2PDestination mines and stores a fresh self-destination
// object, per §14/the "Self-destination publication" rule in §6.
func (m *Manager) republishI2PDestination() {
	if m.i2pClient == nil || m.publisher == nil {
		return
	}
	pub := m.i2pClient.DestinationPub()
	if len(pub) == 0 {
		return
	}
	now := m.n.Clock.Now()
	draft := &object.Object{
		ExpiresTime:  uint64(now.Add(2 * time.Hour).Unix()),
		ObjectType:   object.I2PDestinationObjectType,
		Version:      object.I2PDestinationObjectVersion,
		StreamNumber: object.Stream,
		Payload:      pub,
	}
	m.publisher.Publish(context.Background(), draft)
	m.n.Logger.Infow("relaymgr: republishing i2p destination")
}

// reapDialers drops in-flight dial bookkeeping entries that have sat
// well past the dial timeout: their goroutine has either already
// removed them on completion, or it is wedged and this is a cheap
// safety net against leaking the outgoing-count budget forever.
func (m *Manager) reapDialers(now time.Time) {
	m.dialingMu.Lock()
	defer m.dialingMu.Unlock()
	for k, t := range m.dialing {
		if now.Sub(t) > dialerStaleAfter {
			delete(m.dialing, k)
		}
	}
}

func (m *Manager) markDialing(key string, now time.Time) bool {
	m.dialingMu.Lock()
	defer m.dialingMu.Unlock()
	if _, ok := m.dialing[key]; ok {
		return false
	}
	m.dialing[key] = now
	return true
}

func (m *Manager) clearDialing(key string) {
	m.dialingMu.Lock()
	defer m.dialingMu.Unlock()
	delete(m.dialing, key)
}

func (m *Manager) isDialing(key string) bool {
	m.dialingMu.Lock()
	defer m.dialingMu.Unlock()
	_, ok := m.dialing[key]
	return ok
}

// outgoingCount returns how many currently registered connections are
// outbound, the quantity the §4.5 dial-selection rule bounds at 8.
func (m *Manager) outgoingCount() int {
	n := 0
	for _, c := range m.n.Connections.Snapshot() {
		if !c.Inbound() {
			n++
		}
	}
	return n
}

// dial implements §4.5's dial-selection rule.
func (m *Manager) dial() {
	if m.n.Config.NoOutgoing || m.n.ShuttingDown() {
		return
	}
	target := m.n.Config.OutgoingTarget
	if target <= 0 {
		target = maxOutgoing
	}
	if m.outgoingCount() >= target {
		return
	}

	if tp := m.n.Config.TrustedPeer; tp != nil {
		m.dialOne(*tp)
		return
	}

	if !m.n.Config.NoIP {
		for _, a := range m.selectCandidates(m.n.Pools.SampleUncheckedIP(candidatesUnchecked), m.n.Pools.SampleKnownIP(candidatesKnown)) {
			m.n.Pools.RemoveUnchecked(a)
			m.dialOne(a)
		}
	}
	if m.i2pClient != nil {
		for _, a := range m.selectCandidates(m.n.Pools.SampleUncheckedI2P(candidatesUnchecked), m.n.Pools.SampleKnownI2P(candidatesKnown)) {
			m.n.Pools.RemoveUnchecked(a)
			m.dialOne(a)
		}
	}
}

// selectCandidates merges unchecked and known samples, skipping any
// address already connected or already being dialed, and skipping this
// node's own I2P destination.
func (m *Manager) selectCandidates(unchecked, known []addrpool.Addr) []addrpool.Addr {
	var out []addrpool.Addr
	seen := make(map[string]struct{})
	for _, group := range [][]addrpool.Addr{unchecked, known} {
		for _, a := range group {
			key := a.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if m.isSelf(a) || m.isDialing(key) {
				continue
			}
			network := "ip"
			if a.Network == addrpool.I2P {
				network = "i2p"
			}
			if m.n.Connections.HasRemote(network, a.Host) {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

func (m *Manager) isSelf(a addrpool.Addr) bool {
	if a.Network != addrpool.I2P || m.i2pClient == nil {
		return false
	}
	return a.Host == m.i2pClient.B32Address()
}

// dialOne opens a single outbound connection in its own goroutine and
// runs it to completion once connected.
func (m *Manager) dialOne(a addrpool.Addr) {
	key := a.Key()
	now := m.n.Clock.Now()
	if !m.markDialing(key, now) {
		return
	}

	go func() {
		var (
			c   *peer.Connection
			err error
		)
		ctx, cancel := context.WithTimeout(context.Background(), netsvc.DialTimeout)
		defer cancel()

		if a.Network == addrpool.I2P {
			c, err = netsvc.DialI2P(m.n, m.i2pClient, a.Host)
		} else {
			c, err = netsvc.Dial(ctx, m.n, a.Host, a.Port)
		}
		// The dial attempt itself is what "in-flight dialer" tracks;
		// once it resolves (either way) the connection set (on
		// success) or the next candidate scan (on failure) takes over
		// avoiding a duplicate attempt.
		m.clearDialing(key)
		if err != nil {
			m.n.Logger.Debugw("relaymgr: dial failed", "peer", a.Host, "error", err)
			return
		}
		c.Run()
	}()
}
