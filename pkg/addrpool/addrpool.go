// Package addrpool holds the four peer-record sets every node tracks:
// known and unchecked peers for each of the two transports (IP, I2P).
// It is adapted from the teacher's pkg/addrmgr, generalized from NEO's
// good/new/bad taxonomy to this network's known/unchecked one and
// extended to the IP/I2P transport split.
package addrpool

import (
	"math/rand"
	"sync"

	"github.com/twmb/murmur3"
)

// Network distinguishes the two transports a peer record can live on.
type Network int

const (
	IP Network = iota
	I2P
)

// Addr is a peer record: an IP host:port pair, or an I2P destination
// string keyed by itself (Port is unused for I2P).
type Addr struct {
	Network  Network
	Host     string
	Port     uint16
	Services uint64
}

// Key is the identity used for pool membership and dedup.
func (a Addr) Key() string {
	if a.Network == I2P {
		return "i2p:" + a.Host
	}
	return "ip:" + a.Host + ":" + portString(a.Port)
}

func portString(p uint16) string {
	const digits = "0123456789"
	if p == 0 {
		return "0"
	}
	var b [5]byte
	i := len(b)
	for p > 0 {
		i--
		b[i] = digits[p%10]
		p /= 10
	}
	return string(b[i:])
}

// Default pool capacities, enforced at snapshot time by Cap, which keeps
// the entries whose keys have the smallest murmur3 hashes.
const (
	CapIPKnown      = 10000
	CapIPUnchecked  = 1000
	CapI2PKnown     = 1000
	CapI2PUnchecked = 100
)

// Pools is the full set of four peer-record pools, each guarded
// independently so that concurrent connections inserting addr/version
// discoveries never block each other's unrelated pool.
type Pools struct {
	ipKnown      *pool
	ipUnchecked  *pool
	i2pKnown     *pool
	i2pUnchecked *pool
}

type pool struct {
	mu  sync.RWMutex
	cap int
	m   map[string]Addr
}

func newPool(cap int) *pool {
	return &pool{cap: cap, m: make(map[string]Addr)}
}

func New() *Pools {
	return &Pools{
		ipKnown:      newPool(CapIPKnown),
		ipUnchecked:  newPool(CapIPUnchecked),
		i2pKnown:     newPool(CapI2PKnown),
		i2pUnchecked: newPool(CapI2PUnchecked),
	}
}

func (p *pool) add(a Addr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[a.Key()] = a
}

func (p *pool) remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
}

func (p *pool) contains(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.m[key]
	return ok
}

func (p *pool) all() []Addr {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Addr, 0, len(p.m))
	for _, a := range p.m {
		out = append(out, a)
	}
	return out
}

// sample returns up to n addresses chosen uniformly at random, via a
// full Fisher-Yates shuffle (rand.Shuffle) of a snapshot.
func (p *pool) sample(n int) []Addr {
	all := p.all()
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// capAt enforces the pool's capacity by keeping the `limit` keys with
// the smallest murmur3 hash and deleting the rest. The hash spreads the
// choice evenly over keys regardless of insertion order, but it is not a
// fresh random draw: the same set of keys always keeps the same
// survivors.
func (p *pool) capAt(limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.m) <= limit {
		return
	}
	type scored struct {
		key   string
		score uint32
	}
	scoredKeys := make([]scored, 0, len(p.m))
	for k := range p.m {
		scoredKeys = append(scoredKeys, scored{k, murmur3.Sum32([]byte(k))})
	}
	// Repeatedly evict the highest-scored key until only `limit` keys
	// remain.
	for len(scoredKeys) > limit {
		worst := 0
		for i := 1; i < len(scoredKeys); i++ {
			if scoredKeys[i].score > scoredKeys[worst].score {
				worst = i
			}
		}
		delete(p.m, scoredKeys[worst].key)
		scoredKeys[worst] = scoredKeys[len(scoredKeys)-1]
		scoredKeys = scoredKeys[:len(scoredKeys)-1]
	}
}

// AddUnchecked inserts a into the appropriate unchecked pool unless it
// is already known.
func (ps *Pools) AddUnchecked(a Addr) {
	known, unchecked := ps.poolsFor(a.Network)
	if known.contains(a.Key()) {
		return
	}
	unchecked.add(a)
}

// PromoteKnown moves a into the known pool for its transport and drops
// it from unchecked, called on a successful handshake.
func (ps *Pools) PromoteKnown(a Addr) {
	known, unchecked := ps.poolsFor(a.Network)
	unchecked.remove(a.Key())
	known.add(a)
}

func (ps *Pools) poolsFor(n Network) (known, unchecked *pool) {
	if n == I2P {
		return ps.i2pKnown, ps.i2pUnchecked
	}
	return ps.ipKnown, ps.ipUnchecked
}

// KnownIP, UncheckedIP, KnownI2P and UncheckedI2P return a
// snapshot of the requested pool.
func (ps *Pools) KnownIP() []Addr      { return ps.ipKnown.all() }
func (ps *Pools) UncheckedIP() []Addr  { return ps.ipUnchecked.all() }
func (ps *Pools) KnownI2P() []Addr     { return ps.i2pKnown.all() }
func (ps *Pools) UncheckedI2P() []Addr { return ps.i2pUnchecked.all() }

func (ps *Pools) SampleKnownIP(n int) []Addr      { return ps.ipKnown.sample(n) }
func (ps *Pools) SampleUncheckedIP(n int) []Addr  { return ps.ipUnchecked.sample(n) }
func (ps *Pools) SampleKnownI2P(n int) []Addr      { return ps.i2pKnown.sample(n) }
func (ps *Pools) SampleUncheckedI2P(n int) []Addr { return ps.i2pUnchecked.sample(n) }

// RemoveUnchecked drops a from its unchecked pool; the Manager calls
// this for every address it chooses to dial, per the dial-selection
// rule that chosen unchecked entries are removed while known ones stay.
func (ps *Pools) RemoveUnchecked(a Addr) {
	_, unchecked := ps.poolsFor(a.Network)
	unchecked.remove(a.Key())
}

// Cap enforces every pool's capacity, called on the Manager's 60s tick
// just before snapshotting.
func (ps *Pools) Cap() {
	ps.ipKnown.capAt(CapIPKnown)
	ps.ipUnchecked.capAt(CapIPUnchecked)
	ps.i2pKnown.capAt(CapI2PKnown)
	ps.i2pUnchecked.capAt(CapI2PUnchecked)
}
