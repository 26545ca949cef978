package node

import (
	"sync"

	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/wire"
)

// Conn is the subset of pkg/peer.Connection the rest of the node needs
// to see. It is declared here, not in pkg/peer, so that pkg/relaymgr and
// pkg/advertiser can depend on pkg/node without creating an import cycle
// back into pkg/peer.
type Conn interface {
	ID() string
	Status() string
	IsFullyEstablished() bool
	Network() string // "ip" or "i2p"
	RemoteHost() string
	RemotePort() uint16
	Services() uint64
	Inbound() bool
	QueueInv(vectors []object.Vector)
	QueueAddr(addrs []wire.NetAddr)
	Close()
}

// ConnectionSet is the connection-set mutex the spec names: every
// Connection is registered here on creation and removed on
// disconnection. Reads take a snapshot and operate outside the lock.
type ConnectionSet struct {
	mu    sync.RWMutex
	byID  map[string]Conn
}

func NewConnectionSet() *ConnectionSet {
	return &ConnectionSet{byID: make(map[string]Conn)}
}

func (s *ConnectionSet) Add(c Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.ID()] = c
}

func (s *ConnectionSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *ConnectionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Snapshot returns every registered connection, safe to range over
// without holding the lock.
func (s *ConnectionSet) Snapshot() []Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Conn, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	return out
}

// HasRemote reports whether any registered connection's (network, host)
// matches, used by the dialer to avoid dialing an already-connected
// peer.
func (s *ConnectionSet) HasRemote(network, host string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byID {
		if c.Network() == network && c.RemoteHost() == host {
			return true
		}
	}
	return false
}
