// Package peer implements the per-connection state machine described in
// spec.md §4.3: handshake, the optional anonymous-ECDH session upgrade,
// the post-handshake inventory/address burst, steady-state object
// fetch/serve pacing, and liveness timeouts. It is grounded on
// `_examples/hirowhite-bmd/peer.go`'s goroutine/channel shape
// (queueHandler/outHandler split, bounded known-inventory cache) and on
// `original_source/minode/connection.py` for exact transition rules,
// timer values, and burst contents.
package peer

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/wire"
	"github.com/bmrelay/relaynode/pkg/wire/payload"
)

// Status is one of the states in the spec's connection state diagram.
type Status string

const (
	StatusReady             Status = "ready"
	StatusConnected         Status = "connected"
	StatusFullyEstablished  Status = "fully_established"
	StatusDisconnecting     Status = "disconnecting"
	StatusDisconnected      Status = "disconnected"
	StatusFailed            Status = "failed"
)

// Timer values from §4.3.5.
const (
	idleTimeout          = 600 * time.Second
	preHandshakeTimeout  = 30 * time.Second
	pongAfterIdleSend    = 300 * time.Second
	tickInterval         = 200 * time.Millisecond
	requestedStale       = 10 * time.Minute
	requestedExpire      = 15 * time.Minute
	maxInFlight          = 100
	maxGetDataPerRequest = 64
	maxObjectsPerSend    = 16
	knownInventoryCacheSize = 10000
)

// Conn wraps whatever byte stream the connection rides on: a plain
// net.Conn before the optional session upgrade, or a *transport.Session
// after it.
type Conn interface {
	io.ReadWriteCloser
}

// Connection is one peer connection: IP or I2P, inbound or outbound.
type Connection struct {
	id      string
	n       *node.Node
	conn    Conn
	network string // "ip" or "i2p"
	host    string // remote identity: bare host for IP (port is kept separately), full destination for I2P
	port    uint16
	inbound bool

	log *zap.SugaredLogger

	mu              sync.Mutex
	status          Status
	verackSent      bool
	verackReceived  bool
	tlsUpgraded     bool
	remoteVersion   *payload.Version
	lastRx          time.Time
	lastTx          time.Time
	toGet           map[object.Vector]struct{}
	toSend          map[object.Vector]struct{}
	requested       map[object.Vector]time.Time

	outbound chan []byte
	closed   chan struct{}
	closeOnce sync.Once

	knownInventory *lru.Cache
}

// Options configures a new Connection.
type Options struct {
	Node     *node.Node
	Conn     Conn
	Network  string // "ip" or "i2p"
	Host     string
	Port     uint16
	Inbound  bool
}

// New constructs a Connection in StatusConnected; callers (Listener,
// Dialer) already hold a live socket by the time they reach here.
func New(opts Options) *Connection {
	cache, _ := lru.New(knownInventoryCacheSize)
	now := opts.Node.Clock.Now()
	id := uuid.NewString()
	c := &Connection{
		id:             id,
		n:              opts.Node,
		conn:           opts.Conn,
		network:        opts.Network,
		host:           opts.Host,
		port:           opts.Port,
		inbound:        opts.Inbound,
		log:            opts.Node.Logger.With("conn", id[:8], "peer", opts.Host),
		status:         StatusConnected,
		toGet:          make(map[object.Vector]struct{}),
		toSend:         make(map[object.Vector]struct{}),
		requested:      make(map[object.Vector]time.Time),
		outbound:       make(chan []byte, 256),
		closed:         make(chan struct{}),
		knownInventory: cache,
		lastRx:         now,
		lastTx:         now,
	}
	return c
}

// ID is a per-connection correlation id attached to log lines.
func (c *Connection) ID() string { return c.id }

func (c *Connection) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.status)
}

func (c *Connection) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Connection) IsFullyEstablished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusFullyEstablished
}

func (c *Connection) Network() string { return c.network }
func (c *Connection) RemoteHost() string { return c.host }
func (c *Connection) RemotePort() uint16 { return c.port }
func (c *Connection) Inbound() bool { return c.inbound }

func (c *Connection) Services() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remoteVersion == nil {
		return 0
	}
	return c.remoteVersion.Services
}

// QueueInv advertises vectors to this peer as inv messages, chunked at
// payload.MaxVectorsPerMessage, skipping any already in this
// connection's known inventory and recording the rest there.
func (c *Connection) QueueInv(vectors []object.Vector) {
	c.mu.Lock()
	var pvecs []payload.Vector
	for _, v := range vectors {
		if c.knownInventory != nil {
			if _, ok := c.knownInventory.Get(v); ok {
				continue
			}
			c.knownInventory.Add(v, struct{}{})
		}
		pvecs = append(pvecs, payload.Vector(v))
	}
	c.mu.Unlock()
	for _, chunk := range payload.ChunkVectors(pvecs) {
		if msg, err := payload.Encode(&payload.Inv{Vectors: chunk}); err == nil {
			c.send(msg)
		}
	}
}

// QueueAddr enqueues an addr burst; the connection chunks it into as
// many wire messages as payload.MaxVectorsPerMessage-equivalent limits
// require (addr has no such cap in this protocol, so it goes out whole).
func (c *Connection) QueueAddr(addrs []wire.NetAddr) {
	if len(addrs) == 0 {
		return
	}
	msg, err := payload.Encode(&payload.Addr{Addrs: addrs})
	if err != nil {
		c.log.Warnw("peer: failed to encode addr burst", "error", err)
		return
	}
	c.send(msg)
}

func (c *Connection) send(b []byte) {
	select {
	case c.outbound <- b:
	case <-c.closed:
	}
}

// Close begins the disconnect sequence; idempotent.
func (c *Connection) Close() {
	c.setStatus(StatusDisconnecting)
}

func (c *Connection) closeSocket() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

func (c *Connection) remoteAddrString() string {
	if c.network == "i2p" {
		return c.host
	}
	return net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
}
