// Package admin serves a small local HTTP/WS surface for inspecting a
// running node: connection and object-store counts at /stats, the
// connection list at /peers, and a websocket push of every vector the
// node newly stores at /ws. It is off by default (§6) and grounded on
// the teacher's RPC server package for the HTTP-handler/JSON-response
// shape, adapted from JSON-RPC request/response framing down to plain
// REST-ish handlers since this node has no contract/VM surface to
// expose.
package admin

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	ojson "github.com/nspcc-dev/go-ordered-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/object"
)

// Server is the admin HTTP/WS listener.
type Server struct {
	n   *node.Node
	log *zap.SugaredLogger
	srv *http.Server

	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*websocket.Conn]chan object.Vector
}

// New builds an admin Server bound to addr (e.g. "127.0.0.1:8833").
func New(n *node.Node, addr string) *Server {
	s := &Server{
		n:    n,
		log:  n.Logger.Named("admin"),
		subs: make(map[*websocket.Conn]chan object.Vector),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/peers", s.handlePeers)
	mux.HandleFunc("/objects", s.handleObjects)
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Serve blocks accepting connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()
	err := s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// NotifyStored fans a newly stored vector out to every connected
// websocket subscriber (§6's "admin stream"). Nothing in this module
// calls it, so /ws subscribers receive no vectors unless a caller does.
func (s *Server) NotifyStored(v object.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			// Slow subscriber drops the update rather than blocking
			// object-store writers.
		}
	}
}

func (s *Server) writeOrdered(w http.ResponseWriter, m *ojson.OrderedMap) {
	w.Header().Set("Content-Type", "application/json")
	b, err := ojson.Marshal(m)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(b)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	m := ojson.NewOrderedMap()
	m.Set("user_agent", s.n.Config.UserAgent)
	m.Set("connections", len(s.n.Connections.Snapshot()))
	m.Set("objects", s.n.Store.Len())
	m.Set("known_ip_peers", len(s.n.Pools.KnownIP()))
	m.Set("unchecked_ip_peers", len(s.n.Pools.UncheckedIP()))
	m.Set("known_i2p_peers", len(s.n.Pools.KnownI2P()))
	m.Set("unchecked_i2p_peers", len(s.n.Pools.UncheckedI2P()))
	s.writeOrdered(w, m)
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	list := ojson.NewOrderedMap()
	for _, c := range s.n.Connections.Snapshot() {
		entry := ojson.NewOrderedMap()
		entry.Set("network", c.Network())
		entry.Set("status", c.Status())
		entry.Set("inbound", c.Inbound())
		entry.Set("services", c.Services())
		list.Set(c.ID(), entry)
	}
	m := ojson.NewOrderedMap()
	m.Set("peers", list)
	s.writeOrdered(w, m)
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	snap := s.n.Store.Snapshot()
	m := ojson.NewOrderedMap()
	m.Set("count", len(snap))
	s.writeOrdered(w, m)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugw("admin: websocket upgrade failed", "error", err)
		return
	}
	ch := make(chan object.Vector, 64)
	s.mu.Lock()
	s.subs[conn] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subs, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for v := range ch {
		if err := conn.WriteJSON(v); err != nil {
			return
		}
	}
}
