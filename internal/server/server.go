// Package server wires the typed store, the pub/sub hub, and the scripting
// engine behind a RESP connection state machine: the gate order, command
// dispatch, and transaction engine of spec.md §4.G/§4.H.
//
// Grounded on the teacher's cmd/main.go accept loop (one goroutine per
// connection, a WaitGroup for graceful drain) and internal/handlers'
// Handle function (the auth/transaction gate shape), generalized to the
// full gate ordering and sharded store spec.md requires.
package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tmfc/redust/internal/config"
	"github.com/tmfc/redust/internal/metrics"
	"github.com/tmfc/redust/internal/pubsub"
	"github.com/tmfc/redust/internal/script"
	"github.com/tmfc/redust/internal/store"
)

// Server owns every shared collaborator a connection's command dispatch
// touches: the store, the pub/sub hub, configuration, metrics, the
// scripting engine, and the slowlog ring buffer.
type Server struct {
	Store   *store.Store
	Pubsub  *pubsub.Hub
	Config  *config.Config
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Scripts *script.Engine
	Slowlog *Slowlog

	startTime time.Time

	nextClientID atomic.Uint64
	pauseUntil   atomic.Int64 // unix nanos; zero means not paused

	clientsMu sync.Mutex
	clients   map[uint64]*Conn

	lastSaveUnix atomic.Int64

	wg       sync.WaitGroup
	listener net.Listener
	closing  atomic.Bool

	saveSnapshot func() error
}

// SetSnapshotSaver wires the RDB writer SAVE/BGSAVE invoke (internal/snapshot.Save,
// closed over the store and configured path). Left nil, SAVE reports an error
// instead of silently no-oping.
func (s *Server) SetSnapshotSaver(fn func() error) {
	s.saveSnapshot = fn
}

// New builds a Server from its collaborators. Each is constructed
// independently (config.FromEnv, store.New, pubsub.New, metrics.New,
// logging.New, script.New) and wired here, mirroring the teacher's
// main()'s explicit construct-then-wire sequence.
func New(st *store.Store, hub *pubsub.Hub, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger, eng *script.Engine) *Server {
	return &Server{
		Store:     st,
		Pubsub:    hub,
		Config:    cfg,
		Metrics:   m,
		Logger:    logger,
		Scripts:   eng,
		Slowlog:   NewSlowlog(cfg.SlowlogMaxLen),
		startTime: time.Now(),
		clients:   make(map[uint64]*Conn),
	}
}

// Serve accepts connections on l until the context is cancelled, spawning
// one goroutine per connection (teacher's cmd/main.go accept-loop shape).
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.listener = l
	go func() {
		<-ctx.Done()
		s.closing.Store(true)
		l.Close()
	}()

	for {
		nc, err := l.Accept()
		if err != nil {
			if s.closing.Load() {
				s.wg.Wait()
				return nil
			}
			return err
		}
		c := s.newConn(nc)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.serve(ctx)
		}()
	}
}

// Shutdown signals the listener to stop and waits for in-flight
// connections to finish their current command (spec.md §5's cooperative
// graceful-shutdown contract).
func (s *Server) Shutdown() {
	s.closing.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) registerConn(c *Conn) {
	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
	s.Metrics.ConnectedClients.Inc()
}

func (s *Server) unregisterConn(c *Conn) {
	s.clientsMu.Lock()
	delete(s.clients, c.id)
	s.clientsMu.Unlock()
	s.Metrics.ConnectedClients.Dec()
}

// ClientList snapshots every live connection's id/name/addr/db for CLIENT LIST.
func (s *Server) ClientList() []ClientInfo {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	out := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, ClientInfo{
			ID:     c.id,
			AddrID: c.addrID,
			Name:   c.name,
			Addr:   c.remoteAddr,
			DB:     c.db,
		})
	}
	return out
}

// ClientInfo is the read-only snapshot CLIENT LIST reports per connection.
// AddrID is an opaque per-connection UUID, distinct from the small
// monotonic ID: the pack uses a UUID wherever it needs a session identity
// that's not a guessable sequence number, and CLIENT LIST's addr-id field
// mirrors that.
type ClientInfo struct {
	ID     uint64
	AddrID string
	Name   string
	Addr   string
	DB     int
}

// Pause sets the global client-pause deadline (CLIENT PAUSE ms).
func (s *Server) Pause(d time.Duration) {
	s.pauseUntil.Store(time.Now().Add(d).UnixNano())
}

// Unpause clears the client-pause deadline (CLIENT UNPAUSE).
func (s *Server) Unpause() {
	s.pauseUntil.Store(0)
}

// waitIfPaused blocks the caller until the pause deadline passes, if one is
// set. Called from the per-command gate for write commands only.
func (s *Server) waitIfPaused() {
	for {
		until := s.pauseUntil.Load()
		if until == 0 {
			return
		}
		remaining := time.Until(time.Unix(0, until))
		if remaining <= 0 {
			return
		}
		time.Sleep(remaining)
	}
}

func (s *Server) markSaved() {
	s.lastSaveUnix.Store(time.Now().Unix())
}

// LastSave returns the unix timestamp of the most recent successful SAVE
// (0 if none has happened this process).
func (s *Server) LastSave() int64 {
	return s.lastSaveUnix.Load()
}

// Uptime reports seconds since the server started, for INFO Server.
func (s *Server) Uptime() int64 {
	return int64(time.Since(s.startTime).Seconds())
}
