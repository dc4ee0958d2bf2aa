package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/voxelphys/internal/core/events/bus"
	"github.com/zeusync/voxelphys/internal/core/observability/log"
	"github.com/zeusync/voxelphys/internal/core/systems/physics"
	"github.com/zeusync/voxelphys/internal/sim"
	"github.com/zeusync/voxelphys/pkg/encoding"
)

// Server streams simulation snapshots and landing events to websocket
// viewers.
type Server struct {
	http     *http.Server
	listener net.Listener
	events   bus.EventBus
	sub      bus.Subscription

	// Client management
	clients     sync.Map // map[string]*ClientSession
	clientCount int64    // atomic

	latest atomic.Pointer[[]byte] // last encoded snapshot

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool

	config Config
	logger log.Log

	// Background workers
	workerGroup sync.WaitGroup
	stopChan    chan struct{}
}

// Config holds server configuration
type Config struct {
	ListenAddr string
	MaxClients int

	// Per-client queue of outgoing frames; a full queue drops frames.
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration

	// SnapshotEvery forwards one snapshot per this many ticks.
	SnapshotEvery int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:    ":8080",
		MaxClients:    64,
		SendBuffer:    32,
		WriteTimeout:  5 * time.Second,
		PingInterval:  15 * time.Second,
		SnapshotEvery: 1,
	}
}

func (c Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen address is empty", ErrInvalidConfig)
	}
	if c.MaxClients < 1 || c.SendBuffer < 1 || c.SnapshotEvery < 1 {
		return fmt.Errorf("%w: max clients, send buffer and snapshot interval must be positive", ErrInvalidConfig)
	}
	if c.WriteTimeout <= 0 || c.PingInterval <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}

// Message is one frame sent to viewers.
type Message struct {
	Type string `json:"type"`
	Tick uint64 `json:"tick"`
	Data any    `json:"data"`
}

var _ encoding.Serializable[Message] = (*Message)(nil)

func (m *Message) Serialize() ([]byte, error) { return encoding.JSON(m) }

func (m *Message) Deserialize(data []byte) error { return encoding.FromJSON(data, m) }

const (
	MessageSnapshot = "snapshot"
	MessageLanding  = "land_on_ground"
)

// Landing is the wire form of a physics landing event.
type Landing struct {
	Uid      uint64     `json:"uid"`
	Velocity [3]float32 `json:"velocity"`
}

func NewServer(config Config, events bus.EventBus, logger log.Log) (*Server, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}

	server := &Server{
		config:   config,
		events:   events,
		logger:   logger.With(log.String("component", "server")),
		stopChan: make(chan struct{}),
	}

	server.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.Int("max_clients", config.MaxClients))

	return server, nil
}

// Start listens on the configured address and subscribes to landing events.
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}

	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}
	s.listener = listener

	if s.events != nil {
		s.sub, err = s.events.Subscribe(physics.EventLandOnGround, s.onLanding)
		if err != nil {
			_ = listener.Close()
			atomic.StoreInt32(&s.running, 0)
			return err
		}
	}

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.workerGroup.Add(1)
	go func() {
		defer s.workerGroup.Done()
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", log.Error(err))
		}
	}()

	s.logger.Info("Server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr is the bound listen address; nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and disconnects every client.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	close(s.stopChan)

	if s.events != nil && s.sub != nil {
		_ = s.events.Unsubscribe(s.sub)
	}

	err := s.http.Shutdown(ctx)

	// Hijacked websocket connections are not closed by Shutdown.
	s.clients.Range(func(_, value any) bool {
		value.(*ClientSession).close()
		return true
	})

	s.workerGroup.Wait()

	s.logger.Info("Server stopped")
	return err
}

// Close stops the server if needed and prevents restarts.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil // Already closed
	}

	if atomic.LoadInt32(&s.running) == 1 {
		return s.Stop(context.Background())
	}
	return nil
}

// OnSnapshot encodes the snapshot, keeps it for /snapshot and fans it out.
// It is a sim.Observer.
func (s *Server) OnSnapshot(snap sim.Snapshot) {
	if snap.Tick%uint64(s.config.SnapshotEvery) != 0 {
		return
	}
	msg := Message{Type: MessageSnapshot, Tick: snap.Tick, Data: snap}
	frame, err := msg.Serialize()
	if err != nil {
		s.logger.Warn("Failed to encode snapshot", log.Error(err))
		return
	}
	s.latest.Store(&frame)
	s.broadcast(frame)
}

func (s *Server) onLanding(e bus.Event) error {
	land, ok := e.(physics.LandOnGround)
	if !ok {
		return nil
	}
	msg := Message{
		Type: MessageLanding,
		Tick: land.Tick,
		Data: Landing{Uid: uint64(land.Uid), Velocity: land.Velocity},
	}
	frame, err := msg.Serialize()
	if err != nil {
		return err
	}
	s.broadcast(frame)
	return nil
}

// broadcast queues frame on every client without blocking the caller.
func (s *Server) broadcast(frame []byte) {
	s.clients.Range(func(_, value any) bool {
		session := value.(*ClientSession)
		if !session.enqueue(frame) {
			s.logger.Debug("Dropping frame for slow client", log.String("client_id", session.ID))
		}
		return true
	})
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		ClientCount: atomic.LoadInt64(&s.clientCount),
		Running:     atomic.LoadInt32(&s.running) == 1,
	}
}

// Stats contains server statistics
type Stats struct {
	ClientCount int64
	Running     bool
}
