package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/liaptui/liaptui/internal/bot"
	"github.com/liaptui/liaptui/internal/randutil"
	"github.com/liaptui/liaptui/internal/roomid"
)

// Server is the WebSocket gateway: it accepts connections, hands each one
// to a Connection session, and owns the room manager the sessions talk to.
type Server struct {
	cfg      *Config
	logger   *log.Logger
	clock    quartz.Clock
	upgrader websocket.Upgrader
	manager  *RoomManager
	stats    *Stats

	mu          sync.RWMutex
	connections map[*Connection]bool

	ctx      context.Context
	cancel   context.CancelFunc
	listener net.Listener
	httpSrv  *http.Server
}

// NewServer wires the gateway: bot driver, room id generator, archive
// sink, and the room manager they serve.
func NewServer(cfg *Config, logger *log.Logger, clock quartz.Clock) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	stats := NewStats()
	driver := bot.NewDriver(logger, clock, cfg.BotDelayMin(), cfg.BotDelayMax(), randutil.New(time.Now().UnixNano()))
	gen := roomid.NewGenerator(nil)

	archive, err := NewJSONLArchive(cfg.Server.ArchiveDir)
	if err != nil {
		cancel()
		return nil, err
	}
	var sink ArchiveSink
	if archive != nil {
		sink = archive
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.WithPrefix("server"),
		clock:  clock,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		manager:     NewRoomManager(logger, cfg, clock, driver, gen, sink, stats),
		stats:       stats,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
	return s, nil
}

// Start binds the listen address and begins serving. It does not block;
// Stop shuts everything down.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr(), err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	s.httpSrv = &http.Server{Handler: mux}

	go s.manager.Run(s.ctx)
	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", "error", err)
		}
	}()

	s.logger.Info("Listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound listen address; valid after Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes every client connection and shuts the gateway down
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Manager exposes the room fleet, mainly for tests and the simulator
func (s *Server) Manager() *RoomManager {
	return s.manager
}

// handleWebSocket upgrades a client and starts its session
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.cfg, s.clock, s.manager, s.stats, func(c *Connection) {
		s.mu.Lock()
		delete(s.connections, c)
		total := len(s.connections)
		s.mu.Unlock()
		s.logger.Info("Client disconnected", "total", total)
	})

	s.mu.Lock()
	s.connections[client] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)

	client.Start()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleStats serves the fleet counters as JSON
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snapshot := s.stats.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error("Failed to encode stats", "error", err)
	}
}
