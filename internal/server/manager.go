package server

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/liaptui/liaptui/internal/bot"
	"github.com/liaptui/liaptui/internal/protocol"
	"github.com/liaptui/liaptui/internal/randutil"
	"github.com/liaptui/liaptui/internal/room"
	"github.com/liaptui/liaptui/internal/roomid"
)

var ErrRoomNotFound = errors.New("room not found")

// janitorInterval is how often idle rooms are swept
const janitorInterval = time.Second

type seatKey struct {
	roomID string
	seat   int
}

type managedRoom struct {
	room   *room.Room
	cancel context.CancelFunc
	// emptySince is when the room was last seen without connected humans
	// (or terminal); zero while the room is healthy
	emptySince time.Time
}

// RoomManager owns the fleet: room creation and teardown, code lookup,
// lobby listings, and the reaper that closes abandoned and finished rooms.
// Per-room game state is never touched here; rooms are reached only
// through their actor API.
type RoomManager struct {
	logger  *log.Logger
	cfg     *Config
	clock   quartz.Clock
	driver  *bot.Driver
	gen     *roomid.Generator
	archive ArchiveSink
	stats   *Stats

	mu     sync.RWMutex
	byCode map[string]*managedRoom
	byID   map[string]*managedRoom

	// seatMu guards the live-connection claim per seat; a reconnect
	// displaces the previous claimant, whose disconnect reports are then
	// ignored
	seatMu     sync.Mutex
	seatOwners map[seatKey]*Connection

	seedMu sync.Mutex
	seeds  *rand.Rand

	runCtx context.Context
}

// NewRoomManager creates a manager; Run must be started before rooms are
// created.
func NewRoomManager(logger *log.Logger, cfg *Config, clock quartz.Clock, driver *bot.Driver, gen *roomid.Generator, archive ArchiveSink, stats *Stats) *RoomManager {
	return &RoomManager{
		logger:     logger.WithPrefix("rooms"),
		cfg:        cfg,
		clock:      clock,
		driver:     driver,
		gen:        gen,
		archive:    archive,
		stats:      stats,
		byCode:     make(map[string]*managedRoom),
		byID:       make(map[string]*managedRoom),
		seatOwners: make(map[seatKey]*Connection),
		seeds:      randutil.New(clock.Now().UnixNano()),
	}
}

// Run sweeps rooms until the context is cancelled. Rooms created under
// this manager stop with it.
func (m *RoomManager) Run(ctx context.Context) {
	m.mu.Lock()
	m.runCtx = ctx
	m.mu.Unlock()

	ticker := m.clock.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll("server shutdown")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// CreateRoom allocates a room with the host in seat 0 and starts its actor
func (m *RoomManager) CreateRoom(hostName string) (*room.Room, error) {
	m.seedMu.Lock()
	seed := m.seeds.Int64()
	m.seedMu.Unlock()

	id := m.gen.NewID()

	m.mu.Lock()
	code := m.gen.NewCode()
	for m.byCode[code] != nil {
		code = m.gen.NewCode()
	}

	r := room.New(m.cfg.RoomConfig(), m.logger, m.clock, randutil.New(seed), id, code, hostName, m.driver)
	runCtx, cancel := context.WithCancel(m.roomCtxLocked())
	managed := &managedRoom{room: r, cancel: cancel}
	m.byCode[code] = managed
	m.byID[id] = managed
	m.mu.Unlock()

	go r.Run(runCtx)
	m.stats.RoomCreated()
	m.logger.Info("Room created", "room", code, "host", hostName)
	return r, nil
}

func (m *RoomManager) roomCtxLocked() context.Context {
	if m.runCtx != nil {
		return m.runCtx
	}
	return context.Background()
}

// FindRoom resolves a room by its shareable code
func (m *RoomManager) FindRoom(code string) (*room.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	managed, ok := m.byCode[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return managed.room, nil
}

// RoomByID resolves a room by its unique identifier
func (m *RoomManager) RoomByID(id string) (*room.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	managed, ok := m.byID[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return managed.room, nil
}

// ListRooms returns summaries of every non-terminal room
func (m *RoomManager) ListRooms(ctx context.Context) []protocol.RoomSummary {
	m.mu.RLock()
	rooms := make([]*room.Room, 0, len(m.byCode))
	for _, managed := range m.byCode {
		rooms = append(rooms, managed.room)
	}
	m.mu.RUnlock()

	summaries := make([]protocol.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		st, err := r.Status(ctx)
		if err != nil || st.Phase == room.GameOver {
			continue
		}
		summaries = append(summaries, st.Summary)
	}
	return summaries
}

// RoomCount returns the number of live rooms
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// ClaimSeat records conn as the live connection for a seat and returns
// the connection it displaced, if any. The caller closes the displaced
// connection; its seat bindings are already invalid.
func (m *RoomManager) ClaimSeat(roomID string, seat int, conn *Connection) *Connection {
	m.seatMu.Lock()
	defer m.seatMu.Unlock()
	key := seatKey{roomID: roomID, seat: seat}
	prev := m.seatOwners[key]
	m.seatOwners[key] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// ReleaseSeat drops conn's claim on a seat. It reports false when the
// seat has since been claimed by another connection, in which case conn's
// disconnect must not be applied to the room.
func (m *RoomManager) ReleaseSeat(roomID string, seat int, conn *Connection) bool {
	m.seatMu.Lock()
	defer m.seatMu.Unlock()
	key := seatKey{roomID: roomID, seat: seat}
	if m.seatOwners[key] != conn {
		return false
	}
	delete(m.seatOwners, key)
	return true
}

func (m *RoomManager) dropSeatClaims(roomID string) {
	m.seatMu.Lock()
	defer m.seatMu.Unlock()
	for key := range m.seatOwners {
		if key.roomID == roomID {
			delete(m.seatOwners, key)
		}
	}
}

// CloseRoom tears a room down, archiving its event stream
func (m *RoomManager) CloseRoom(id, reason string) {
	m.mu.Lock()
	managed, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.byID, id)
	delete(m.byCode, managed.room.Code())
	m.mu.Unlock()
	m.dropSeatClaims(id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, statusErr := managed.room.Status(ctx)
	managed.room.Close(ctx, reason)
	managed.cancel()

	if m.archive != nil && statusErr == nil && status.Summary.Started {
		if err := m.archive.ArchiveRoom(status.Summary, managed.room.Events()); err != nil {
			m.logger.Error("Failed to archive room", "room", managed.room.Code(), "error", err)
		}
	}
	m.stats.RoomClosed()
	m.logger.Info("Room closed", "room", managed.room.Code(), "reason", reason)
}

func (m *RoomManager) closeAll(reason string) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.CloseRoom(id, reason)
	}
}

// sweep closes rooms that have been terminal or human-less past the grace
// window. The grace keeps a disconnected player's room alive long enough
// to reconnect.
func (m *RoomManager) sweep(ctx context.Context) {
	m.mu.RLock()
	managed := make([]*managedRoom, 0, len(m.byID))
	for _, mr := range m.byID {
		managed = append(managed, mr)
	}
	m.mu.RUnlock()

	now := m.clock.Now()
	grace := m.cfg.EmptyRoomGrace()

	for _, mr := range managed {
		st, err := mr.room.Status(ctx)
		if err != nil {
			continue
		}
		reapable := st.Phase == room.GameOver || st.ConnectedHumans == 0
		if !reapable {
			mr.emptySince = time.Time{}
			continue
		}
		if mr.emptySince.IsZero() {
			mr.emptySince = now
			continue
		}
		if now.Sub(mr.emptySince) >= grace {
			reason := "abandoned"
			if st.Phase == room.GameOver {
				reason = "game over"
				m.stats.GameCompleted()
			}
			m.CloseRoom(mr.room.ID(), reason)
		}
	}
}
