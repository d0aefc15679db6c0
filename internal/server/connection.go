package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/liaptui/liaptui/internal/eventlog"
	"github.com/liaptui/liaptui/internal/protocol"
	"github.com/liaptui/liaptui/internal/room"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection is one client's WebSocket session. It owns the read and
// write pumps, the per-connection rate limiter, and once the client is
// seated, the outbox that tracks ack/retransmit for delivered events.
type Connection struct {
	id      string
	conn    *websocket.Conn
	send    chan *protocol.Message
	logger  *log.Logger
	cfg     *Config
	clock   quartz.Clock
	manager *RoomManager
	stats   *Stats
	limiter *rate.Limiter
	onClose func(*Connection)

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu           sync.RWMutex
	playerName   string
	room         *room.Room
	seat         int
	outbox       *eventlog.Outbox
	outboxCancel context.CancelFunc
}

// NewConnection wraps an upgraded WebSocket connection
func NewConnection(conn *websocket.Conn, logger *log.Logger, cfg *Config, clock quartz.Clock, manager *RoomManager, stats *Stats, onClose func(*Connection)) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Connection{
		id:      id,
		conn:    conn,
		send:    make(chan *protocol.Message, cfg.Server.OutboundQueueSize),
		logger:  logger.WithPrefix("conn").With("conn", id[:8]),
		cfg:     cfg,
		clock:   clock,
		manager: manager,
		stats:   stats,
		limiter: rate.NewLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst),
		onClose: onClose,
		ctx:     ctx,
		cancel:  cancel,
		seat:    -1,
	}
}

// ID returns the connection's unique identifier
func (c *Connection) ID() string { return c.id }

// Start begins handling the connection
func (c *Connection) Start() {
	c.stats.ConnectionOpened()
	go c.writePump()
	go c.readPump()
}

// Close tears the session down. The seat it held is handed to the room,
// which flips it to bot control mid-game. The socket itself is closed by
// the write pump after it drains whatever was already queued, so a final
// error envelope still reaches the client.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.detachRoom(true)
		close(c.send)
		c.stats.ConnectionClosed()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
	return nil
}

// detachRoom releases the connection's room binding. When disconnecting
// (rather than deliberately leaving) the seat is reported as dropped so
// the room can take it over — but only while this connection still owns
// the seat; a displaced connection's disconnect must not touch the
// reconnected player. The report runs asynchronously because Close can
// fire on the room actor's own goroutine (slow-consumer overflow during
// event delivery) and the actor cannot serve its own control call.
func (c *Connection) detachRoom(disconnect bool) {
	c.mu.Lock()
	r, seat, name := c.room, c.seat, c.playerName
	outboxCancel := c.outboxCancel
	c.room = nil
	c.seat = -1
	c.outbox = nil
	c.outboxCancel = nil
	c.mu.Unlock()

	if outboxCancel != nil {
		outboxCancel()
	}
	if r == nil || seat < 0 {
		return
	}
	owned := c.manager.ReleaseSeat(r.ID(), seat, c)
	if !disconnect || !owned {
		return
	}

	c.logger.Info("Seat dropped", "room", r.Code(), "seat", seat, "player", name)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.Disconnect(ctx, seat); err != nil && !errors.Is(err, room.ErrClosed) {
			c.logger.Warn("Failed to report disconnect", "room", r.Code(), "seat", seat, "error", err)
		}
	}()
}

// WriteEvent delivers a room event to the client. Implements the outbox's
// transport side; a full send buffer means the client has stopped reading
// and the connection is closed as slow.
func (c *Connection) WriteEvent(ev eventlog.Event) error {
	msg := ev.Message()
	return c.enqueue(&msg)
}

func (c *Connection) enqueue(msg *protocol.Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("Send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		c.stats.MessageOut()
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Send buffer full, closing slow connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) sendMessage(event string, data any) {
	msg, err := protocol.NewMessage(event, data)
	if err != nil {
		c.logger.Error("Failed to build message", "event", event, "error", err)
		return
	}
	_ = c.enqueue(msg)
}

func (c *Connection) sendReject(reason, detail string) {
	c.sendMessage(protocol.EventActionRejected, protocol.ActionRejectedData{Reason: reason, Detail: detail})
}

// sendError reports a transport-level failure. Delivery is best-effort;
// the connection is about to close.
func (c *Connection) sendError(reason string) {
	c.sendMessage(protocol.EventError, protocol.ErrorData{Reason: reason})
}

// rejectFunc adapts the room's rejection callback to this connection
func (c *Connection) rejectFunc() room.RejectFunc {
	return func(reason, detail string) {
		c.sendReject(reason, detail)
	}
}

func (c *Connection) boundRoom() (*room.Room, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room, c.seat
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout()))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout()))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg protocol.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}
		// any envelope refreshes the idle deadline, not just pongs
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout()))

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client. It owns the socket's
// lifetime: Close closes the send channel, the pump drains what was
// queued, writes the close frame, and only then tears the socket down.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one inbound envelope
func (c *Connection) handleMessage(msg *protocol.Message) {
	c.stats.MessageIn()
	c.logger.Debug("Received message", "event", msg.Event)

	// piggybacked acks ride on any envelope
	if msg.Ack > 0 {
		c.ackUpTo(msg.Ack)
	}

	switch msg.Event {
	case protocol.EventPing, protocol.EventAck:
		// keepalive traffic is exempt from the rate limit
	default:
		if !c.limiter.Allow() {
			c.sendReject(protocol.ReasonRateLimited, "slow down")
			return
		}
	}

	switch msg.Event {
	case protocol.EventPing:
		c.sendMessage(protocol.EventPong, nil)

	case protocol.EventAck:
		var data protocol.AckData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendReject(protocol.ReasonSchemaMismatch, "failed to parse ack")
			return
		}
		c.ackUpTo(data.Seq)

	case protocol.EventCreateRoom:
		var data protocol.CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendReject(protocol.ReasonSchemaMismatch, "failed to parse create_room")
			return
		}
		c.handleCreateRoom(data)

	case protocol.EventJoinRoom:
		var data protocol.JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendReject(protocol.ReasonSchemaMismatch, "failed to parse join_room")
			return
		}
		c.handleJoinRoom(data)

	case protocol.EventClientReady:
		c.handleClientReady()

	case protocol.EventListRooms:
		c.handleListRooms()

	case protocol.EventLeaveRoom:
		c.handleLeaveRoom()

	case protocol.EventAddBot:
		c.handleAddBot()

	case protocol.EventRemovePlayer:
		var data protocol.RemovePlayerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendReject(protocol.ReasonSchemaMismatch, "failed to parse remove_player")
			return
		}
		c.handleRemovePlayer(data)

	case protocol.EventStartGame:
		r, seat := c.boundRoom()
		if r == nil {
			c.sendReject(protocol.ReasonRoomNotFound, "not in a room")
			return
		}
		c.submitAction(r, room.Action{Kind: room.ActionStartGame, Seat: seat, Reject: c.rejectFunc()})

	case protocol.EventDeclare:
		var data protocol.DeclareData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendReject(protocol.ReasonSchemaMismatch, "failed to parse declare")
			return
		}
		c.submitGameAction(room.Action{Kind: room.ActionDeclare, Value: data.Value})

	case protocol.EventPlay:
		var data protocol.PlayData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendReject(protocol.ReasonSchemaMismatch, "failed to parse play")
			return
		}
		c.submitGameAction(room.Action{Kind: room.ActionPlay, Pieces: data.Pieces})

	case protocol.EventAcceptRedeal:
		c.submitGameAction(room.Action{Kind: room.ActionAcceptRedeal})

	case protocol.EventDeclineRedeal:
		c.submitGameAction(room.Action{Kind: room.ActionDeclineRedeal})

	case protocol.EventPlayerReady:
		c.submitGameAction(room.Action{Kind: room.ActionPlayerReady})

	case protocol.EventLeaveGame:
		c.handleLeaveGame()

	case protocol.EventRequestResync:
		var data protocol.RequestResyncData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendReject(protocol.ReasonSchemaMismatch, "failed to parse request_resync")
			return
		}
		c.handleRequestResync(data)

	default:
		c.sendReject(protocol.ReasonUnknownEvent, "unknown event: "+msg.Event)
	}
}

func (c *Connection) ackUpTo(seq int64) {
	c.mu.RLock()
	out := c.outbox
	c.mu.RUnlock()
	if out != nil {
		out.Ack(seq)
	}
}

func (c *Connection) handleCreateRoom(data protocol.CreateRoomData) {
	if data.PlayerName == "" {
		c.sendReject(protocol.ReasonInvalidMessage, "player_name is required")
		return
	}
	if r, _ := c.boundRoom(); r != nil {
		c.sendReject(protocol.ReasonInvalidMessage, "already in a room")
		return
	}

	r, err := c.manager.CreateRoom(data.PlayerName)
	if err != nil {
		c.sendReject(protocol.ReasonBusy, "failed to create room")
		return
	}

	c.mu.Lock()
	c.playerName = data.PlayerName
	c.room = r
	c.seat = 0
	c.mu.Unlock()
	c.manager.ClaimSeat(r.ID(), 0, c)

	c.sendMessage(protocol.EventRoomCreated, protocol.RoomCreatedData{RoomID: r.ID(), RoomCode: r.Code()})
	c.sendMessage(protocol.EventRoomJoined, protocol.RoomJoinedData{RoomID: r.ID(), RoomCode: r.Code(), Seat: 0})
}

func (c *Connection) handleJoinRoom(data protocol.JoinRoomData) {
	if data.PlayerName == "" {
		c.sendReject(protocol.ReasonInvalidMessage, "player_name is required")
		return
	}
	if r, _ := c.boundRoom(); r != nil {
		c.sendReject(protocol.ReasonInvalidMessage, "already in a room")
		return
	}

	r, err := c.manager.FindRoom(data.RoomCode)
	if err != nil {
		c.sendReject(protocol.ReasonRoomNotFound, "no room with code "+data.RoomCode)
		return
	}

	seat, rejoined, err := r.Join(c.ctx, data.PlayerName)
	if err != nil {
		c.sendReject(c.reasonForRoomError(err), err.Error())
		return
	}

	c.mu.Lock()
	c.playerName = data.PlayerName
	c.room = r
	c.seat = seat
	c.mu.Unlock()

	// a rejoin under the same name displaces the previous connection: it
	// loses its seat claim and is closed
	if prev := c.manager.ClaimSeat(r.ID(), seat, c); prev != nil {
		c.logger.Info("Displacing stale connection", "room", r.Code(), "seat", seat, "player", data.PlayerName)
		prev.sendError(protocol.ReasonSeatTaken)
		_ = prev.Close()
	}

	if rejoined {
		c.logger.Info("Player rejoined", "room", r.Code(), "seat", seat, "player", data.PlayerName)
	}
	c.sendMessage(protocol.EventRoomJoined, protocol.RoomJoinedData{RoomID: r.ID(), RoomCode: r.Code(), Seat: seat})
}

// handleClientReady binds the seat's delivery path: an outbox with
// ack/retransmit tracking, primed with everything buffered while the seat
// was offline.
func (c *Connection) handleClientReady() {
	r, seat := c.boundRoom()
	if r == nil {
		c.sendReject(protocol.ReasonRoomNotFound, "not in a room")
		return
	}

	out := eventlog.NewOutbox(c, c.cfg.OutboxConfig(), c.clock, func() {
		c.logger.Warn("Outbox exhausted retransmits, closing connection", "room", r.Code(), "seat", seat)
		c.sendError(protocol.ReasonRetransmitExceeded)
		_ = c.Close()
	})

	buffered, err := r.Attach(c.ctx, seat, out)
	if err != nil {
		c.sendReject(c.reasonForRoomError(err), err.Error())
		return
	}

	outboxCtx, outboxCancel := context.WithCancel(c.ctx)
	c.mu.Lock()
	if c.outboxCancel != nil {
		c.outboxCancel()
	}
	c.outbox = out
	c.outboxCancel = outboxCancel
	c.mu.Unlock()

	// offline backlog goes out ahead of live traffic
	for _, ev := range buffered {
		if err := out.Send(ev); err != nil {
			break
		}
	}
	go out.Run(outboxCtx)
}

func (c *Connection) handleListRooms() {
	ctx, cancel := context.WithTimeout(c.ctx, 2*time.Second)
	defer cancel()
	rooms := c.manager.ListRooms(ctx)
	c.sendMessage(protocol.EventRoomListUpdate, protocol.RoomListUpdateData{Rooms: rooms})
}

func (c *Connection) handleLeaveRoom() {
	r, seat := c.boundRoom()
	if r == nil {
		c.sendReject(protocol.ReasonRoomNotFound, "not in a room")
		return
	}
	if err := r.Leave(c.ctx, seat); err != nil && !errors.Is(err, room.ErrClosed) {
		c.sendReject(c.reasonForRoomError(err), err.Error())
		return
	}
	c.detachRoom(false)
}

// handleLeaveGame is the explicit mid-game walkout: the seat flips to bot
// control and the connection unbinds without a disconnect report.
func (c *Connection) handleLeaveGame() {
	r, seat := c.boundRoom()
	if r == nil {
		c.sendReject(protocol.ReasonRoomNotFound, "not in a room")
		return
	}
	c.submitAction(r, room.Action{Kind: room.ActionLeaveGame, Seat: seat, Reject: c.rejectFunc()})
	c.detachRoom(false)
}

func (c *Connection) handleAddBot() {
	r, seat := c.boundRoom()
	if r == nil {
		c.sendReject(protocol.ReasonRoomNotFound, "not in a room")
		return
	}
	if _, err := r.AddBot(c.ctx, seat); err != nil {
		c.sendReject(c.reasonForRoomError(err), err.Error())
	}
}

func (c *Connection) handleRemovePlayer(data protocol.RemovePlayerData) {
	r, seat := c.boundRoom()
	if r == nil {
		c.sendReject(protocol.ReasonRoomNotFound, "not in a room")
		return
	}
	if data.Seat < 0 || data.Seat > 3 {
		c.sendReject(protocol.ReasonInvalidMessage, "seat out of range")
		return
	}
	if err := r.RemovePlayer(c.ctx, seat, data.Seat); err != nil {
		c.sendReject(c.reasonForRoomError(err), err.Error())
	}
}

func (c *Connection) handleRequestResync(data protocol.RequestResyncData) {
	r, seat := c.boundRoom()
	if r == nil {
		c.sendReject(protocol.ReasonRoomNotFound, "not in a room")
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, 2*time.Second)
	defer cancel()
	events, full, err := r.Resync(ctx, seat, data.FromSeq)
	if err != nil {
		c.sendReject(protocol.ReasonBusy, "resync unavailable")
		return
	}
	c.sendMessage(protocol.EventResyncResponse, protocol.ResyncResponseData{Events: events, Full: full})
}

// submitGameAction routes a gameplay action to the bound room with the
// connection's seat and rejection path filled in
func (c *Connection) submitGameAction(a room.Action) {
	r, seat := c.boundRoom()
	if r == nil {
		c.sendReject(protocol.ReasonRoomNotFound, "not in a room")
		return
	}
	a.Seat = seat
	a.Reject = c.rejectFunc()
	c.submitAction(r, a)
}

func (c *Connection) submitAction(r *room.Room, a room.Action) {
	switch err := r.Submit(a); {
	case errors.Is(err, room.ErrBusy):
		c.sendReject(protocol.ReasonBusy, "room is busy, retry")
	case errors.Is(err, room.ErrClosed):
		c.sendReject(protocol.ReasonRoomNotFound, "room is closed")
	}
}

func (c *Connection) reasonForRoomError(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomFull):
		return protocol.ReasonRoomFull
	case errors.Is(err, room.ErrNotHost):
		return protocol.ReasonNotHost
	case errors.Is(err, room.ErrRoomStarted):
		return protocol.ReasonWrongPhase
	case errors.Is(err, room.ErrSeatVacant):
		return protocol.ReasonInvalidMessage
	case errors.Is(err, room.ErrBusy):
		return protocol.ReasonBusy
	case errors.Is(err, room.ErrClosed):
		return protocol.ReasonRoomNotFound
	}
	return protocol.ReasonInvalidMessage
}
