package room

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/liaptui/liaptui/internal/bot"
	"github.com/liaptui/liaptui/internal/eventlog"
	"github.com/liaptui/liaptui/internal/protocol"
)

var (
	ErrRoomFull    = errors.New("room is full")
	ErrNotHost     = errors.New("issuer is not the host")
	ErrRoomStarted = errors.New("room has already started")
	ErrSeatVacant  = errors.New("seat is vacant")
	ErrBusy        = errors.New("room inbox is full")
	ErrClosed      = errors.New("room is closed")
)

// invariantLimit is how many contained invariant violations a round
// tolerates before the room is terminated.
const invariantLimit = 3

// game is the single-writer core of a room. Only the room actor goroutine
// may call its methods; everything observable leaves through emit.
type game struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	id   string
	code string

	phase   Phase
	players [4]*Player
	host    int
	started bool

	round      int
	starter    int
	current    int
	declCount  int
	turnNumber int

	trick       []SeatPlay
	redealQueue []int
	redealCount int

	// pieces led across resolved tricks this round, for deck conservation
	piecesLed int

	resultsUntil  time.Time
	phaseIter     int
	invariantHits int

	log    *eventlog.Log
	fanout *eventlog.Fanout
	driver *bot.Driver
	// submit re-enters the room's inbound queue; bot decisions use it
	submit func(Action)
}

func newGame(cfg Config, logger *log.Logger, clock quartz.Clock, rng *rand.Rand, id, code, hostName string, driver *bot.Driver, submit func(Action)) *game {
	g := &game{
		cfg:    cfg,
		logger: logger.WithPrefix("room").With("room", code),
		clock:  clock,
		rng:    rng,
		id:     id,
		code:   code,
		phase:  Lobby,
		log:    eventlog.NewLog(id, cfg.EventRingSize),
		fanout: eventlog.NewFanout(cfg.OfflineQueueSize),
		driver: driver,
		submit: submit,
	}
	g.players[0] = &Player{Name: hostName, Seat: 0}
	g.host = 0
	return g
}

// emit is the single mutation-visible path: append to the log, then fan
// out to every bound seat. All observable state changes flow through here.
func (g *game) emit(kind string, payload any, target int) {
	ev, err := g.log.Append(kind, payload, target)
	if err != nil {
		g.logger.Error("Failed to append event", "kind", kind, "error", err)
		return
	}
	g.fanout.Deliver(ev)
}

func (g *game) emitRoomUpdate() {
	g.emit(protocol.EventRoomUpdate, g.roomUpdate(), eventlog.BroadcastTarget)
}

func (g *game) roomUpdate() protocol.RoomUpdateData {
	var data protocol.RoomUpdateData
	for seat, p := range g.players {
		if p == nil {
			continue
		}
		data.Seats[seat] = protocol.SeatInfo{
			Name:      p.Name,
			Occupied:  true,
			IsBot:     p.IsBot,
			Connected: p.Connected,
		}
	}
	data.Host = g.host
	data.Started = g.started
	return data
}

// lowestVacantSeat returns the first empty seat, or -1 when full
func (g *game) lowestVacantSeat() int {
	for seat, p := range g.players {
		if p == nil {
			return seat
		}
	}
	return -1
}

// recomputeHost keeps the host on the lowest seat occupied by a human.
// When only bots remain the host index is left alone; an in-progress room
// plays on bot-only and a lobby room is closed by the manager.
func (g *game) recomputeHost() {
	for seat, p := range g.players {
		if p != nil && !p.IsBot {
			g.host = seat
			return
		}
	}
}

// seatByName finds the seat occupied under the given player name
func (g *game) seatByName(name string) int {
	for seat, p := range g.players {
		if p != nil && p.Name == name {
			return seat
		}
	}
	return -1
}

// connectedHumans counts seats with a live human connection
func (g *game) connectedHumans() int {
	n := 0
	for _, p := range g.players {
		if p != nil && !p.IsBot && p.Connected {
			n++
		}
	}
	return n
}

// humanSeats counts seats whose original occupant is human
func (g *game) humanSeats() int {
	n := 0
	for _, p := range g.players {
		if p != nil && !p.OriginalIsBot {
			n++
		}
	}
	return n
}

// join seats a new player, or recognises a returning one by name. The
// second return is true for the reconnect case.
func (g *game) join(name string) (int, bool, error) {
	if seat := g.seatByName(name); seat >= 0 {
		return seat, true, nil
	}
	if g.started {
		return 0, false, ErrRoomStarted
	}
	seat := g.lowestVacantSeat()
	if seat < 0 {
		return 0, false, ErrRoomFull
	}
	g.players[seat] = &Player{Name: name, Seat: seat}
	g.recomputeHost()
	g.emitRoomUpdate()
	return seat, false, nil
}

// addBot seats a bot in the lowest vacant seat; host only, lobby only
func (g *game) addBot(issuedBy int) (int, error) {
	if issuedBy != g.host {
		return 0, ErrNotHost
	}
	if g.started {
		return 0, ErrRoomStarted
	}
	seat := g.lowestVacantSeat()
	if seat < 0 {
		return 0, ErrRoomFull
	}
	g.players[seat] = &Player{
		Name:          bot.BotName(seat),
		Seat:          seat,
		IsBot:         true,
		OriginalIsBot: true,
	}
	g.emitRoomUpdate()
	return seat, nil
}

// removePlayer evicts a seat pre-game; host only
func (g *game) removePlayer(issuedBy, seat int) error {
	if issuedBy != g.host {
		return ErrNotHost
	}
	if g.started {
		return ErrRoomStarted
	}
	if seat < 0 || seat > 3 || g.players[seat] == nil {
		return ErrSeatVacant
	}
	g.players[seat] = nil
	g.fanout.Drop(seat)
	g.recomputeHost()
	g.emit(protocol.EventPlayerLeft, protocol.PlayerLeftData{Seat: seat}, eventlog.BroadcastTarget)
	g.emitRoomUpdate()
	return nil
}

// leave handles a player leaving the room. Pre-game the seat is vacated
// and the host migrates; in-game the seat flips to bot control so the
// game never stalls.
func (g *game) leave(seat int) error {
	if seat < 0 || seat > 3 || g.players[seat] == nil {
		return ErrSeatVacant
	}
	if !g.started {
		g.players[seat] = nil
		g.fanout.Drop(seat)
		g.recomputeHost()
		g.emit(protocol.EventPlayerLeft, protocol.PlayerLeftData{Seat: seat}, eventlog.BroadcastTarget)
		g.emitRoomUpdate()
		return nil
	}
	g.takeOverSeat(seat)
	g.emit(protocol.EventPlayerLeft, protocol.PlayerLeftData{Seat: seat}, eventlog.BroadcastTarget)
	g.emitRoomUpdate()
	return nil
}

// disconnect marks a seat's transport dead. In-game the bot takes over
// and events buffer offline for the original human; pre-game it behaves
// like leave.
func (g *game) disconnect(seat int) error {
	if seat < 0 || seat > 3 || g.players[seat] == nil {
		return ErrSeatVacant
	}
	if !g.started {
		return g.leave(seat)
	}
	g.takeOverSeat(seat)
	g.emitRoomUpdate()
	return nil
}

// takeOverSeat flips a seat to bot control and starts offline buffering.
// The phase iteration bumps so the driver schedules a decision even when
// the phase has not changed.
func (g *game) takeOverSeat(seat int) {
	p := g.players[seat]
	p.Connected = false
	p.IsBot = true
	g.fanout.Unbind(seat)
	g.recomputeHost()
	g.phaseIter++
	g.notifyBots()
	g.logger.Info("Seat flipped to bot control", "seat", seat, "player", p.Name)
}

// attach binds a connection's outbox to a seat and returns events
// buffered while the seat was offline. For a returning human the seat's
// bot control is revoked and any armed bot timer cancelled.
func (g *game) attach(seat int, out *eventlog.Outbox) ([]eventlog.Event, error) {
	if seat < 0 || seat > 3 || g.players[seat] == nil {
		return nil, ErrSeatVacant
	}
	p := g.players[seat]
	buffered := g.fanout.Bind(seat, out)
	p.Connected = true
	if !p.OriginalIsBot && p.IsBot {
		p.IsBot = false
		g.driver.Cancel(bot.Key{RoomID: g.id, Seat: seat})
		g.logger.Info("Seat restored to human control", "seat", seat, "player", p.Name)
	}
	g.recomputeHost()
	g.emitRoomUpdate()
	return buffered, nil
}

// summary builds the lobby listing entry for this room
func (g *game) summary() protocol.RoomSummary {
	occupied := 0
	for _, p := range g.players {
		if p != nil {
			occupied++
		}
	}
	return protocol.RoomSummary{
		RoomCode: g.code,
		HostName: g.hostName(),
		Occupied: occupied,
		Total:    4,
		Started:  g.started,
	}
}

func (g *game) hostName() string {
	if p := g.players[g.host]; p != nil {
		return p.Name
	}
	return ""
}

// close terminates the room, notifying every bound seat
func (g *game) close(reason string) {
	g.driver.CancelRoom(g.id)
	g.emit(protocol.EventRoomClosed, protocol.RoomClosedData{Reason: reason}, eventlog.BroadcastTarget)
	for seat := 0; seat < 4; seat++ {
		g.fanout.Drop(seat)
	}
	g.logger.Info("Room closed", "reason", reason)
}

// handleAction dispatches one inbound action. A panic inside a handler is
// contained: the action is discarded, a room_error is appended, and the
// room keeps running unless violations pile up.
func (g *game) handleAction(a Action) {
	defer func() {
		if r := recover(); r != nil {
			g.invariantHits++
			g.logger.Error("Action handler panicked", "action", a.Kind.String(), "seat", a.Seat, "panic", r)
			g.emit(protocol.EventRoomError, protocol.RoomErrorData{Detail: fmt.Sprintf("%v", r)}, eventlog.BroadcastTarget)
			if g.invariantHits >= invariantLimit && g.phase != GameOver {
				g.endGame(-1, "internal")
			}
		}
	}()

	switch a.Kind {
	case ActionStartGame:
		g.startGame(a)
	case ActionDeclare:
		g.declare(a)
	case ActionPlay:
		g.play(a)
	case ActionAcceptRedeal:
		g.decideRedeal(a, true)
	case ActionDeclineRedeal:
		g.decideRedeal(a, false)
	case ActionPlayerReady:
		g.playerReady(a)
	case ActionLeaveGame:
		if err := g.leave(a.Seat); err != nil {
			g.rejectAction(a, protocol.ReasonWrongPhase, err.Error())
		}
	default:
		g.rejectAction(a, protocol.ReasonUnknownEvent, "")
	}
}

// rejectAction reports a failure to the submitter only; room state is
// untouched and nothing is broadcast.
func (g *game) rejectAction(a Action, reason, detail string) {
	if a.Reject == nil {
		// bots must only generate valid actions
		g.logger.Warn("Bot action rejected", "action", a.Kind.String(), "seat", a.Seat, "reason", reason, "detail", detail)
		return
	}
	a.Reject(reason, detail)
}
