package room

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/liaptui/liaptui/internal/bot"
	"github.com/liaptui/liaptui/internal/eventlog"
	"github.com/liaptui/liaptui/internal/protocol"
)

// Room is the actor wrapper around a game. All game state is owned by the
// Run goroutine; other goroutines reach it through the bounded inbox
// (player and bot actions) or the control channel (lifecycle operations,
// which take priority over queued actions).
type Room struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock

	inbox chan Action
	ctrl  chan func()
	done  chan struct{}
	stop  sync.Once

	g *game
}

// Status is the manager's view of a room's health
type Status struct {
	Summary         protocol.RoomSummary
	Phase           Phase
	ConnectedHumans int
	HumanSeats      int
}

// New creates a room with the host seated at seat 0. Run must be started
// for the room to process anything.
func New(cfg Config, logger *log.Logger, clock quartz.Clock, rng *rand.Rand, id, code, hostName string, driver *bot.Driver) *Room {
	r := &Room{
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		inbox:  make(chan Action, cfg.InboxSize),
		ctrl:   make(chan func(), 16),
		done:   make(chan struct{}),
	}
	r.g = newGame(cfg, logger, clock, rng, id, code, hostName, driver, func(a Action) {
		if err := r.Submit(a); err != nil {
			logger.Warn("Dropped bot action", "room", code, "seat", a.Seat, "error", err)
		}
	})
	return r
}

// ID returns the room's unique identifier
func (r *Room) ID() string { return r.g.id }

// Code returns the human-shareable room code
func (r *Room) Code() string { return r.g.code }

// Run drives the actor until the context is cancelled or the room closes.
// Control operations are drained ahead of queued actions so disconnects
// and joins are never stuck behind a full inbox.
func (r *Room) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-r.ctrl:
			fn()
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case fn := <-r.ctrl:
			fn()
		case a := <-r.inbox:
			r.g.handleAction(a)
		case <-ticker.C:
			r.g.tick()
		}
	}
}

// Submit enqueues an action without blocking. A full inbox returns ErrBusy
// so the gateway can surface BUSY to the submitter.
func (r *Room) Submit(a Action) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}
	select {
	case r.inbox <- a:
		return nil
	case <-r.done:
		return ErrClosed
	default:
		return ErrBusy
	}
}

// call runs fn on the actor goroutine and waits for it to finish
func (r *Room) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		fn()
	}
	select {
	case r.ctrl <- wrapped:
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join seats a player by name, or recognises a returning player. The
// second return is true when the name already held a seat.
func (r *Room) Join(ctx context.Context, name string) (int, bool, error) {
	var (
		seat     int
		rejoined bool
		err      error
	)
	callErr := r.call(ctx, func() {
		seat, rejoined, err = r.g.join(name)
	})
	if callErr != nil {
		return 0, false, callErr
	}
	return seat, rejoined, err
}

// AddBot fills the lowest vacant seat with a bot; host only
func (r *Room) AddBot(ctx context.Context, issuedBy int) (int, error) {
	var (
		seat int
		err  error
	)
	callErr := r.call(ctx, func() {
		seat, err = r.g.addBot(issuedBy)
	})
	if callErr != nil {
		return 0, callErr
	}
	return seat, err
}

// RemovePlayer evicts a seat pre-game; host only
func (r *Room) RemovePlayer(ctx context.Context, issuedBy, seat int) error {
	var err error
	callErr := r.call(ctx, func() {
		err = r.g.removePlayer(issuedBy, seat)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Leave vacates a seat pre-game or flips it to bot control in-game
func (r *Room) Leave(ctx context.Context, seat int) error {
	var err error
	callErr := r.call(ctx, func() {
		err = r.g.leave(seat)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Disconnect marks a seat's transport dead
func (r *Room) Disconnect(ctx context.Context, seat int) error {
	var err error
	callErr := r.call(ctx, func() {
		err = r.g.disconnect(seat)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Attach binds a connection outbox to a seat, returning events buffered
// while the seat was offline. The caller must write those before any
// newly delivered events.
func (r *Room) Attach(ctx context.Context, seat int, out *eventlog.Outbox) ([]eventlog.Event, error) {
	var (
		buffered []eventlog.Event
		err      error
	)
	callErr := r.call(ctx, func() {
		buffered, err = r.g.attach(seat, out)
	})
	if callErr != nil {
		return nil, callErr
	}
	return buffered, err
}

// StartGame submits the host's start action
func (r *Room) StartGame(seat int, reject RejectFunc) error {
	return r.Submit(Action{Kind: ActionStartGame, Seat: seat, Reject: reject})
}

// Status reports the room's current occupancy and phase
func (r *Room) Status(ctx context.Context) (Status, error) {
	var status Status
	err := r.call(ctx, func() {
		status = Status{
			Summary:         r.g.summary(),
			Phase:           r.g.phase,
			ConnectedHumans: r.g.connectedHumans(),
			HumanSeats:      r.g.humanSeats(),
		}
	})
	return status, err
}

// Resync returns the events a client missed since fromSeq. When fromSeq
// has fallen below the ring's floor, a synthesized snapshot is returned
// instead and the second result is true.
func (r *Room) Resync(ctx context.Context, seat int, fromSeq int64) ([]protocol.Message, bool, error) {
	events, err := r.g.log.Tail(fromSeq, seat)
	if err == nil {
		messages := make([]protocol.Message, 0, len(events))
		for _, ev := range events {
			messages = append(messages, ev.Message())
		}
		return messages, false, nil
	}

	var snapshot protocol.Message
	var snapErr error
	callErr := r.call(ctx, func() {
		snapshot, snapErr = r.g.snapshotMessage(seat)
	})
	if callErr != nil {
		return nil, false, callErr
	}
	if snapErr != nil {
		return nil, false, snapErr
	}

	tail, tailErr := r.g.log.Tail(snapshot.Seq, seat)
	messages := []protocol.Message{snapshot}
	if tailErr == nil {
		for _, ev := range tail {
			messages = append(messages, ev.Message())
		}
	}
	return messages, true, nil
}

// Events returns the room's retained event window, oldest first. The
// archive hook consumes this when a terminal room is torn down.
func (r *Room) Events() []eventlog.Event {
	return r.g.log.All()
}

// Seq returns the room's current event sequence
func (r *Room) Seq() int64 {
	return r.g.log.Seq()
}

// Close tears the room down: bots cancelled, seats dropped, actor stopped
func (r *Room) Close(ctx context.Context, reason string) {
	_ = r.call(ctx, func() {
		r.g.close(reason)
	})
	r.stop.Do(func() { close(r.done) })
}

// Done reports when the room actor has stopped
func (r *Room) Done() <-chan struct{} {
	return r.done
}
