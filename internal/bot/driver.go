package bot

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Key identifies the seat a decision is scheduled for
type Key struct {
	RoomID string
	Seat   int
}

type scheduled struct {
	iter  int
	timer *quartz.Timer
}

// Driver schedules bot decisions with human-like think delays. Fired timers
// hand the decision back through the deliver callback, which enqueues it
// into the room's inbound queue like any other action; the driver never
// touches room state.
type Driver struct {
	logger   *log.Logger
	clock    quartz.Clock
	minDelay time.Duration
	maxDelay time.Duration

	mu        sync.Mutex
	rng       *rand.Rand
	scheduled map[Key]*scheduled
}

// NewDriver creates a driver drawing delays uniformly from [minDelay, maxDelay]
func NewDriver(logger *log.Logger, clock quartz.Clock, minDelay, maxDelay time.Duration, rng *rand.Rand) *Driver {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Driver{
		logger:    logger.WithPrefix("bot"),
		clock:     clock,
		minDelay:  minDelay,
		maxDelay:  maxDelay,
		rng:       rng,
		scheduled: make(map[Key]*scheduled),
	}
}

// Schedule arms a one-shot decision for the seat. At most one decision is
// outstanding per (room, seat, iteration): a repeat call with the same
// iteration is a no-op, a newer iteration cancels and replaces the old
// timer. The decision is computed from the view immediately; only delivery
// is delayed.
func (d *Driver) Schedule(key Key, iter int, view View, deliver func(Decision)) {
	decision := Decide(view)

	d.mu.Lock()
	if prev, ok := d.scheduled[key]; ok {
		if prev.iter == iter {
			d.mu.Unlock()
			return
		}
		prev.timer.Stop()
	}

	delay := d.minDelay
	if spread := d.maxDelay - d.minDelay; spread > 0 {
		delay += time.Duration(d.rng.Int64N(int64(spread) + 1))
	}

	entry := &scheduled{iter: iter}
	entry.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.scheduled[key] == entry {
			delete(d.scheduled, key)
		}
		d.mu.Unlock()
		deliver(decision)
	})
	d.scheduled[key] = entry
	d.mu.Unlock()

	d.logger.Debug("Scheduled decision", "room", key.RoomID, "seat", key.Seat, "iter", iter, "delay", delay)
}

// Cancel drops any outstanding decision for the seat
func (d *Driver) Cancel(key Key) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.scheduled[key]; ok {
		entry.timer.Stop()
		delete(d.scheduled, key)
	}
}

// CancelRoom drops every outstanding decision for the room
func (d *Driver) CancelRoom(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, entry := range d.scheduled {
		if key.RoomID == roomID {
			entry.timer.Stop()
			delete(d.scheduled, key)
		}
	}
}

// Pending returns the number of armed timers
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.scheduled)
}

// BotName builds a display name for the seat's bot
func BotName(seat int) string {
	var b strings.Builder
	b.WriteString("Bot ")
	b.WriteByte(byte('A' + seat))
	return b.String()
}
