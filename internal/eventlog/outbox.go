package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Writer is the transport side of an outbox; the session gateway's
// connection implements it.
type Writer interface {
	WriteEvent(Event) error
}

// OutboxConfig bounds the retransmit cycle
type OutboxConfig struct {
	RetransmitTimeout time.Duration
	RetransmitLimit   int
}

type pendingEvent struct {
	event    Event
	lastSent time.Time
	attempts int
}

// Outbox tracks unacknowledged events for one connection and resends them
// until acked. After RetransmitLimit failed resends the connection is
// declared dead via the onDead callback.
type Outbox struct {
	mu      sync.Mutex
	pending map[int64]*pendingEvent
	writer  Writer
	cfg     OutboxConfig
	clock   quartz.Clock
	onDead  func()
	dead    bool
}

// NewOutbox creates an outbox writing through w
func NewOutbox(w Writer, cfg OutboxConfig, clock quartz.Clock, onDead func()) *Outbox {
	if cfg.RetransmitTimeout <= 0 {
		cfg.RetransmitTimeout = 2 * time.Second
	}
	if cfg.RetransmitLimit <= 0 {
		cfg.RetransmitLimit = 5
	}
	return &Outbox{
		pending: make(map[int64]*pendingEvent),
		writer:  w,
		cfg:     cfg,
		clock:   clock,
		onDead:  onDead,
	}
}

// Send writes the event and tracks it until acknowledged
func (o *Outbox) Send(ev Event) error {
	o.mu.Lock()
	if o.dead {
		o.mu.Unlock()
		return nil
	}
	o.pending[ev.Seq] = &pendingEvent{event: ev, lastSent: o.clock.Now()}
	o.mu.Unlock()

	return o.writer.WriteEvent(ev)
}

// Ack removes every pending entry with sequence <= seq. Acking an already
// acknowledged sequence is a no-op.
func (o *Outbox) Ack(seq int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for s := range o.pending {
		if s <= seq {
			delete(o.pending, s)
		}
	}
}

// PendingCount returns the number of unacknowledged events
func (o *Outbox) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Run drives the retransmit cycle until the context is cancelled. Events
// unacked past the timeout are resent; an event that exhausts the
// retransmit limit marks the connection dead.
func (o *Outbox) Run(ctx context.Context) {
	ticker := o.clock.NewTicker(o.cfg.RetransmitTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !o.retransmit() {
				return
			}
		}
	}
}

// retransmit resends overdue events; returns false once the connection
// has been declared dead.
func (o *Outbox) retransmit() bool {
	now := o.clock.Now()

	o.mu.Lock()
	var overdue []*pendingEvent
	for _, p := range o.pending {
		if now.Sub(p.lastSent) >= o.cfg.RetransmitTimeout {
			if p.attempts >= o.cfg.RetransmitLimit {
				o.dead = true
				break
			}
			p.attempts++
			p.lastSent = now
			overdue = append(overdue, p)
		}
	}
	dead := o.dead
	if dead {
		o.pending = make(map[int64]*pendingEvent)
	}
	o.mu.Unlock()

	if dead {
		if o.onDead != nil {
			o.onDead()
		}
		return false
	}

	for _, p := range overdue {
		if err := o.writer.WriteEvent(p.event); err != nil {
			return true
		}
	}
	return true
}
