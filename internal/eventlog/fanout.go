package eventlog

import "sync"

// Fanout routes a room's events to the right destination per seat: the
// seat's connected outbox, or its offline buffer while the original human
// is disconnected. Bot-origin seats have neither and their events are
// discarded.
type Fanout struct {
	mu          sync.RWMutex
	outboxes    [4]*Outbox
	offline     [4]*OfflineQueue
	offlineSize int
}

// NewFanout creates a fanout whose offline buffers hold offlineSize events
func NewFanout(offlineSize int) *Fanout {
	return &Fanout{offlineSize: offlineSize}
}

// Deliver routes one event. Broadcast events go to every seat; private
// events only to their target seat.
func (f *Fanout) Deliver(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for seat := 0; seat < 4; seat++ {
		if ev.Target != BroadcastTarget && ev.Target != seat {
			continue
		}
		if out := f.outboxes[seat]; out != nil {
			_ = out.Send(ev)
			continue
		}
		if q := f.offline[seat]; q != nil {
			q.Push(ev)
		}
	}
}

// Bind attaches a connection outbox to a seat and returns any events
// buffered while the seat was offline, in sequence order. The caller must
// deliver those before new events flow.
func (f *Fanout) Bind(seat int, out *Outbox) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	var buffered []Event
	if q := f.offline[seat]; q != nil {
		buffered = q.Drain()
		f.offline[seat] = nil
	}
	f.outboxes[seat] = out
	return buffered
}

// Unbind detaches the seat's outbox and starts buffering offline. Called
// when the seat's human disconnects mid-game.
func (f *Fanout) Unbind(seat int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outboxes[seat] = nil
	if f.offline[seat] == nil {
		f.offline[seat] = NewOfflineQueue(f.offlineSize)
	}
}

// Drop detaches the seat entirely with no offline buffering. Used when a
// seat leaves a pre-game room or the room closes.
func (f *Fanout) Drop(seat int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outboxes[seat] = nil
	f.offline[seat] = nil
}

// Outbox returns the seat's bound outbox, if any
func (f *Fanout) Outbox(seat int) *Outbox {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.outboxes[seat]
}

// OfflineLen returns the seat's offline buffer depth, 0 when absent
func (f *Fanout) OfflineLen(seat int) int {
	f.mu.RLock()
	q := f.offline[seat]
	f.mu.RUnlock()
	if q == nil {
		return 0
	}
	return q.Len()
}
