package eventlog

import "sync"

// OfflineQueue buffers events for a seat whose human is disconnected.
// The queue is a bounded FIFO; on overflow the oldest non-critical event
// is dropped first so phase changes, scoring, and game-end survive long
// disconnects.
type OfflineQueue struct {
	mu     sync.Mutex
	events []Event
	size   int
	// dropped counts events discarded by overflow, for observability
	dropped int
}

// NewOfflineQueue creates a queue bounded to size events
func NewOfflineQueue(size int) *OfflineQueue {
	if size <= 0 {
		size = 1
	}
	return &OfflineQueue{size: size}
}

// Push appends an event, evicting per the overflow policy when full
func (q *OfflineQueue) Push(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) >= q.size {
		idx := -1
		for i, queued := range q.events {
			if !queued.Critical() {
				idx = i
				break
			}
		}
		if idx == -1 {
			// every buffered event is critical; evict the oldest anyway
			idx = 0
		}
		q.events = append(q.events[:idx], q.events[idx+1:]...)
		q.dropped++
	}
	q.events = append(q.events, ev)
}

// Drain returns all buffered events in sequence order and empties the queue
func (q *OfflineQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}

// Len returns the number of buffered events
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns the number of events lost to overflow
func (q *OfflineQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
