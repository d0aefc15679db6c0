// Package eventlog provides the per-room sequenced event log and the
// delivery machinery around it: per-connection outboxes with ack tracking
// and retransmit, and per-seat offline buffers for disconnected players.
package eventlog

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/liaptui/liaptui/internal/protocol"
)

// BroadcastTarget marks an event addressed to every seat in the room
const BroadcastTarget = -1

// ErrTooOld is returned by Tail when the requested sequence has fallen
// below the ring's retained floor; the caller must serve a full resync
// from a synthesized snapshot instead.
var ErrTooOld = errors.New("requested sequence below retained window")

// Event is one entry of a room's append-only sequence
type Event struct {
	RoomID    string          `json:"room_id"`
	Seq       int64           `json:"seq"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	// Target is the seat the event is private to, or BroadcastTarget.
	Target int `json:"target"`
}

// Critical reports whether the event must survive offline-queue overflow
func (e Event) Critical() bool {
	switch e.Kind {
	case protocol.EventPhaseChange,
		protocol.EventRoundScored,
		protocol.EventGameEnded,
		protocol.EventTurnResolved,
		protocol.EventRoomClosed:
		return true
	}
	return false
}

// Message converts the event to its transport envelope
func (e Event) Message() protocol.Message {
	return protocol.Message{Event: e.Kind, Data: e.Payload, Seq: e.Seq}
}

// Log is a bounded, totally-ordered event ring for one room. Sequence
// numbers are monotonic and gap-free starting at 1. Safe for concurrent
// use; only the room actor appends.
type Log struct {
	mu     sync.RWMutex
	roomID string
	ring   []Event
	size   int
	seq    int64
}

// NewLog creates a log retaining the last size events
func NewLog(roomID string, size int) *Log {
	if size <= 0 {
		size = 1
	}
	return &Log{roomID: roomID, ring: make([]Event, 0, size), size: size}
}

// Append assigns the next sequence number and stores the event
func (l *Log) Append(kind string, payload any, target int) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	ev := Event{
		RoomID:    l.roomID,
		Seq:       l.seq,
		Kind:      kind,
		Payload:   raw,
		Timestamp: time.Now(),
		Target:    target,
	}
	if len(l.ring) == l.size {
		copy(l.ring, l.ring[1:])
		l.ring = l.ring[:l.size-1]
	}
	l.ring = append(l.ring, ev)
	return ev, nil
}

// Seq returns the last assigned sequence number
func (l *Log) Seq() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Floor returns the lowest sequence number still retained, or 0 when empty
func (l *Log) Floor() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.ring) == 0 {
		return 0
	}
	return l.ring[0].Seq
}

// Tail returns the retained events with sequence > fromSeq that are
// visible to the given seat. Returns ErrTooOld if fromSeq precedes the
// retained window.
func (l *Log) Tail(fromSeq int64, seat int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.ring) > 0 && fromSeq+1 < l.ring[0].Seq {
		return nil, ErrTooOld
	}

	var events []Event
	for _, ev := range l.ring {
		if ev.Seq <= fromSeq {
			continue
		}
		if ev.Target != BroadcastTarget && ev.Target != seat {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// All returns every retained event in order. Used by the archive hook.
func (l *Log) All() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.ring))
	copy(out, l.ring)
	return out
}
