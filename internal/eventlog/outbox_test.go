package eventlog

import (
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/liaptui/liaptui/internal/protocol"
)

// captureWriter records every event written through it
type captureWriter struct {
	mu     sync.Mutex
	events []Event
}

func (w *captureWriter) WriteEvent(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	return nil
}

func (w *captureWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

func TestOutboxSendTracksPending(t *testing.T) {
	mock := quartz.NewMock(t)
	w := &captureWriter{}
	o := NewOutbox(w, OutboxConfig{}, mock, nil)

	require.NoError(t, o.Send(Event{Seq: 1, Kind: protocol.EventPlayMade}))
	require.NoError(t, o.Send(Event{Seq: 2, Kind: protocol.EventPlayMade}))

	require.Equal(t, 2, o.PendingCount())
	require.Equal(t, 2, w.count())
}

func TestOutboxAckIsCumulative(t *testing.T) {
	mock := quartz.NewMock(t)
	o := NewOutbox(&captureWriter{}, OutboxConfig{}, mock, nil)

	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, o.Send(Event{Seq: seq}))
	}

	o.Ack(2)
	require.Equal(t, 1, o.PendingCount())

	// double-acking the same sequence is a no-op
	o.Ack(2)
	require.Equal(t, 1, o.PendingCount())

	o.Ack(3)
	require.Zero(t, o.PendingCount())
}

func TestOutboxRetransmitsOverdueThenAck(t *testing.T) {
	mock := quartz.NewMock(t)
	w := &captureWriter{}
	cfg := OutboxConfig{RetransmitTimeout: 2 * time.Second, RetransmitLimit: 5}
	o := NewOutbox(w, cfg, mock, nil)

	require.NoError(t, o.Send(Event{Seq: 1, Kind: protocol.EventPhaseChange}))
	require.Equal(t, 1, w.count())

	mock.Advance(2 * time.Second)
	require.True(t, o.retransmit())
	require.Equal(t, 2, w.count())

	// acking after a resend clears the pending set completely
	o.Ack(1)
	require.Zero(t, o.PendingCount())

	mock.Advance(2 * time.Second)
	require.True(t, o.retransmit())
	require.Equal(t, 2, w.count())
}

func TestOutboxDeadAfterRetransmitLimit(t *testing.T) {
	mock := quartz.NewMock(t)
	w := &captureWriter{}
	var deadCalls int
	cfg := OutboxConfig{RetransmitTimeout: time.Second, RetransmitLimit: 3}
	o := NewOutbox(w, cfg, mock, func() { deadCalls++ })

	require.NoError(t, o.Send(Event{Seq: 1}))

	// a limit of three means three failed resends; the next overdue check
	// declares the connection dead
	for i := 0; i < 3; i++ {
		mock.Advance(time.Second)
		require.True(t, o.retransmit())
	}
	require.Equal(t, 4, w.count(), "initial send plus three resends")

	mock.Advance(time.Second)
	require.False(t, o.retransmit())
	require.Equal(t, 1, deadCalls)

	// a dead outbox silently drops further sends
	require.NoError(t, o.Send(Event{Seq: 2}))
	require.Zero(t, o.PendingCount())
	require.Equal(t, 4, w.count())
}
