package eventlog

import (
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/liaptui/liaptui/internal/protocol"
)

func TestFanoutDeliverBroadcast(t *testing.T) {
	mock := quartz.NewMock(t)
	f := NewFanout(200)

	w0 := &captureWriter{}
	w2 := &captureWriter{}
	f.Bind(0, NewOutbox(w0, OutboxConfig{}, mock, nil))
	f.Bind(2, NewOutbox(w2, OutboxConfig{}, mock, nil))
	f.Unbind(1)

	f.Deliver(Event{Seq: 1, Kind: protocol.EventPhaseChange, Target: BroadcastTarget})

	require.Equal(t, 1, w0.count())
	require.Equal(t, 1, w2.count())
	require.Equal(t, 1, f.OfflineLen(1))
	// seat 3 has neither outbox nor offline buffer; the event is discarded
	require.Zero(t, f.OfflineLen(3))
}

func TestFanoutDeliverPrivate(t *testing.T) {
	mock := quartz.NewMock(t)
	f := NewFanout(200)

	w0 := &captureWriter{}
	w1 := &captureWriter{}
	f.Bind(0, NewOutbox(w0, OutboxConfig{}, mock, nil))
	f.Bind(1, NewOutbox(w1, OutboxConfig{}, mock, nil))

	f.Deliver(Event{Seq: 1, Kind: protocol.EventHandDealt, Target: 1})

	require.Zero(t, w0.count())
	require.Equal(t, 1, w1.count())
}

func TestFanoutBindDrainsOffline(t *testing.T) {
	mock := quartz.NewMock(t)
	f := NewFanout(200)

	f.Unbind(2)
	f.Deliver(Event{Seq: 1, Kind: protocol.EventPhaseChange, Target: BroadcastTarget})
	f.Deliver(Event{Seq: 2, Kind: protocol.EventPlayMade, Target: BroadcastTarget})
	require.Equal(t, 2, f.OfflineLen(2))

	w := &captureWriter{}
	buffered := f.Bind(2, NewOutbox(w, OutboxConfig{}, mock, nil))
	require.Len(t, buffered, 2)
	require.Equal(t, int64(1), buffered[0].Seq)
	require.Zero(t, f.OfflineLen(2))

	// new events flow straight to the outbox after binding
	f.Deliver(Event{Seq: 3, Kind: protocol.EventPlayMade, Target: BroadcastTarget})
	require.Equal(t, 1, w.count())
}

func TestFanoutDrop(t *testing.T) {
	mock := quartz.NewMock(t)
	f := NewFanout(200)

	w := &captureWriter{}
	f.Bind(0, NewOutbox(w, OutboxConfig{}, mock, nil))
	f.Drop(0)

	f.Deliver(Event{Seq: 1, Kind: protocol.EventPhaseChange, Target: BroadcastTarget})
	require.Zero(t, w.count())
	require.Zero(t, f.OfflineLen(0))
}
