package bot

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/liaptui/liaptui/internal/randutil"
)

func newTestDriver(t *testing.T) (*Driver, *quartz.Mock) {
	t.Helper()
	mockClock := quartz.NewMock(t)
	logger := log.NewWithOptions(io.Discard, log.Options{})
	d := NewDriver(logger, mockClock, time.Second, time.Second, randutil.New(1))
	return d, mockClock
}

func TestDriverDeliversAfterDelay(t *testing.T) {
	ctx := context.Background()
	d, mockClock := newTestDriver(t)

	delivered := make(chan Decision, 1)
	view := View{Phase: "SCORING", Seat: 1}
	d.Schedule(Key{RoomID: "r1", Seat: 1}, 7, view, func(dec Decision) {
		delivered <- dec
	})
	require.Equal(t, 1, d.Pending())

	mockClock.Advance(time.Second).MustWait(ctx)

	select {
	case dec := <-delivered:
		require.Equal(t, KindReady, dec.Kind)
	case <-time.After(time.Second):
		t.Fatal("decision was not delivered")
	}
	require.Zero(t, d.Pending())
}

func TestDriverDedupsSameIteration(t *testing.T) {
	ctx := context.Background()
	d, mockClock := newTestDriver(t)

	delivered := make(chan Decision, 2)
	key := Key{RoomID: "r1", Seat: 0}
	view := View{Phase: "SCORING", Seat: 0}
	d.Schedule(key, 3, view, func(dec Decision) { delivered <- dec })
	d.Schedule(key, 3, view, func(dec Decision) { delivered <- dec })
	require.Equal(t, 1, d.Pending())

	mockClock.Advance(time.Second).MustWait(ctx)
	<-delivered
	select {
	case <-delivered:
		t.Fatal("duplicate decision delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDriverNewIterationReplacesOldTimer(t *testing.T) {
	ctx := context.Background()
	d, mockClock := newTestDriver(t)

	delivered := make(chan int, 2)
	key := Key{RoomID: "r1", Seat: 2}
	d.Schedule(key, 1, View{Phase: "SCORING"}, func(Decision) { delivered <- 1 })
	d.Schedule(key, 2, View{Phase: "SCORING"}, func(Decision) { delivered <- 2 })
	require.Equal(t, 1, d.Pending())

	mockClock.Advance(time.Second).MustWait(ctx)

	select {
	case iter := <-delivered:
		require.Equal(t, 2, iter)
	case <-time.After(time.Second):
		t.Fatal("decision was not delivered")
	}
	select {
	case <-delivered:
		t.Fatal("cancelled decision delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDriverCancel(t *testing.T) {
	d, _ := newTestDriver(t)

	key := Key{RoomID: "r1", Seat: 3}
	d.Schedule(key, 1, View{Phase: "SCORING"}, func(Decision) {
		t.Error("cancelled decision delivered")
	})
	d.Cancel(key)
	require.Zero(t, d.Pending())
}

func TestDriverCancelRoom(t *testing.T) {
	d, _ := newTestDriver(t)

	d.Schedule(Key{RoomID: "r1", Seat: 0}, 1, View{Phase: "SCORING"}, func(Decision) {})
	d.Schedule(Key{RoomID: "r1", Seat: 1}, 1, View{Phase: "SCORING"}, func(Decision) {})
	d.Schedule(Key{RoomID: "r2", Seat: 0}, 1, View{Phase: "SCORING"}, func(Decision) {})

	d.CancelRoom("r1")
	require.Equal(t, 1, d.Pending())
}
