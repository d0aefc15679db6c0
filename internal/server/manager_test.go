package server

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/liaptui/liaptui/internal/bot"
	"github.com/liaptui/liaptui/internal/randutil"
	"github.com/liaptui/liaptui/internal/roomid"
)

func newTestManager(t *testing.T, cfg *Config) (*RoomManager, *quartz.Mock) {
	t.Helper()
	mockClock := quartz.NewMock(t)
	logger := log.NewWithOptions(io.Discard, log.Options{})
	driver := bot.NewDriver(logger, mockClock, time.Millisecond, time.Millisecond, randutil.New(1))
	gen := roomid.NewGenerator(nil)
	return NewRoomManager(logger, cfg, mockClock, driver, gen, nil, NewStats()), mockClock
}

func TestManagerCreateAndFindRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, mockClock := newTestManager(t, DefaultConfig())

	janitorTrap := mockClock.Trap().NewTicker()
	go m.Run(ctx)
	janitorTrap.MustWait(ctx).MustRelease(ctx)
	janitorTrap.Close()

	roomTrap := mockClock.Trap().NewTicker()
	r, err := m.CreateRoom("Alice")
	require.NoError(t, err)
	roomTrap.MustWait(ctx).MustRelease(ctx)
	roomTrap.Close()

	found, err := m.FindRoom(r.Code())
	require.NoError(t, err)
	require.Same(t, r, found)

	byID, err := m.RoomByID(r.ID())
	require.NoError(t, err)
	require.Same(t, r, byID)

	rooms := m.ListRooms(ctx)
	require.Len(t, rooms, 1)
	require.Equal(t, "Alice", rooms[0].HostName)
	require.Equal(t, 1, rooms[0].Occupied)

	m.CloseRoom(r.ID(), "test over")
	require.Equal(t, 0, m.RoomCount())
	_, err = m.FindRoom(r.Code())
	require.ErrorIs(t, err, ErrRoomNotFound)

	// closing twice is harmless
	m.CloseRoom(r.ID(), "again")
}

func TestManagerSweepsAbandonedRooms(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.Server.EmptyRoomGraceMs = 5000
	m, mockClock := newTestManager(t, cfg)

	janitorTrap := mockClock.Trap().NewTicker()
	go m.Run(ctx)
	janitorTrap.MustWait(ctx).MustRelease(ctx)
	janitorTrap.Close()

	roomTrap := mockClock.Trap().NewTicker()
	_, err := m.CreateRoom("Alice")
	require.NoError(t, err)
	roomTrap.MustWait(ctx).MustRelease(ctx)
	roomTrap.Close()
	require.Equal(t, 1, m.RoomCount())

	// nobody ever attaches a connection: the room is empty from the
	// sweeper's point of view and falls past the grace window
	for elapsed := time.Duration(0); elapsed < 8*time.Second; {
		d := time.Second
		if next, ok := mockClock.Peek(); ok && next < d {
			d = next
		}
		mockClock.Advance(d).MustWait(ctx)
		elapsed += d
	}
	require.Eventually(t, func() bool {
		return m.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
