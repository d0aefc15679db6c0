package eventlog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liaptui/liaptui/internal/protocol"
)

func TestLogAppendAssignsSequence(t *testing.T) {
	log := NewLog("room-1", 10)

	ev1, err := log.Append(protocol.EventDeclarationMade, map[string]int{"seat": 0}, BroadcastTarget)
	require.NoError(t, err)
	require.Equal(t, int64(1), ev1.Seq)

	ev2, err := log.Append(protocol.EventPlayMade, map[string]int{"seat": 1}, BroadcastTarget)
	require.NoError(t, err)
	require.Equal(t, int64(2), ev2.Seq)
	require.Equal(t, int64(2), log.Seq())
}

func TestLogTail(t *testing.T) {
	log := NewLog("room-1", 10)
	for i := 0; i < 5; i++ {
		_, err := log.Append(protocol.EventPlayMade, i, BroadcastTarget)
		require.NoError(t, err)
	}

	events, err := log.Tail(2, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, int64(3), events[0].Seq)
	require.Equal(t, int64(5), events[2].Seq)

	events, err = log.Tail(5, 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestLogTailTooOld(t *testing.T) {
	log := NewLog("room-1", 3)
	for i := 0; i < 10; i++ {
		_, err := log.Append(protocol.EventPlayMade, i, BroadcastTarget)
		require.NoError(t, err)
	}

	// ring retains 8..10; asking from seq 2 is below the floor
	require.Equal(t, int64(8), log.Floor())
	_, err := log.Tail(2, 0)
	require.ErrorIs(t, err, ErrTooOld)

	events, err := log.Tail(7, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
}

func TestLogTailFiltersPrivateEvents(t *testing.T) {
	log := NewLog("room-1", 10)
	_, err := log.Append(protocol.EventPhaseChange, nil, BroadcastTarget)
	require.NoError(t, err)
	_, err = log.Append(protocol.EventHandDealt, nil, 2)
	require.NoError(t, err)
	_, err = log.Append(protocol.EventHandDealt, nil, 3)
	require.NoError(t, err)

	events, err := log.Tail(0, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, protocol.EventPhaseChange, events[0].Kind)
	require.Equal(t, 2, events[1].Target)
}

func TestEventCritical(t *testing.T) {
	critical := []string{
		protocol.EventPhaseChange,
		protocol.EventRoundScored,
		protocol.EventGameEnded,
		protocol.EventTurnResolved,
	}
	for _, kind := range critical {
		require.True(t, Event{Kind: kind}.Critical(), kind)
	}
	require.False(t, Event{Kind: protocol.EventPlayMade}.Critical())
	require.False(t, Event{Kind: protocol.EventDeclarationMade}.Critical())
}
