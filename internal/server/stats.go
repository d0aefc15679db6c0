package server

import "sync/atomic"

// Stats tracks fleet-wide counters exposed on /stats
type Stats struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	roomsActive       atomic.Int64
	roomsTotal        atomic.Int64
	gamesCompleted    atomic.Int64
	messagesIn        atomic.Int64
	messagesOut       atomic.Int64
}

// StatsSnapshot is the JSON shape served by /stats
type StatsSnapshot struct {
	ConnectionsActive int64 `json:"connections_active"`
	ConnectionsTotal  int64 `json:"connections_total"`
	RoomsActive       int64 `json:"rooms_active"`
	RoomsTotal        int64 `json:"rooms_total"`
	GamesCompleted    int64 `json:"games_completed"`
	MessagesIn        int64 `json:"messages_in"`
	MessagesOut       int64 `json:"messages_out"`
}

func NewStats() *Stats { return &Stats{} }

func (s *Stats) ConnectionOpened() {
	s.connectionsActive.Add(1)
	s.connectionsTotal.Add(1)
}

func (s *Stats) ConnectionClosed() { s.connectionsActive.Add(-1) }

func (s *Stats) RoomCreated() {
	s.roomsActive.Add(1)
	s.roomsTotal.Add(1)
}

func (s *Stats) RoomClosed() { s.roomsActive.Add(-1) }

func (s *Stats) GameCompleted() { s.gamesCompleted.Add(1) }

func (s *Stats) MessageIn() { s.messagesIn.Add(1) }

func (s *Stats) MessageOut() { s.messagesOut.Add(1) }

// Snapshot returns a consistent-enough copy of the counters
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		ConnectionsActive: s.connectionsActive.Load(),
		ConnectionsTotal:  s.connectionsTotal.Load(),
		RoomsActive:       s.roomsActive.Load(),
		RoomsTotal:        s.roomsTotal.Load(),
		GamesCompleted:    s.gamesCompleted.Load(),
		MessagesIn:        s.messagesIn.Load(),
		MessagesOut:       s.messagesOut.Load(),
	}
}
