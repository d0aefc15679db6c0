package room

import (
	"encoding/json"

	"github.com/liaptui/liaptui/internal/protocol"
)

// snapshotFor synthesizes the full room state as seen by one seat. It is
// served when a reconnecting client's last sequence has fallen below the
// event ring, where a raw tail can no longer close the gap. The snapshot
// carries the current sequence number so the client resumes acking from
// there.
func (g *game) snapshotFor(seat int) protocol.SnapshotData {
	snap := protocol.SnapshotData{
		RoomID:      g.id,
		RoomCode:    g.code,
		Phase:       g.phase.String(),
		Round:       g.round,
		Starter:     g.starter,
		CurrentTurn: g.current,
		TurnNumber:  g.turnNumber,
		Host:        g.host,
		Started:     g.started,
		Seq:         g.log.Seq(),
	}

	for i, p := range g.players {
		if p == nil {
			continue
		}
		snap.Seats[i] = protocol.SeatInfo{
			Name:      p.Name,
			Occupied:  true,
			IsBot:     p.IsBot,
			Connected: p.Connected,
		}
		if p.DeclaredSet {
			declared := p.Declared
			snap.Declarations[i] = &declared
		}
		snap.Captured[i] = p.Captured
		snap.Scores[i] = p.Score
	}

	for _, sp := range g.trick {
		snap.Trick = append(snap.Trick, protocol.PlayMadeData{
			Seat:     sp.Seat,
			Pieces:   sp.Pieces,
			PlayType: sp.Type.String(),
		})
	}

	if seat >= 0 && seat < 4 && g.players[seat] != nil {
		snap.Hand = g.players[seat].Hand
	}
	return snap
}

// snapshotMessage wraps the snapshot in an envelope carrying the current
// room sequence
func (g *game) snapshotMessage(seat int) (protocol.Message, error) {
	snap := g.snapshotFor(seat)
	raw, err := json.Marshal(snap)
	if err != nil {
		return protocol.Message{}, err
	}
	return protocol.Message{Event: protocol.EventSnapshot, Data: raw, Seq: snap.Seq}, nil
}
