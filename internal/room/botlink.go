package room

import (
	"github.com/liaptui/liaptui/internal/bot"
	"github.com/liaptui/liaptui/internal/rules"
)

// notifyBots schedules a decision for whichever bot-controlled seats must
// act in the current phase. The driver dedups on (room, seat, phase
// iteration) so repeat calls are harmless.
func (g *game) notifyBots() {
	switch g.phase {
	case Preparation:
		if len(g.redealQueue) > 0 {
			g.scheduleBot(g.redealQueue[0])
		}
	case Declaration, Turn:
		g.scheduleBot(g.current)
	case Scoring:
		for seat, p := range g.players {
			if p != nil && p.IsBot && !p.Ready {
				g.scheduleBot(seat)
			}
		}
	}
}

func (g *game) scheduleBot(seat int) {
	p := g.players[seat]
	if p == nil || !p.IsBot {
		return
	}
	view := g.botView(seat)
	key := bot.Key{RoomID: g.id, Seat: seat}
	submit := g.submit
	g.driver.Schedule(key, g.phaseIter, view, func(d bot.Decision) {
		submit(actionFromDecision(seat, d))
	})
}

// botView snapshots exactly what the strategy needs; the copy keeps the
// driver's timer goroutines away from live room state.
func (g *game) botView(seat int) bot.View {
	p := g.players[seat]
	hand := make(rules.Hand, len(p.Hand))
	copy(hand, p.Hand)

	view := bot.View{
		Phase:        g.phase.String(),
		Seat:         seat,
		Hand:         hand,
		DeclareMax:   g.cfg.DeclareMax,
		ForbiddenSum: forbiddenDeclarationSum,
		HandWeak:     rules.IsWeak(p.Hand, rules.WeakThreshold),
	}

	switch g.phase {
	case Declaration:
		view.DeclarationSum = g.declarationSum()
		view.LastDeclarer = g.declCount == 3
	case Turn:
		if len(g.trick) > 0 {
			lead := g.trick[0]
			view.Lead = lead.Pieces
			view.LeadType = lead.Type
			view.RequiredLen = len(lead.Pieces)
			view.BestStrength, view.BestPoints = g.trickBest(lead.Type)
		}
	}
	return view
}

// trickBest returns the strength and point sum currently winning the trick
func (g *game) trickBest(leadType rules.PlayType) (int, int) {
	bestStrength, bestPoints := -1, -1
	for _, sp := range g.trick {
		if sp.Type != leadType {
			continue
		}
		s, pts := rules.Strength(sp.Pieces), rules.PointSum(sp.Pieces)
		if s > bestStrength || (s == bestStrength && pts > bestPoints) {
			bestStrength, bestPoints = s, pts
		}
	}
	return bestStrength, bestPoints
}

func actionFromDecision(seat int, d bot.Decision) Action {
	switch d.Kind {
	case bot.KindDeclare:
		return Action{Kind: ActionDeclare, Seat: seat, Value: d.Value}
	case bot.KindPlay:
		return Action{Kind: ActionPlay, Seat: seat, Pieces: d.Pieces}
	case bot.KindAcceptRedeal:
		return Action{Kind: ActionAcceptRedeal, Seat: seat}
	case bot.KindDeclineRedeal:
		return Action{Kind: ActionDeclineRedeal, Seat: seat}
	default:
		return Action{Kind: ActionPlayerReady, Seat: seat}
	}
}
