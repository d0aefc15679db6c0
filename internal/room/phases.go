package room

import (
	"encoding/json"
	"fmt"

	"github.com/liaptui/liaptui/internal/eventlog"
	"github.com/liaptui/liaptui/internal/protocol"
	"github.com/liaptui/liaptui/internal/rules"
)

// forbiddenDeclarationSum is the total the four declarations must never
// reach; it equals the number of tricks in a round of singles.
const forbiddenDeclarationSum = rules.HandSize

// setPhase records the transition and broadcasts it. Each transition bumps
// the phase iteration, which scopes bot decision dedup.
func (g *game) setPhase(p Phase, phaseData any) {
	g.phase = p
	g.phaseIter++

	var raw json.RawMessage
	if phaseData != nil {
		encoded, err := json.Marshal(phaseData)
		if err != nil {
			panic(fmt.Sprintf("phase data for %s does not marshal: %v", p, err))
		}
		raw = encoded
	}
	g.emit(protocol.EventPhaseChange, protocol.PhaseChangeData{Phase: p.String(), PhaseData: raw}, eventlog.BroadcastTarget)
	g.logger.Debug("Phase change", "phase", p.String(), "round", g.round)
}

func (g *game) startGame(a Action) {
	if g.phase != Lobby {
		g.rejectAction(a, protocol.ReasonWrongPhase, "game already started")
		return
	}
	if a.Seat != g.host {
		g.rejectAction(a, protocol.ReasonNotHost, "")
		return
	}
	for _, p := range g.players {
		if p == nil {
			g.rejectAction(a, protocol.ReasonNotFull, "need 4 players")
			return
		}
	}

	g.started = true
	g.round = 1
	g.emitRoomUpdate()
	g.beginRound()
}

type preparationData struct {
	Round   int `json:"round"`
	Starter int `json:"starter"`
}

// beginRound deals a fresh round and runs the redeal offer process
func (g *game) beginRound() {
	for _, p := range g.players {
		p.Declared = 0
		p.DeclaredSet = false
		p.Captured = 0
		p.PilesWonThisTurn = 0
		p.Ready = false
	}
	g.redealCount = 0
	g.turnNumber = 0
	g.piecesLed = 0
	g.invariantHits = 0
	g.trick = nil

	g.dealHands()
	if g.round == 1 {
		g.starter = g.redGeneralStarter()
	}
	g.setPhase(Preparation, preparationData{Round: g.round, Starter: g.starter})
	g.emitHands()
	g.buildRedealQueue()
	g.advanceRedeal()
}

func (g *game) dealHands() {
	hands := rules.Deal(g.rng)
	for seat, p := range g.players {
		p.Hand = hands[seat]
	}
}

func (g *game) redGeneralStarter() int {
	var hands [4]rules.Hand
	for seat, p := range g.players {
		hands[seat] = p.Hand
	}
	return rules.RedGeneralHolder(hands)
}

// emitHands sends each seat its hand as a private event
func (g *game) emitHands() {
	for seat, p := range g.players {
		g.emit(protocol.EventHandDealt, protocol.HandDealtData{Seat: seat, Hand: p.Hand}, seat)
	}
}

// buildRedealQueue collects weak-hand seats in clockwise order from the
// starter; each will be offered a redeal in turn.
func (g *game) buildRedealQueue() {
	g.redealQueue = g.redealQueue[:0]
	for i := 0; i < 4; i++ {
		seat := (g.starter + i) % 4
		if rules.IsWeak(g.players[seat].Hand, rules.WeakThreshold) {
			g.redealQueue = append(g.redealQueue, seat)
		}
	}
}

// advanceRedeal offers the next pending redeal, or moves on to declaration
// when no offers remain.
func (g *game) advanceRedeal() {
	if len(g.redealQueue) == 0 {
		g.enterDeclaration()
		return
	}
	g.current = g.redealQueue[0]
	g.emit(protocol.EventRedealOffered, protocol.RedealOfferedData{Seat: g.current}, eventlog.BroadcastTarget)
	g.notifyBots()
}

func (g *game) decideRedeal(a Action, accepted bool) {
	if g.phase != Preparation {
		g.rejectAction(a, protocol.ReasonWrongPhase, "")
		return
	}
	if len(g.redealQueue) == 0 || a.Seat != g.redealQueue[0] {
		g.rejectAction(a, protocol.ReasonNotYourTurn, "no redeal offered to this seat")
		return
	}

	g.emit(protocol.EventRedealDecided, protocol.RedealDecidedData{Seat: a.Seat, Accepted: accepted}, eventlog.BroadcastTarget)

	if !accepted {
		g.redealQueue = g.redealQueue[1:]
		g.advanceRedeal()
		return
	}

	g.redealCount++
	if g.redealCount > g.cfg.RedealCap {
		g.logger.Info("Redeal cap reached", "round", g.round, "cap", g.cfg.RedealCap)
		g.enterDeclaration()
		return
	}

	// full re-deal of all four hands; round 1 re-anchors the starter on
	// the new RED GENERAL holder, later rounds keep the previous winner
	g.dealHands()
	if g.round == 1 {
		g.starter = g.redGeneralStarter()
	}
	g.setPhase(Preparation, preparationData{Round: g.round, Starter: g.starter})
	g.emitHands()
	g.buildRedealQueue()
	g.advanceRedeal()
}

type declarationData struct {
	Starter int `json:"starter"`
}

func (g *game) enterDeclaration() {
	g.declCount = 0
	g.current = g.starter
	g.setPhase(Declaration, declarationData{Starter: g.starter})
	g.notifyBots()
}

func (g *game) declarationSum() int {
	sum := 0
	for _, p := range g.players {
		if p.DeclaredSet {
			sum += p.Declared
		}
	}
	return sum
}

func (g *game) declare(a Action) {
	if g.phase != Declaration {
		g.rejectAction(a, protocol.ReasonWrongPhase, "")
		return
	}
	if a.Seat != g.current {
		g.rejectAction(a, protocol.ReasonNotYourTurn, "")
		return
	}
	if a.Value < 0 || a.Value > g.cfg.DeclareMax {
		g.rejectAction(a, protocol.ReasonIllegalDeclaration, fmt.Sprintf("value must be 0..%d", g.cfg.DeclareMax))
		return
	}
	if g.declCount == 3 && g.declarationSum()+a.Value == forbiddenDeclarationSum {
		g.rejectAction(a, protocol.ReasonIllegalDeclaration, fmt.Sprintf("declarations must not sum to %d", forbiddenDeclarationSum))
		return
	}

	p := g.players[a.Seat]
	p.Declared = a.Value
	p.DeclaredSet = true
	g.declCount++
	g.emit(protocol.EventDeclarationMade, protocol.DeclarationMadeData{Seat: a.Seat, Value: a.Value}, eventlog.BroadcastTarget)

	if g.declCount == 4 {
		g.enterTurn(g.starter)
		return
	}
	g.current = (g.current + 1) % 4
	g.notifyBots()
}

type turnData struct {
	TurnNumber  int `json:"turn_number"`
	CurrentTurn int `json:"current_turn"`
}

func (g *game) enterTurn(leader int) {
	g.turnNumber++
	g.trick = g.trick[:0]
	g.current = leader
	for _, p := range g.players {
		p.PilesWonThisTurn = 0
	}
	g.setPhase(Turn, turnData{TurnNumber: g.turnNumber, CurrentTurn: leader})
	g.notifyBots()
}

func (g *game) play(a Action) {
	if g.phase != Turn {
		g.rejectAction(a, protocol.ReasonWrongPhase, "")
		return
	}
	if a.Seat != g.current {
		g.rejectAction(a, protocol.ReasonNotYourTurn, "")
		return
	}
	if len(a.Pieces) == 0 || len(a.Pieces) > 6 {
		g.rejectAction(a, protocol.ReasonIllegalPlay, "a play holds 1 to 6 pieces")
		return
	}

	p := g.players[a.Seat]
	playType := rules.Classify(a.Pieces)
	if len(g.trick) == 0 {
		if playType == rules.Invalid {
			g.rejectAction(a, protocol.ReasonIllegalPlay, "lead must be a recognised combination")
			return
		}
		if !p.Hand.ContainsAll(a.Pieces) {
			g.rejectAction(a, protocol.ReasonIllegalPlay, "pieces not in hand")
			return
		}
	} else {
		if !rules.LegalFollow(a.Pieces, g.trick[0].Pieces, p.Hand) {
			g.rejectAction(a, protocol.ReasonIllegalPlay, fmt.Sprintf("follow must use %d pieces from hand", len(g.trick[0].Pieces)))
			return
		}
	}

	remaining, ok := p.Hand.Remove(a.Pieces)
	if !ok {
		g.rejectAction(a, protocol.ReasonIllegalPlay, "pieces not in hand")
		return
	}
	p.Hand = remaining

	g.trick = append(g.trick, SeatPlay{Seat: a.Seat, Pieces: a.Pieces, Type: playType})
	g.emit(protocol.EventPlayMade, protocol.PlayMadeData{
		Seat:     a.Seat,
		Pieces:   a.Pieces,
		PlayType: playType.String(),
	}, eventlog.BroadcastTarget)

	if len(g.trick) == 4 {
		g.resolveTrick()
		return
	}
	g.current = (g.current + 1) % 4
	g.notifyBots()
}

// resolveTrick picks the trick winner and moves the room into the results
// display window. Only plays matching the lead's type compete; ties fall
// to the earlier seat in play order.
func (g *game) resolveTrick() {
	lead := g.trick[0]
	best := 0
	for i := 1; i < 4; i++ {
		if g.trick[i].Type != lead.Type {
			continue
		}
		challenger, champion := g.trick[i].Pieces, g.trick[best].Pieces
		if rules.Strength(challenger) > rules.Strength(champion) {
			best = i
			continue
		}
		if rules.Strength(challenger) == rules.Strength(champion) &&
			rules.PointSum(challenger) > rules.PointSum(champion) {
			best = i
		}
	}

	winner := g.trick[best].Seat
	piles := len(lead.Pieces)
	g.players[winner].PilesWonThisTurn = piles
	g.players[winner].Captured += piles
	g.piecesLed += piles
	g.starter = winner

	g.checkDeckConservation()

	var pilesWon [4]int
	for seat, p := range g.players {
		pilesWon[seat] = p.PilesWonThisTurn
	}
	g.emit(protocol.EventTurnResolved, protocol.TurnResolvedData{
		Winner:           winner,
		WinningPlay:      g.trick[best].Pieces,
		PilesWonThisTurn: pilesWon,
		NextStarter:      winner,
		TurnNumber:       g.turnNumber,
	}, eventlog.BroadcastTarget)

	g.setPhase(TurnResults, nil)
	g.resultsUntil = g.clock.Now().Add(g.cfg.TurnResultsDisplay)
}

// checkDeckConservation panics when pieces have leaked. Each resolved
// trick removes 4n pieces from hands and captures n piles, so hands plus
// captures must equal 32 minus three times the pieces led so far.
func (g *game) checkDeckConservation() {
	total := 0
	for _, p := range g.players {
		total += len(p.Hand) + p.Captured
	}
	expected := rules.DeckSize - 3*g.piecesLed
	if total != expected {
		panic(fmt.Sprintf("deck conservation violated: have %d pieces, want %d", total, expected))
	}
}

// tick evaluates clock-driven transitions; the actor calls it roughly
// every half second.
func (g *game) tick() {
	if g.phase != TurnResults {
		return
	}
	if g.clock.Now().Before(g.resultsUntil) {
		return
	}
	for _, p := range g.players {
		if len(p.Hand) > 0 {
			g.enterTurn(g.starter)
			return
		}
	}
	g.enterScoring()
}

func (g *game) enterScoring() {
	var declared, captured [4]int
	for seat, p := range g.players {
		declared[seat] = p.Declared
		captured[seat] = p.Captured
	}
	deltas := rules.ScoreRound(declared, captured, g.cfg.ScoreBonus, g.cfg.ZeroDeclMultiplier)

	var cumulative [4]int
	for seat, p := range g.players {
		p.Score += deltas[seat]
		cumulative[seat] = p.Score
	}

	g.setPhase(Scoring, nil)
	g.emit(protocol.EventRoundScored, protocol.RoundScoredData{
		PerSeatDelta: deltas,
		Cumulative:   cumulative,
	}, eventlog.BroadcastTarget)

	winner := -1
	for seat, p := range g.players {
		if p.Score >= g.cfg.WinThreshold {
			if winner == -1 || p.Score > g.players[winner].Score {
				winner = seat
			}
		}
	}
	if winner >= 0 {
		g.endGame(winner, "")
		return
	}
	g.notifyBots()
}

func (g *game) playerReady(a Action) {
	if g.phase != Scoring {
		g.rejectAction(a, protocol.ReasonWrongPhase, "")
		return
	}
	p := g.players[a.Seat]
	if p == nil {
		g.rejectAction(a, protocol.ReasonSchemaMismatch, "seat is vacant")
		return
	}
	p.Ready = true

	for _, p := range g.players {
		if !p.Ready {
			return
		}
	}
	g.round++
	g.beginRound()
}

func (g *game) endGame(winner int, reason string) {
	var finalScores [4]int
	for seat, p := range g.players {
		if p != nil {
			finalScores[seat] = p.Score
		}
	}
	g.emit(protocol.EventGameEnded, protocol.GameEndedData{
		Winner:      winner,
		FinalScores: finalScores,
		Reason:      reason,
	}, eventlog.BroadcastTarget)
	g.setPhase(GameOver, nil)
	g.driver.CancelRoom(g.id)
	g.logger.Info("Game ended", "winner", winner, "reason", reason, "rounds", g.round)
}
