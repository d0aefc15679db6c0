package rules

// Scoring defaults. Both are externally configurable.
const (
	ScoreBonus         = 5
	ZeroDeclMultiplier = 2
)

// ScoreRound computes the per-seat score delta for a completed round.
// An exact hit scores +(declaration + bonus). A miss scores
// -|declaration - captured|, multiplied by zeroMultiplier when the
// declaration was zero.
func ScoreRound(declared, captured [4]int, bonus, zeroMultiplier int) [4]int {
	var deltas [4]int
	for seat := 0; seat < 4; seat++ {
		if declared[seat] == captured[seat] {
			deltas[seat] = declared[seat] + bonus
			continue
		}
		miss := declared[seat] - captured[seat]
		if miss < 0 {
			miss = -miss
		}
		if declared[seat] == 0 {
			miss *= zeroMultiplier
		}
		deltas[seat] = -miss
	}
	return deltas
}
