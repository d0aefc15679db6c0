package bot

import (
	"github.com/liaptui/liaptui/internal/rules"
)

// Kind identifies what a bot decision asks the room to do
type Kind int

const (
	KindDeclare Kind = iota
	KindPlay
	KindAcceptRedeal
	KindDeclineRedeal
	KindReady
)

// Decision is the action a bot chose for its seat
type Decision struct {
	Kind   Kind
	Value  int
	Pieces rules.Play
}

// View is the immutable slice of room state a bot needs to decide. The room
// actor builds one per scheduling call so the driver never touches live
// room state.
type View struct {
	Phase string
	Seat  int
	Hand  rules.Hand

	// declaration context
	DeclarationSum int
	LastDeclarer   bool
	DeclareMax     int
	ForbiddenSum   int

	// turn context; Lead is nil when this seat leads the trick
	Lead         rules.Play
	LeadType     rules.PlayType
	RequiredLen  int
	BestStrength int
	BestPoints   int

	// redeal context
	HandWeak bool
}

// Decide maps a view to a single valid action. Policies are deliberately
// simple; the contract is validity, not strength.
func Decide(view View) Decision {
	switch view.Phase {
	case "PREPARATION":
		if view.HandWeak {
			return Decision{Kind: KindAcceptRedeal}
		}
		return Decision{Kind: KindDeclineRedeal}
	case "DECLARATION":
		return Decision{Kind: KindDeclare, Value: declarationValue(view)}
	case "TURN":
		if len(view.Lead) == 0 {
			return Decision{Kind: KindPlay, Pieces: leadPlay(view.Hand)}
		}
		return Decision{Kind: KindPlay, Pieces: followPlay(view)}
	default:
		return Decision{Kind: KindReady}
	}
}

// declarationValue estimates winnable piles as the count of high pieces,
// then adjusts to respect the forbidden declaration sum for the final
// declarer.
func declarationValue(view View) int {
	value := 0
	for _, p := range view.Hand {
		if p.Points() >= 10 {
			value++
		}
	}
	if value > view.DeclareMax {
		value = view.DeclareMax
	}

	if view.LastDeclarer && view.DeclarationSum+value == view.ForbiddenSum {
		if value > 0 {
			value--
		} else {
			value++
		}
	}
	return value
}

// leadPlay opens with the lowest single so high pieces are saved for
// contested tricks.
func leadPlay(hand rules.Hand) rules.Play {
	lowest := 0
	for i, p := range hand {
		if p.Points() < hand[lowest].Points() {
			lowest = i
		}
	}
	return rules.Play{hand[lowest]}
}

// followPlay picks the weakest winning follow when one exists, otherwise
// forfeits with the lowest-value pieces of the required length.
func followPlay(view View) rules.Play {
	var winning, cheapest rules.Play
	winningPoints, cheapestPoints := 0, 0

	forEachCombination(view.Hand, view.RequiredLen, func(candidate rules.Play) {
		points := rules.PointSum(candidate)
		if cheapest == nil || points < cheapestPoints {
			cheapest = candidate
			cheapestPoints = points
		}
		if rules.Classify(candidate) != view.LeadType {
			return
		}
		if !beats(candidate, view.BestStrength, view.BestPoints) {
			return
		}
		if winning == nil || points < winningPoints {
			winning = candidate
			winningPoints = points
		}
	})

	if winning != nil {
		return winning
	}
	return cheapest
}

// beats reports whether the candidate takes the trick from the current
// best. Earlier seats win ties, so a later play must strictly exceed on
// strength then point sum.
func beats(candidate rules.Play, bestStrength, bestPoints int) bool {
	s := rules.Strength(candidate)
	if s != bestStrength {
		return s > bestStrength
	}
	return rules.PointSum(candidate) > bestPoints
}

// forEachCombination visits every size-n sub-multiset of the hand. Hands
// hold at most 8 pieces so the walk is tiny.
func forEachCombination(hand rules.Hand, n int, visit func(rules.Play)) {
	if n <= 0 || n > len(hand) {
		return
	}
	indices := make([]int, n)
	pick := make(rules.Play, n)

	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == n {
			for i, idx := range indices {
				pick[i] = hand[idx]
			}
			candidate := make(rules.Play, n)
			copy(candidate, pick)
			visit(candidate)
			return
		}
		for i := start; i <= len(hand)-(n-depth); i++ {
			indices[depth] = i
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
}
