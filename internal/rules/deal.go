package rules

import rand "math/rand/v2"

// Deal shuffles the full deck with the provided RNG and deals 8 pieces to
// each of the four seats. Given the same RNG state the result is
// reproducible.
func Deal(rng *rand.Rand) [4]Hand {
	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	var hands [4]Hand
	for seat := 0; seat < 4; seat++ {
		hand := make(Hand, HandSize)
		copy(hand, deck[seat*HandSize:(seat+1)*HandSize])
		hands[seat] = hand
	}
	return hands
}

// RedGeneralHolder returns the seat holding the RED GENERAL. The deck holds
// exactly one, so this always resolves.
func RedGeneralHolder(hands [4]Hand) int {
	target := Piece{Kind: General, Color: Red}
	for seat, hand := range hands {
		if hand.Contains(target) {
			return seat
		}
	}
	// Unreachable with a full deal; seat 0 keeps the caller total.
	return 0
}
