package rules

// Hand is an unordered multiset of up to 8 pieces held for a round
type Hand []Piece

// HandSize is the number of pieces dealt to each seat
const HandSize = 8

// WeakThreshold is the default hand-strength threshold at or below which a
// hand qualifies for a redeal offer.
const WeakThreshold = 0

// Contains reports whether the hand holds at least one copy of the piece
func (h Hand) Contains(p Piece) bool {
	for _, piece := range h {
		if piece == p {
			return true
		}
	}
	return false
}

// ContainsAll reports whether the hand holds every piece of the play,
// respecting multiplicity.
func (h Hand) ContainsAll(play Play) bool {
	remaining := make([]Piece, len(h))
	copy(remaining, h)
outer:
	for _, want := range play {
		for i, have := range remaining {
			if have == want {
				remaining[i] = remaining[len(remaining)-1]
				remaining = remaining[:len(remaining)-1]
				continue outer
			}
		}
		return false
	}
	return true
}

// Remove returns a copy of the hand with the play's pieces removed.
// Returns false if any piece is missing.
func (h Hand) Remove(play Play) (Hand, bool) {
	remaining := make(Hand, len(h))
	copy(remaining, h)
outer:
	for _, want := range play {
		for i, have := range remaining {
			if have == want {
				remaining[i] = remaining[len(remaining)-1]
				remaining = remaining[:len(remaining)-1]
				continue outer
			}
		}
		return nil, false
	}
	return remaining, true
}

// HandStrength is the sum over pieces of how far each exceeds 9 points.
// A hand with no piece above 9 points scores zero.
func HandStrength(h Hand) int {
	strength := 0
	for _, piece := range h {
		if pts := piece.Points(); pts > 9 {
			strength += pts - 9
		}
	}
	return strength
}

// IsWeak reports whether the hand qualifies for a redeal offer
func IsWeak(h Hand, threshold int) bool {
	return HandStrength(h) <= threshold
}
