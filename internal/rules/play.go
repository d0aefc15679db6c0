package rules

// PlayType classifies an ordered tuple of 1-6 pieces
type PlayType int

const (
	Invalid PlayType = iota
	Single
	Pair
	ThreeOfKind
	Straight
	FourOfKind
	ExtendedStraight
	FiveOfKind
	ExtendedStraight5
	DoubleStraight
)

// String returns the wire name of a play type
func (t PlayType) String() string {
	switch t {
	case Single:
		return "SINGLE"
	case Pair:
		return "PAIR"
	case ThreeOfKind:
		return "THREE_OF_KIND"
	case Straight:
		return "STRAIGHT"
	case FourOfKind:
		return "FOUR_OF_KIND"
	case ExtendedStraight:
		return "EXTENDED_STRAIGHT"
	case FiveOfKind:
		return "FIVE_OF_KIND"
	case ExtendedStraight5:
		return "EXTENDED_STRAIGHT_5"
	case DoubleStraight:
		return "DOUBLE_STRAIGHT"
	default:
		return "INVALID"
	}
}

// Play is an ordered tuple of pieces declared on a turn
type Play []Piece

// sameColor reports whether every piece shares one color
func (p Play) sameColor() bool {
	for _, piece := range p[1:] {
		if piece.Color != p[0].Color {
			return false
		}
	}
	return true
}

// kindCounts returns the multiset of kinds in the play
func (p Play) kindCounts() map[Kind]int {
	counts := make(map[Kind]int, len(p))
	for _, piece := range p {
		counts[piece.Kind]++
	}
	return counts
}

// allSoldiers reports whether every piece is a soldier
func (p Play) allSoldiers() bool {
	for _, piece := range p {
		if piece.Kind != Soldier {
			return false
		}
	}
	return true
}

// oneGroup reports whether every kind falls in a single straight group
func (p Play) oneGroup() bool {
	palace, field := true, true
	for _, piece := range p {
		if !piece.Kind.InPalaceGroup() {
			palace = false
		}
		if !piece.Kind.InFieldGroup() {
			field = false
		}
	}
	return palace || field
}

// Classify determines the play type, or Invalid if no rule matches
func Classify(p Play) PlayType {
	if len(p) == 0 || len(p) > 6 {
		return Invalid
	}
	if len(p) == 1 {
		return Single
	}
	if !p.sameColor() {
		return Invalid
	}

	counts := p.kindCounts()
	switch len(p) {
	case 2:
		if len(counts) == 1 {
			return Pair
		}
	case 3:
		if p.allSoldiers() {
			return ThreeOfKind
		}
		if len(counts) == 3 && p.oneGroup() {
			return Straight
		}
	case 4:
		if p.allSoldiers() {
			return FourOfKind
		}
		// one kind doubled, covering all three kinds of a group
		if len(counts) == 3 && p.oneGroup() {
			return ExtendedStraight
		}
	case 5:
		if p.allSoldiers() {
			return FiveOfKind
		}
		// multiset pattern {1,2,2} over one group
		if len(counts) == 3 && p.oneGroup() && countPattern(counts, 1, 2, 2) {
			return ExtendedStraight5
		}
	case 6:
		if len(counts) == 3 && counts[Chariot] == 2 && counts[Horse] == 2 && counts[Cannon] == 2 {
			return DoubleStraight
		}
	}
	return Invalid
}

// countPattern reports whether the count multiset equals {a,b,c} in some order
func countPattern(counts map[Kind]int, a, b, c int) bool {
	got := make([]int, 0, 3)
	for _, n := range counts {
		got = append(got, n)
	}
	if len(got) != 3 {
		return false
	}
	perms := [][3]int{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	for _, perm := range perms {
		if got[0] == perm[0] && got[1] == perm[1] && got[2] == perm[2] {
			return true
		}
	}
	return false
}

// Strength returns the comparison strength of a non-Invalid play.
// Within a trick only plays of equal piece count and matching type compete,
// so the piece-point sum is the scalar that orders them.
func Strength(p Play) int {
	return PointSum(p)
}

// PointSum returns the sum of piece point values in the play
func PointSum(p Play) int {
	sum := 0
	for _, piece := range p {
		sum += piece.Points()
	}
	return sum
}

// LegalFollow reports whether a follow play is legal against the lead.
// A follow is legal iff it matches the lead's piece count and every piece
// is drawn from the hand. Type need not match; a non-matching type simply
// cannot win the trick.
func LegalFollow(play Play, lead Play, hand Hand) bool {
	if len(play) != len(lead) {
		return false
	}
	return hand.ContainsAll(play)
}
