package rules

import "testing"

func pc(kind Kind, color Color) Piece { return Piece{Kind: kind, Color: color} }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		play     Play
		expected PlayType
	}{
		{
			name:     "single",
			play:     Play{pc(Soldier, Red)},
			expected: Single,
		},
		{
			name:     "pair of red horses",
			play:     Play{pc(Horse, Red), pc(Horse, Red)},
			expected: Pair,
		},
		{
			name:     "mismatched pair",
			play:     Play{pc(Horse, Red), pc(Cannon, Red)},
			expected: Invalid,
		},
		{
			name:     "mixed color pair",
			play:     Play{pc(Horse, Red), pc(Horse, Black)},
			expected: Invalid,
		},
		{
			name:     "three soldiers",
			play:     Play{pc(Soldier, Black), pc(Soldier, Black), pc(Soldier, Black)},
			expected: ThreeOfKind,
		},
		{
			name:     "palace straight",
			play:     Play{pc(General, Red), pc(Advisor, Red), pc(Elephant, Red)},
			expected: Straight,
		},
		{
			name:     "field straight",
			play:     Play{pc(Chariot, Black), pc(Horse, Black), pc(Cannon, Black)},
			expected: Straight,
		},
		{
			name:     "cross-group triple",
			play:     Play{pc(General, Red), pc(Advisor, Red), pc(Chariot, Red)},
			expected: Invalid,
		},
		{
			name:     "four soldiers",
			play:     Play{pc(Soldier, Red), pc(Soldier, Red), pc(Soldier, Red), pc(Soldier, Red)},
			expected: FourOfKind,
		},
		{
			name:     "extended straight",
			play:     Play{pc(Chariot, Red), pc(Chariot, Red), pc(Horse, Red), pc(Cannon, Red)},
			expected: ExtendedStraight,
		},
		{
			name:     "four pieces two kinds only",
			play:     Play{pc(Chariot, Red), pc(Chariot, Red), pc(Horse, Red), pc(Horse, Red)},
			expected: Invalid,
		},
		{
			name: "five soldiers",
			play: Play{
				pc(Soldier, Black), pc(Soldier, Black), pc(Soldier, Black),
				pc(Soldier, Black), pc(Soldier, Black),
			},
			expected: FiveOfKind,
		},
		{
			name: "extended straight of five",
			play: Play{
				pc(General, Red), pc(Advisor, Red), pc(Advisor, Red),
				pc(Elephant, Red), pc(Elephant, Red),
			},
			expected: ExtendedStraight5,
		},
		{
			name: "five pieces wrong pattern",
			play: Play{
				pc(Chariot, Red), pc(Chariot, Red), pc(Horse, Red),
				pc(Horse, Red), pc(Horse, Black),
			},
			expected: Invalid,
		},
		{
			name: "double straight",
			play: Play{
				pc(Chariot, Black), pc(Chariot, Black), pc(Horse, Black),
				pc(Horse, Black), pc(Cannon, Black), pc(Cannon, Black),
			},
			expected: DoubleStraight,
		},
		{
			name: "double straight wrong group",
			play: Play{
				pc(General, Red), pc(Advisor, Red), pc(Advisor, Red),
				pc(Elephant, Red), pc(Elephant, Red), pc(Chariot, Red),
			},
			expected: Invalid,
		},
		{
			name:     "empty play",
			play:     Play{},
			expected: Invalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.play); got != tt.expected {
				t.Errorf("Classify() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStrengthOrdersSameType(t *testing.T) {
	redPair := Play{pc(Horse, Red), pc(Horse, Red)}
	blackPair := Play{pc(Horse, Black), pc(Horse, Black)}
	if Strength(redPair) <= Strength(blackPair) {
		t.Errorf("red pair (%d) should beat black pair (%d)", Strength(redPair), Strength(blackPair))
	}

	redSingle := Play{pc(General, Red)}
	blackSingle := Play{pc(General, Black)}
	if Strength(redSingle) <= Strength(blackSingle) {
		t.Errorf("red general should beat black general")
	}
}

func TestLegalFollow(t *testing.T) {
	hand := Hand{pc(Soldier, Red), pc(Soldier, Red), pc(Horse, Black), pc(General, Red)}
	lead := Play{pc(Cannon, Black)}

	tests := []struct {
		name     string
		play     Play
		expected bool
	}{
		{"single from hand", Play{pc(Horse, Black)}, true},
		{"wrong length", Play{pc(Soldier, Red), pc(Soldier, Red)}, false},
		{"piece not in hand", Play{pc(Elephant, Red)}, false},
		{"forfeit single still legal", Play{pc(Soldier, Red)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LegalFollow(tt.play, lead, hand); got != tt.expected {
				t.Errorf("LegalFollow() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLegalFollowMultiplicity(t *testing.T) {
	hand := Hand{pc(Soldier, Red)}
	lead := Play{pc(Cannon, Black), pc(Cannon, Black)}
	play := Play{pc(Soldier, Red), pc(Soldier, Red)}
	if LegalFollow(play, lead, hand) {
		t.Error("follow using the same piece twice must be illegal")
	}
}
