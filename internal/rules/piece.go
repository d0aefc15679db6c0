package rules

import (
	"encoding/json"
	"fmt"
)

// Kind represents a piece kind
type Kind int

const (
	General Kind = iota
	Advisor
	Elephant
	Chariot
	Horse
	Cannon
	Soldier
)

// String returns the wire name of a kind
func (k Kind) String() string {
	switch k {
	case General:
		return "GENERAL"
	case Advisor:
		return "ADVISOR"
	case Elephant:
		return "ELEPHANT"
	case Chariot:
		return "CHARIOT"
	case Horse:
		return "HORSE"
	case Cannon:
		return "CANNON"
	case Soldier:
		return "SOLDIER"
	default:
		return "?"
	}
}

// ParseKind parses a wire name into a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "GENERAL":
		return General, nil
	case "ADVISOR":
		return Advisor, nil
	case "ELEPHANT":
		return Elephant, nil
	case "CHARIOT":
		return Chariot, nil
	case "HORSE":
		return Horse, nil
	case "CANNON":
		return Cannon, nil
	case "SOLDIER":
		return Soldier, nil
	default:
		return 0, fmt.Errorf("unknown piece kind: %q", s)
	}
}

// Color represents a piece color
type Color int

const (
	Red Color = iota
	Black
)

// String returns the wire name of a color
func (c Color) String() string {
	switch c {
	case Red:
		return "RED"
	case Black:
		return "BLACK"
	default:
		return "?"
	}
}

// ParseColor parses a wire name into a Color
func ParseColor(s string) (Color, error) {
	switch s {
	case "RED":
		return Red, nil
	case "BLACK":
		return Black, nil
	default:
		return 0, fmt.Errorf("unknown piece color: %q", s)
	}
}

// Piece is an immutable playing piece identity
type Piece struct {
	Kind  Kind
	Color Color
}

// NewPiece creates a new piece
func NewPiece(kind Kind, color Color) Piece {
	return Piece{Kind: kind, Color: color}
}

// pointValues is indexed by [kind][color]
var pointValues = [7][2]int{
	General:  {14, 13},
	Advisor:  {12, 11},
	Elephant: {10, 9},
	Chariot:  {8, 7},
	Horse:    {6, 5},
	Cannon:   {4, 3},
	Soldier:  {2, 1},
}

// Points returns the fixed point value of the piece
func (p Piece) Points() int {
	return pointValues[p.Kind][p.Color]
}

// String returns a human-readable form, e.g. "RED GENERAL"
func (p Piece) String() string {
	return fmt.Sprintf("%s %s", p.Color, p.Kind)
}

type pieceJSON struct {
	Kind  string `json:"kind"`
	Color string `json:"color"`
}

// MarshalJSON encodes the piece in its wire format {"kind":...,"color":...}
func (p Piece) MarshalJSON() ([]byte, error) {
	return json.Marshal(pieceJSON{Kind: p.Kind.String(), Color: p.Color.String()})
}

// UnmarshalJSON decodes the piece wire format
func (p *Piece) UnmarshalJSON(data []byte) error {
	var raw pieceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := ParseKind(raw.Kind)
	if err != nil {
		return err
	}
	color, err := ParseColor(raw.Color)
	if err != nil {
		return err
	}
	p.Kind = kind
	p.Color = color
	return nil
}

// deckCounts is the per-color multiset of kinds in a full deck
var deckCounts = map[Kind]int{
	General:  1,
	Advisor:  2,
	Elephant: 2,
	Chariot:  2,
	Horse:    2,
	Cannon:   2,
	Soldier:  5,
}

// DeckSize is the total number of pieces in a deck
const DeckSize = 32

// NewDeck returns the full 32-piece deck in a fixed order
func NewDeck() []Piece {
	deck := make([]Piece, 0, DeckSize)
	for _, color := range []Color{Red, Black} {
		for kind := General; kind <= Soldier; kind++ {
			for i := 0; i < deckCounts[kind]; i++ {
				deck = append(deck, Piece{Kind: kind, Color: color})
			}
		}
	}
	return deck
}

// palaceGroup and fieldGroup are the two straight groups
var (
	palaceGroup = map[Kind]bool{General: true, Advisor: true, Elephant: true}
	fieldGroup  = map[Kind]bool{Chariot: true, Horse: true, Cannon: true}
)

// InPalaceGroup returns true if the kind belongs to {GENERAL, ADVISOR, ELEPHANT}
func (k Kind) InPalaceGroup() bool {
	return palaceGroup[k]
}

// InFieldGroup returns true if the kind belongs to {CHARIOT, HORSE, CANNON}
func (k Kind) InFieldGroup() bool {
	return fieldGroup[k]
}
