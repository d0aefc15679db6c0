// Package roomid generates room identifiers: a globally unique room ID and
// a short human-shareable room code players type to join.
package roomid

import (
	cryptorand "crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// codeAlphabet deliberately omits 0/O and 1/I so codes survive being read
// aloud or scribbled down.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// CodeLength is the number of characters in a room code
const CodeLength = 6

// RandSource allows deterministic randomness in tests
type RandSource interface {
	Intn(n int) int
}

// Generator produces room IDs and codes
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator; a nil RandSource uses crypto/rand
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// NewID returns a unique room identifier
func (g *Generator) NewID() string {
	return uuid.NewString()
}

// NewCode returns a 6-character room code
func (g *Generator) NewCode() string {
	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = codeAlphabet[g.intn(len(codeAlphabet))]
	}
	return string(code)
}

func (g *Generator) intn(n int) int {
	if g.randSource != nil {
		return g.randSource.Intn(n)
	}
	v, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("roomid: crypto randomness unavailable: " + err.Error())
	}
	return int(v.Int64())
}
