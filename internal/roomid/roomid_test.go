package roomid

import (
	"strings"
	"testing"
)

type fixedSource struct {
	values []int
	pos    int
}

func (s *fixedSource) Intn(n int) int {
	v := s.values[s.pos%len(s.values)] % n
	s.pos++
	return v
}

func TestNewCodeLengthAndAlphabet(t *testing.T) {
	g := NewGenerator(nil)

	code := g.NewCode()
	if len(code) != CodeLength {
		t.Errorf("expected %d characters, got %d", CodeLength, len(code))
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("character %c not in code alphabet", c)
		}
	}
}

func TestNewCodeDeterministicWithSource(t *testing.T) {
	src := &fixedSource{values: []int{0, 1, 2, 3, 4, 5}}
	g := NewGenerator(src)

	if got := g.NewCode(); got != "234567" {
		t.Errorf("expected 234567, got %s", got)
	}
}

func TestNewIDUnique(t *testing.T) {
	g := NewGenerator(nil)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id := g.NewID()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}
