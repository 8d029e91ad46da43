package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{name: "identical", a: "MAIN ST", b: "MAIN ST", expected: 0},
		{name: "one substitution", a: "MAIN", b: "MAIM", expected: 1},
		{name: "one insertion", a: "MAIN", b: "MAINS", expected: 1},
		{name: "one deletion", a: "MAIN", b: "MAN", expected: 1},
		{name: "empty against nonempty", a: "", b: "MAIN", expected: 4},
		{name: "classic kitten sitting", a: "kitten", b: "sitting", expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.LevenshteinDistance(tt.a, tt.b))
			assert.Equal(t, tt.expected, scorer.LevenshteinDistance(tt.b, tt.a))
		})
	}
}

func TestRatio(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, float64(100), scorer.Ratio("123 MAIN ST", "123 MAIN ST"))
	assert.Equal(t, float64(0), scorer.Ratio("", ""))
	assert.Equal(t, float64(0), scorer.Ratio("ABCD", "WXYZ"))

	// One edit across ten characters scores 90.
	assert.InDelta(t, 90, scorer.Ratio("1234567890", "123456789X"), 0.01)

	// A longer shared prefix scores higher than a shorter one.
	closer := scorer.Ratio("123 MAIN ST", "123 MAIN RD")
	farther := scorer.Ratio("123 MAIN ST", "999 ELM AVE")
	assert.Greater(t, closer, farther)
}
