package matching

// Scorer provides the string similarity metrics used by the fuzzy stage.
// Scores are on a 0-100 scale so thresholds read as percentages.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Ratio is a Levenshtein-based similarity between two strings: 100 for an
// exact match, 0 for no shared structure.
func (s *Scorer) Ratio(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 100
	}
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0
	}
	distance := s.LevenshteinDistance(a, b)
	return 100 * (1 - float64(distance)/float64(maxLen))
}

// LevenshteinDistance calculates the edit distance between two strings.
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rolling rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}
