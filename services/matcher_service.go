package services

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// nameMatchThreshold is the minimum similarity ratio for a fuzzy hit.
// Below this, a token is treated as not referring to any known name.
const nameMatchThreshold = 0.6

// MatchKnownName finds the best-matching candidate for a noisy input
// token. A case-insensitive substring containment in either direction
// wins immediately; otherwise the candidate with the highest similarity
// ratio above the threshold wins, with the earliest candidate keeping
// the spot on a tie. Returns false when nothing clears the threshold.
func MatchKnownName(input string, candidates []string) (string, bool) {
	inputLower := strings.ToLower(input)

	bestMatch := ""
	bestScore := 0.0
	found := false

	for _, candidate := range candidates {
		candidateLower := strings.ToLower(candidate)

		if strings.Contains(candidateLower, inputLower) || strings.Contains(inputLower, candidateLower) {
			return candidate, true
		}

		score := similarityRatio(inputLower, candidateLower)
		if score > nameMatchThreshold && score > bestScore {
			bestScore = score
			bestMatch = candidate
			found = true
		}
	}

	return bestMatch, found
}

// similarityRatio converts edit distance into a normalized similarity
// in [0, 1], where 1 means identical strings.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(longest)
}
