// Package similarity detects near-duplicate article titles by combining
// three complementary measures: Jaccard token overlap, normalized edit
// distance and cosine similarity over token frequency vectors.
package similarity

import (
	"math"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the combined similarity at or above which two
// titles are treated as the same event.
const DefaultThreshold = 0.70

const (
	jaccardWeight     = 0.35
	levenshteinWeight = 0.25
	cosineWeight      = 0.40
)

// Jaccard computes set overlap between two token slices.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// LevenshteinSimilarity converts edit distance to a [0,1] similarity
// normalized by the longer string's length.
func LevenshteinSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// Cosine computes cosine similarity between two frequency vectors.
func Cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for tok, fa := range a {
		normA += fa * fa
		if fb, ok := b[tok]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range b {
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Combined computes the weighted similarity of two raw titles after
// normalization. Empty titles never match anything.
func Combined(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}

	tokensA, tokensB := Tokens(a), Tokens(b)

	freqA := make(map[string]float64, len(tokensA))
	for _, t := range tokensA {
		freqA[t]++
	}
	freqB := make(map[string]float64, len(tokensB))
	for _, t := range tokensB {
		freqB[t]++
	}

	return jaccardWeight*Jaccard(tokensA, tokensB) +
		levenshteinWeight*LevenshteinSimilarity(na, nb) +
		cosineWeight*Cosine(freqA, freqB)
}

// Match describes the closest corpus entry found by IsDuplicate.
type Match struct {
	Text       string
	Similarity float64
}

// IsDuplicate reports whether text matches any corpus entry at or above
// threshold, along with the best match found.
func IsDuplicate(text string, corpus []string, threshold float64) (bool, Match) {
	best := Match{}
	for _, c := range corpus {
		if s := Combined(text, c); s > best.Similarity {
			best = Match{Text: c, Similarity: s}
		}
	}
	return best.Similarity >= threshold, best
}
