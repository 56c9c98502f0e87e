package similarity

import (
	"sort"

	"topicscan/internal/domain"
)

// Dedup drops near-duplicate candidates. Candidates are processed in
// descending score order so the highest-ranked member of a duplicate
// cluster is the one kept; each candidate is compared against all
// previously accepted ones (greedy, O(n²), fine at batch sizes of low
// hundreds). Candidates with empty titles always pass through.
func Dedup(candidates []domain.Candidate, threshold float64) (unique []domain.Candidate, skipped int) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	ordered := make([]domain.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	unique = make([]domain.Candidate, 0, len(ordered))
	var acceptedTitles []string

	for _, c := range ordered {
		if Normalize(c.Title) == "" {
			unique = append(unique, c)
			continue
		}
		if dup, _ := IsDuplicate(c.Title, acceptedTitles, threshold); dup {
			skipped++
			continue
		}
		unique = append(unique, c)
		acceptedTitles = append(acceptedTitles, c.Title)
	}

	return unique, skipped
}
