package service

import (
	"sort"
	"time"

	"topicscan/internal/domain"
	"topicscan/internal/similarity"
)

// maxSourcesPerTopic caps how many backing references a topic keeps. The
// most recent ones win.
const maxSourcesPerTopic = 5

// groupCandidates clusters candidates that describe the same event. It is
// greedy: candidates are visited in descending score order and joined to
// the first cluster whose representative (the highest-scored member) is
// similar enough, so every cluster's representative is also its best
// candidate. The threshold here is lower than the dedup threshold because
// near-identical items were already collapsed upstream.
func groupCandidates(candidates []domain.Candidate, threshold float64) [][]domain.Candidate {
	sorted := make([]domain.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	var clusters [][]domain.Candidate
	for _, c := range sorted {
		placed := false
		for i := range clusters {
			if similarity.Combined(c.Title, clusters[i][0].Title) >= threshold {
				clusters[i] = append(clusters[i], c)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []domain.Candidate{c})
		}
	}
	return clusters
}

// buildTopic collapses one cluster into a topic shell: title, summary and
// image come from the representative, sources are the most recent members
// up to the cap. Scores and category are filled in later stages.
func buildTopic(tenantID string, cluster []domain.Candidate, now time.Time) domain.Topic {
	rep := cluster[0]

	byRecency := make([]domain.Candidate, len(cluster))
	copy(byRecency, cluster)
	sort.SliceStable(byRecency, func(i, j int) bool {
		return byRecency[i].PublishedAt.After(byRecency[j].PublishedAt)
	})
	if len(byRecency) > maxSourcesPerTopic {
		byRecency = byRecency[:maxSourcesPerTopic]
	}

	sources := make([]domain.SourceRef, 0, len(byRecency))
	for _, c := range byRecency {
		sources = append(sources, domain.SourceRef{
			Medium:      c.Domain,
			Title:       c.Title,
			URL:         c.URL,
			PublishedAt: c.PublishedAt,
		})
	}

	return domain.Topic{
		TenantID:  tenantID,
		Title:     rep.Title,
		Summary:   rep.Summary,
		Sources:   sources,
		ImageURL:  rep.ImageURL,
		Status:    domain.TopicPending,
		CreatedAt: now,
	}
}

// timestamps collects the non-zero publication times of a topic's sources.
func timestamps(t *domain.Topic) []time.Time {
	out := make([]time.Time, 0, len(t.Sources))
	for _, s := range t.Sources {
		if !s.PublishedAt.IsZero() {
			out = append(out, s.PublishedAt)
		}
	}
	return out
}

// sourceDomains lists the unique domains backing a topic, most recent
// source first.
func sourceDomains(t *domain.Topic) []string {
	seen := make(map[string]struct{}, len(t.Sources))
	out := make([]string, 0, len(t.Sources))
	for _, s := range t.Sources {
		if _, ok := seen[s.Medium]; ok {
			continue
		}
		seen[s.Medium] = struct{}{}
		out = append(out, s.Medium)
	}
	return out
}
