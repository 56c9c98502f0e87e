package service

import (
	"sort"

	"topicscan/internal/domain"
)

// selectTopics picks at most cfg.MaxTopics from the scored topics. In
// strict mode ranking is freshness-first with impact breaking ties; in
// normal mode impact-ranked topics fill per-category quotas (priority
// categories first) and any slots still open are backfilled by impact
// regardless of quota.
func selectTopics(topics []domain.Topic, cfg domain.ScanConfig) []domain.Topic {
	limit := cfg.MaxTopics
	if limit <= 0 || limit > len(topics) {
		limit = len(topics)
	}
	if len(topics) == 0 {
		return nil
	}

	if cfg.StrictMode {
		return selectStrict(topics, limit)
	}
	return selectWithQuotas(topics, cfg, limit)
}

func selectStrict(topics []domain.Topic, limit int) []domain.Topic {
	ranked := make([]domain.Topic, len(topics))
	copy(ranked, topics)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Scores.Freshness != ranked[j].Scores.Freshness {
			return ranked[i].Scores.Freshness > ranked[j].Scores.Freshness
		}
		return ranked[i].Impact > ranked[j].Impact
	})
	return ranked[:limit]
}

func selectWithQuotas(topics []domain.Topic, cfg domain.ScanConfig, limit int) []domain.Topic {
	ranked := make([]domain.Topic, len(topics))
	copy(ranked, topics)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Impact > ranked[j].Impact
	})

	selected := make([]domain.Topic, 0, limit)
	used := make([]bool, len(ranked))
	counts := make(map[string]int)

	take := func(i int) {
		selected = append(selected, ranked[i])
		counts[ranked[i].Category]++
		used[i] = true
	}

	// Priority categories claim their quota slots first, in the order the
	// tenant listed them.
	for _, cat := range cfg.PriorityCategories {
		quota, ok := cfg.CategoryQuotas[cat]
		if !ok {
			quota = limit
		}
		for i := range ranked {
			if len(selected) >= limit {
				return selected
			}
			if used[i] || ranked[i].Category != cat || counts[cat] >= quota {
				continue
			}
			take(i)
		}
	}

	// Remaining topics by impact, respecting each category's quota.
	for i := range ranked {
		if len(selected) >= limit {
			return selected
		}
		if used[i] {
			continue
		}
		if quota, ok := cfg.CategoryQuotas[ranked[i].Category]; ok && counts[ranked[i].Category] >= quota {
			continue
		}
		take(i)
	}

	// Backfill: quotas are a preference, not a hard floor on output size.
	for i := range ranked {
		if len(selected) >= limit {
			break
		}
		if !used[i] {
			take(i)
		}
	}
	return selected
}
