// Package retrieval composes the primary search API and direct feed
// strategies into one candidate stream. The key behavior is the
// fallback chain: a domain batch rejected by the search API with a
// client error is immediately retried through direct feed retrieval.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"topicscan/internal/domain"
	"topicscan/internal/source/feeds"
	"topicscan/internal/source/newsapi"
)

// SearchAPI is the primary search-style retrieval strategy.
type SearchAPI interface {
	Search(ctx context.Context, q newsapi.Query) ([]domain.Candidate, error)
}

// FeedFetcher is the direct feed retrieval strategy.
type FeedFetcher interface {
	Fetch(ctx context.Context, host string) ([]domain.Candidate, error)
}

// defaultBatchBudget caps the joined length of a domain batch so query
// strings stay within the provider's limits.
const defaultBatchBudget = 450

// Retriever drives both strategies for one scan run.
type Retriever struct {
	api         SearchAPI
	feeds       FeedFetcher
	batchBudget int
	logger      *slog.Logger
}

func New(api SearchAPI, feedSource FeedFetcher, logger *slog.Logger) *Retriever {
	return &Retriever{
		api:         api,
		feeds:       feedSource,
		batchBudget: defaultBatchBudget,
		logger:      logger.With("component", "retrieval"),
	}
}

// Retrieve fetches candidates for the run's queries and allowed
// domains. Partial results are the expected common case: individual
// strategy failures are logged and skipped, and an error is returned
// only when every attempt failed.
func (r *Retriever) Retrieve(ctx context.Context, cfg domain.ScanConfig) ([]domain.Candidate, error) {
	now := time.Now()
	from := now.Add(-time.Duration(cfg.FreshnessWindowHours) * time.Hour)

	var all []domain.Candidate
	attempts, failures := 0, 0

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"es", "en"}
	}

	for _, lang := range languages {
		for _, query := range cfg.Queries {
			attempts++
			candidates, err := r.api.Search(ctx, newsapi.Query{
				Text:     query,
				Language: lang,
				From:     from,
				To:       now,
			})
			if err != nil {
				failures++
				r.logger.Warn("keyword search failed", "query", query, "language", lang, "error", err)
				continue
			}
			all = append(all, candidates...)
		}
	}

	for _, batch := range batchDomains(cfg.AllowedDomains, r.batchBudget) {
		attempts++
		candidates, err := r.api.Search(ctx, newsapi.Query{
			Domains: batch,
			From:    from,
			To:      now,
		})
		if err == nil {
			all = append(all, candidates...)
			continue
		}

		var batchErr *newsapi.BatchError
		if errors.As(err, &batchErr) {
			r.logger.Info("domain batch rejected, falling back to feeds",
				"batch_size", len(batch),
				"status", batchErr.StatusCode,
			)
			if fetched := r.fetchFeeds(ctx, batch); len(fetched) > 0 {
				all = append(all, fetched...)
				continue
			}
		} else {
			r.logger.Warn("domain batch search failed", "batch_size", len(batch), "error", err)
		}
		failures++
	}

	all = append(all, r.fetchFeeds(ctx, cfg.FeedDomains)...)

	all = dedupeByURL(all)

	if len(all) == 0 && attempts > 0 && failures == attempts {
		return nil, fmt.Errorf("all retrieval strategies failed (%d attempts)", attempts)
	}
	return all, nil
}

// fetchFeeds pulls each domain's feed, tolerating per-domain failures.
func (r *Retriever) fetchFeeds(ctx context.Context, domains []string) []domain.Candidate {
	var out []domain.Candidate
	for _, host := range domains {
		candidates, err := r.feeds.Fetch(ctx, host)
		if err != nil {
			if !errors.Is(err, feeds.ErrNoFeed) {
				r.logger.Warn("feed fetch failed", "domain", host, "error", err)
			}
			continue
		}
		out = append(out, candidates...)
	}
	return out
}

// batchDomains splits the allow-list into batches whose joined length
// stays within the query budget.
func batchDomains(domains []string, budget int) [][]string {
	var batches [][]string
	var current []string
	length := 0

	for _, d := range domains {
		if d == "" {
			continue
		}
		// +1 for the joining comma.
		if len(current) > 0 && length+len(d)+1 > budget {
			batches = append(batches, current)
			current = nil
			length = 0
		}
		current = append(current, d)
		length += len(d) + 1
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// dedupeByURL drops exact URL repeats across strategies, keeping the
// first occurrence.
func dedupeByURL(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.URL != "" {
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}
