// Package newsapi implements the primary search-style retrieval
// strategy against a NewsAPI-compatible aggregation endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"topicscan/internal/domain"
)

// Config holds the search API connection and retry settings.
type Config struct {
	BaseURL        string
	APIKey         string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Query parameterizes one search call. Domains, when set, restricts
// results to that batch of source domains.
type Query struct {
	Text     string
	Domains  []string
	Language string
	From     time.Time
	To       time.Time
}

// BatchError reports a non-retryable client error tied to a specific
// domain batch. The retriever reacts by falling back to direct feed
// retrieval for these domains.
type BatchError struct {
	Domains    []string
	StatusCode int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("client error %d for domain batch %s", e.StatusCode, strings.Join(e.Domains, ","))
}

// Source is the primary search API client.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		pageSize:       cfg.PageSize,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", "newsapi"),
	}
}

// Search runs one query with exponential-backoff retry. Transient
// failures (network errors, 5xx, 429) are retried up to MaxAttempts;
// any other 4xx is non-retryable and, when the query carried a domain
// batch, surfaces as a *BatchError.
func (s *Source) Search(ctx context.Context, q Query) ([]domain.Candidate, error) {
	reqURL := s.buildURL(q)

	var resp *apiResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, reqURL, q.Domains)
		if err == nil {
			return s.transform(resp.Articles, q.Language), nil
		}

		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			return nil, err
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("search failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) buildURL(q Query) string {
	params := url.Values{}
	if q.Text != "" {
		params.Set("q", q.Text)
	}
	if len(q.Domains) > 0 {
		params.Set("domains", strings.Join(q.Domains, ","))
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	params.Set("pageSize", fmt.Sprintf("%d", s.pageSize))
	params.Set("sortBy", "publishedAt")

	return s.baseURL + "?" + params.Encode()
}

func (s *Source) doRequest(ctx context.Context, reqURL string, batch []string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)
	req.Header.Set("User-Agent", "TopicScan/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if isClientError(resp.StatusCode) {
			return nil, &BatchError{Domains: batch, StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Status != "" && apiResp.Status != "ok" {
		return nil, fmt.Errorf("api error %s: %s", apiResp.Code, apiResp.Message)
	}

	return &apiResp, nil
}

// isClientError marks 4xx other than 429 as non-retryable.
func isClientError(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(articles []apiArticle, language string) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(articles))

	for _, a := range articles {
		if a.Title == "" && a.URL == "" {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			s.logger.Warn("failed to parse date", "url", a.URL, "date", a.PublishedAt)
			publishedAt = time.Time{}
		}

		host := ""
		if u, uerr := url.Parse(a.URL); uerr == nil {
			host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		}

		summary := a.Description
		if summary == "" {
			summary = a.Content
		}

		candidates = append(candidates, domain.Candidate{
			Title:       a.Title,
			Summary:     summary,
			URL:         a.URL,
			Domain:      host,
			SourceName:  a.Source.Name,
			PublishedAt: publishedAt,
			ImageURL:    a.URLToImage,
			Language:    language,
		})
	}

	return candidates
}
