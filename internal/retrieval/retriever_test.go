package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicscan/internal/domain"
	"topicscan/internal/source/feeds"
	"topicscan/internal/source/newsapi"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeAPI struct {
	calls   []newsapi.Query
	results map[string][]domain.Candidate // keyed by query text
	batchErr error
}

func (f *fakeAPI) Search(_ context.Context, q newsapi.Query) ([]domain.Candidate, error) {
	f.calls = append(f.calls, q)
	if len(q.Domains) > 0 && f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.results[q.Text], nil
}

type fakeFeeds struct {
	calls   []string
	results map[string][]domain.Candidate
	err     error
}

func (f *fakeFeeds) Fetch(_ context.Context, host string) ([]domain.Candidate, error) {
	f.calls = append(f.calls, host)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[host], nil
}

func cand(title, u string) domain.Candidate {
	return domain.Candidate{Title: title, URL: u, Domain: "example.com"}
}

func baseConfig() domain.ScanConfig {
	return domain.ScanConfig{
		TenantID:             "tenant-a",
		Queries:              []string{"cuba"},
		Languages:            []string{"es"},
		FreshnessWindowHours: 48,
	}
}

func TestRetrieve_KeywordQueriesPerLanguage(t *testing.T) {
	api := &fakeAPI{results: map[string][]domain.Candidate{
		"cuba": {cand("a", "https://x/1")},
	}}
	r := New(api, &fakeFeeds{}, testLogger())

	cfg := baseConfig()
	cfg.Languages = []string{"es", "en"}

	out, err := r.Retrieve(context.Background(), cfg)
	require.NoError(t, err)

	assert.Len(t, api.calls, 2)
	assert.Equal(t, "es", api.calls[0].Language)
	assert.Equal(t, "en", api.calls[1].Language)
	// Same URL from both language variants is deduped.
	assert.Len(t, out, 1)
}

func TestRetrieve_BatchClientErrorFallsBackToFeeds(t *testing.T) {
	api := &fakeAPI{
		batchErr: &newsapi.BatchError{Domains: []string{"14ymedio.com"}, StatusCode: http.StatusUnprocessableEntity},
	}
	feedSrc := &fakeFeeds{results: map[string][]domain.Candidate{
		"14ymedio.com": {cand("from feed", "https://14ymedio.com/1")},
	}}
	r := New(api, feedSrc, testLogger())

	cfg := baseConfig()
	cfg.Queries = nil
	cfg.AllowedDomains = []string{"14ymedio.com"}

	out, err := r.Retrieve(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"14ymedio.com"}, feedSrc.calls)
	require.Len(t, out, 1)
	assert.Equal(t, "from feed", out[0].Title)
}

func TestRetrieve_ServerErrorDoesNotTriggerFeedFallback(t *testing.T) {
	api := &fakeAPI{batchErr: errors.New("after 3 attempts: unexpected status: 500")}
	feedSrc := &fakeFeeds{}
	r := New(api, feedSrc, testLogger())

	cfg := baseConfig()
	cfg.AllowedDomains = []string{"14ymedio.com"}
	api.results = map[string][]domain.Candidate{"cuba": {cand("a", "https://x/1")}}

	out, err := r.Retrieve(context.Background(), cfg)
	require.NoError(t, err)

	assert.Empty(t, feedSrc.calls, "only batch client errors chain into feed fallback")
	assert.Len(t, out, 1)
}

func TestRetrieve_AllStrategiesFailed(t *testing.T) {
	api := &fakeAPI{batchErr: errors.New("boom")}
	r := New(api, &fakeFeeds{err: feeds.ErrNoFeed}, testLogger())

	cfg := baseConfig()
	cfg.Queries = nil
	cfg.AllowedDomains = []string{"14ymedio.com"}

	_, err := r.Retrieve(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRetrieve_FeedDomainsAlwaysFetched(t *testing.T) {
	feedSrc := &fakeFeeds{results: map[string][]domain.Candidate{
		"eltoque.com": {cand("direct", "https://eltoque.com/1")},
	}}
	r := New(&fakeAPI{}, feedSrc, testLogger())

	cfg := baseConfig()
	cfg.FeedDomains = []string{"eltoque.com"}

	out, err := r.Retrieve(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"eltoque.com"}, feedSrc.calls)
	assert.Len(t, out, 1)
}

func TestBatchDomains(t *testing.T) {
	domains := []string{"aaaa.com", "bbbb.com", "cccc.com", "dddd.com"}

	batches := batchDomains(domains, 20)

	require.Len(t, batches, 2)
	assert.Equal(t, []string{"aaaa.com", "bbbb.com"}, batches[0])
	assert.Equal(t, []string{"cccc.com", "dddd.com"}, batches[1])

	assert.Empty(t, batchDomains(nil, 20))
}
