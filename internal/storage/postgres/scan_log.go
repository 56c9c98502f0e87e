package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"topicscan/internal/domain"
)

type ScanLogStore struct {
	db *sqlx.DB
}

func NewScanLogStore(db *sqlx.DB) *ScanLogStore {
	return &ScanLogStore{db: db}
}

// Insert records the outcome of one scan run.
func (s *ScanLogStore) Insert(ctx context.Context, summary domain.ScanSummary) error {
	query := `
		INSERT INTO scan_runs (
			run_id, tenant_id, status, topics_found, sources_used,
			candidates_fetched, duplicates_skipped, duration_ms, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		summary.RunID,
		summary.TenantID,
		summary.Status,
		summary.TopicsFound,
		summary.SourcesUsed,
		summary.CandidatesFetched,
		summary.DuplicatesSkipped,
		summary.Duration.Milliseconds(),
		summary.Error,
	)
	return err
}
