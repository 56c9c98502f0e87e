package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"topicscan/internal/domain"
)

// Scanner defines the interface for scan operations.
type Scanner interface {
	Scan(ctx context.Context, tenantID string) ([]domain.Topic, error)
}

type Scheduler struct {
	scanner  Scanner
	tenants  []string
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(scanner Scanner, tenants []string, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		tenants:  tenants,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "tenants", len(s.tenants))

	s.runScans(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runScans(ctx)
		}
	}
}

func (s *Scheduler) runScans(ctx context.Context) {
	for _, tenantID := range s.tenants {
		if ctx.Err() != nil {
			return
		}
		s.runScan(ctx, tenantID)
	}
}

func (s *Scheduler) runScan(ctx context.Context, tenantID string) {
	scanCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	_, err := s.scanner.Scan(scanCtx, tenantID)
	switch {
	case errors.Is(err, domain.ErrScanInProgress):
		// A manually triggered or overlong run holds the lock; the next
		// tick will retry.
		s.logger.Warn("skipping scan, previous run still active", "tenant_id", tenantID)
	case err != nil:
		s.logger.Error("scan failed", "tenant_id", tenantID, "error", err)
	}
}
