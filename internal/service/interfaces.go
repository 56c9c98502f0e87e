package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"topicscan/internal/domain"
)

// Retriever fetches raw candidates for one run's configuration.
type Retriever interface {
	Retrieve(ctx context.Context, cfg domain.ScanConfig) ([]domain.Candidate, error)
}

// Classifier assigns a category from the closed set to a piece of text.
type Classifier interface {
	Classify(ctx context.Context, title, body, hint string) domain.ClassificationResult
}

// TopicStore is the storage collaborator for topics.
type TopicStore interface {
	Save(ctx context.Context, topic *domain.Topic) (int64, error)
	ListRecentTitles(ctx context.Context, tenantID string, since time.Time) ([]string, error)
}

// ScanLogStore records run outcome summaries.
type ScanLogStore interface {
	Insert(ctx context.Context, summary domain.ScanSummary) error
}

// ConfigStore supplies per-tenant configuration snapshots.
type ConfigStore interface {
	Get(ctx context.Context, tenantID string) (*domain.ScanConfig, error)
}

// TransactionManager scopes storage writes to one transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Publisher hands persisted topics to the downstream consumer.
type Publisher interface {
	PublishTopic(ctx context.Context, topic *domain.Topic) error
	Close() error
}
