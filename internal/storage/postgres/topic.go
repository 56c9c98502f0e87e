package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"topicscan/internal/domain"
)

type TopicStore struct {
	db *sqlx.DB
}

func NewTopicStore(db *sqlx.DB) *TopicStore {
	return &TopicStore{db: db}
}

// Save persists a topic with status pending and its source references,
// returning the new id. Runs inside the ambient transaction when one is
// present in the context.
func (s *TopicStore) Save(ctx context.Context, topic *domain.Topic) (int64, error) {
	exec := GetExecutor(ctx, s.db)

	query := `
		INSERT INTO topics (
			tenant_id, title, summary, category, impact, confidence,
			score_freshness, score_consensus, score_authority,
			score_trend, score_relevance, score_novelty,
			image_url, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		RETURNING id`

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		topic.TenantID,
		topic.Title,
		topic.Summary,
		topic.Category,
		topic.Impact,
		topic.Confidence,
		topic.Scores.Freshness,
		topic.Scores.Consensus,
		topic.Scores.Authority,
		topic.Scores.Trend,
		topic.Scores.Relevance,
		topic.Scores.Novelty,
		topic.ImageURL,
		topic.Status,
		topic.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	if err := s.insertSources(ctx, id, topic.Sources); err != nil {
		return 0, err
	}

	return id, nil
}

func (s *TopicStore) insertSources(ctx context.Context, topicID int64, sources []domain.SourceRef) error {
	if len(sources) == 0 {
		return nil
	}

	exec := GetExecutor(ctx, s.db)

	var sb strings.Builder
	sb.WriteString("INSERT INTO topic_sources (topic_id, medium, title, url, published_at) VALUES ")
	args := make([]interface{}, 0, len(sources)*5)

	for i, src := range sources {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		sb.WriteString("($" + strconv.Itoa(base+1) +
			", $" + strconv.Itoa(base+2) +
			", $" + strconv.Itoa(base+3) +
			", $" + strconv.Itoa(base+4) +
			", $" + strconv.Itoa(base+5) + ")")
		args = append(args, topicID, src.Medium, src.Title, src.URL, src.PublishedAt)
	}

	_, err := exec.ExecContext(ctx, sb.String(), args...)
	return err
}

// ListRecentTitles returns titles of topics created for the tenant
// since the cutoff. The orchestrator uses them for novelty scoring.
func (s *TopicStore) ListRecentTitles(ctx context.Context, tenantID string, since time.Time) ([]string, error) {
	query := `
		SELECT title FROM topics
		WHERE tenant_id = $1 AND created_at >= $2
		ORDER BY created_at DESC`

	var titles []string
	if err := s.db.SelectContext(ctx, &titles, query, tenantID, since); err != nil {
		return nil, err
	}
	return titles, nil
}
