package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"topicscan/internal/classify"
	"topicscan/internal/config"
	"topicscan/internal/domain"
	"topicscan/internal/filter"
	"topicscan/internal/lock"
	"topicscan/internal/scoring"
	"topicscan/internal/similarity"
)

// ScanService orchestrates one full discovery run per tenant: retrieval,
// tier filtering, dedup, grouping, scoring, classification, selection and
// persistence. At most one run per tenant executes at a time.
type ScanService struct {
	retriever  Retriever
	classifier Classifier
	topics     TopicStore
	scanLog    ScanLogStore
	configs    ConfigStore
	txManager  TransactionManager
	publisher  Publisher
	locks      *lock.Registry
	filter     *filter.Filter
	weights    scoring.Weights
	authority  scoring.AuthorityTable
	logger     *slog.Logger
	settings   config.ScanSettings
	now        func() time.Time
}

func NewScanService(
	retriever Retriever,
	classifier Classifier,
	topics TopicStore,
	scanLog ScanLogStore,
	configs ConfigStore,
	txManager TransactionManager,
	publisher Publisher,
	locks *lock.Registry,
	tierFilter *filter.Filter,
	logger *slog.Logger,
	settings config.ScanSettings,
) *ScanService {
	settings.SetDefaults()

	authority := make(scoring.AuthorityTable, len(settings.AuthorityScores))
	for host, score := range settings.AuthorityScores {
		authority[host] = score
	}

	return &ScanService{
		retriever:  retriever,
		classifier: classifier,
		topics:     topics,
		scanLog:    scanLog,
		configs:    configs,
		txManager:  txManager,
		publisher:  publisher,
		locks:      locks,
		filter:     tierFilter,
		weights:    settings.Weights,
		authority:  authority,
		logger:     logger.With("component", "scan"),
		settings:   settings,
		now:        time.Now,
	}
}

// Scan runs one full discovery pass for the tenant. A second call for the
// same tenant while one is running fails fast with domain.ErrScanInProgress;
// runs for different tenants proceed in parallel. The scan summary is
// recorded best-effort on every path, success or failure.
func (s *ScanService) Scan(ctx context.Context, tenantID string) ([]domain.Topic, error) {
	if !s.locks.TryAcquire(tenantID) {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrScanInProgress)
	}
	defer s.locks.Release(tenantID)

	run := domain.ScanRun{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		StartedAt: s.now(),
	}
	logger := s.logger.With("run_id", run.ID, "tenant_id", tenantID)

	cfg, err := s.configs.Get(ctx, tenantID)
	if err != nil {
		err = fmt.Errorf("load tenant config: %w", err)
		s.logSummary(s.failureSummary(run, domain.ScanSummary{}, err))
		return nil, err
	}
	run.Config = *cfg

	logger.Info("starting scan",
		"max_topics", cfg.MaxTopics,
		"strict_mode", cfg.StrictMode,
		"queries", len(cfg.Queries),
	)

	topics, summary, err := s.runPipeline(ctx, run, logger)
	summary.RunID = run.ID
	summary.TenantID = tenantID
	summary.Duration = s.now().Sub(run.StartedAt)

	if err != nil {
		s.logSummary(s.failureSummary(run, summary, err))
		return nil, err
	}

	summary.Status = domain.ScanSucceeded
	s.logSummary(summary)

	logger.Info("scan completed",
		"topics", summary.TopicsFound,
		"candidates", summary.CandidatesFetched,
		"duplicates_skipped", summary.DuplicatesSkipped,
		"sources_used", summary.SourcesUsed,
		"duration", summary.Duration,
	)
	return topics, nil
}

func (s *ScanService) runPipeline(ctx context.Context, run domain.ScanRun, logger *slog.Logger) ([]domain.Topic, domain.ScanSummary, error) {
	var summary domain.ScanSummary
	cfg := run.Config
	now := s.now()

	candidates, err := s.retriever.Retrieve(ctx, cfg)
	if err != nil {
		return nil, summary, fmt.Errorf("retrieve candidates: %w", err)
	}
	summary.CandidatesFetched = len(candidates)
	summary.SourcesUsed = countDomains(candidates)
	logger.Info("retrieved candidates", "count", len(candidates))

	candidates = s.admitCandidates(candidates, cfg)
	logger.Debug("after tier filter", "remaining", len(candidates))

	for i := range candidates {
		candidates[i].Score = s.preliminaryScore(candidates[i], now)
	}

	candidates, skipped := similarity.Dedup(candidates, s.settings.DedupThreshold)
	summary.DuplicatesSkipped = skipped
	logger.Debug("after dedup", "remaining", len(candidates), "skipped", skipped)

	candidates = s.filterByFreshness(candidates, cfg, now)
	candidates = capPerSource(candidates, cfg.PerSourceCap)
	logger.Debug("after freshness gate and source cap", "remaining", len(candidates))

	recentTitles, err := s.topics.ListRecentTitles(ctx, run.TenantID, now.Add(-s.settings.NoveltyLookback))
	if err != nil {
		logger.Warn("failed to load recent titles, novelty defaults to max", "error", err)
		recentTitles = nil
	}

	clusters := groupCandidates(candidates, s.settings.GroupingThreshold)

	topics := make([]domain.Topic, 0, len(clusters))
	for _, cluster := range clusters {
		topic := buildTopic(run.TenantID, cluster, now)
		s.scoreTopic(&topic, now, recentTitles)

		result := s.classifier.Classify(ctx, topic.Title, topic.Summary, cluster[0].CategoryHint)
		topic.Category = result.Category
		logger.Debug("classified topic",
			"title", topic.Title,
			"category", result.Category,
			"confidence", result.Confidence,
			"low_confidence", result.LowConfidence,
			"profile", result.Detail.Profile)

		topics = append(topics, topic)
	}

	selected := selectTopics(topics, cfg)
	persisted := s.persistTopics(ctx, selected, logger)
	summary.TopicsFound = len(persisted)

	return persisted, summary, nil
}

// admitCandidates applies the domain-tier policy and, in strict mode, the
// additional geographic relevance gate. Non-geographic categories such as
// sports keep flowing in strict mode even without a geographic signal.
func (s *ScanService) admitCandidates(candidates []domain.Candidate, cfg domain.ScanConfig) []domain.Candidate {
	var kept []domain.Candidate
	for _, c := range candidates {
		tier := s.filter.Classify(c.Domain)
		if !s.filter.Admit(c, tier) {
			continue
		}
		if cfg.StrictMode && !s.passesStrictGate(c, tier) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (s *ScanService) passesStrictGate(c domain.Candidate, tier domain.Tier) bool {
	if tier == domain.TierBypass {
		return true
	}
	if classify.NonGeographic[c.CategoryHint] {
		return true
	}
	return s.filter.HasPositiveSignal(c) && !s.filter.HasNoiseSignal(c)
}

// preliminaryScore orders candidates before dedup so that the freshest,
// best-sourced variant of a duplicate group survives.
func (s *ScanService) preliminaryScore(c domain.Candidate, now time.Time) float64 {
	freshness := 100 * scoring.Freshness(c.PublishedAt, now, s.settings.FreshnessHalfLife)
	return 0.7*freshness + 0.3*s.authority.Authority([]string{c.Domain})
}

func (s *ScanService) filterByFreshness(candidates []domain.Candidate, cfg domain.ScanConfig, now time.Time) []domain.Candidate {
	cutoff := now.Add(-time.Duration(cfg.FreshnessWindowHours) * time.Hour)
	var kept []domain.Candidate
	for _, c := range candidates {
		if c.PublishedAt.IsZero() || c.PublishedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// capPerSource keeps at most limit candidates per source domain, preferring
// higher preliminary scores. Candidates arrive score-ordered from dedup.
func capPerSource(candidates []domain.Candidate, limit int) []domain.Candidate {
	if limit <= 0 {
		return candidates
	}
	counts := make(map[string]int)
	var kept []domain.Candidate
	for _, c := range candidates {
		if counts[c.Domain] >= limit {
			continue
		}
		counts[c.Domain]++
		kept = append(kept, c)
	}
	return kept
}

func (s *ScanService) scoreTopic(topic *domain.Topic, now time.Time, recentTitles []string) {
	domains := sourceDomains(topic)
	stamps := timestamps(topic)
	text := topic.Title + " " + topic.Summary

	var newest time.Time
	for _, ts := range stamps {
		if ts.After(newest) {
			newest = ts
		}
	}

	topic.Scores = domain.SubScores{
		Freshness: 100 * scoring.Freshness(newest, now, s.settings.FreshnessHalfLife),
		Consensus: scoring.ConsensusScore(len(domains)),
		Authority: s.authority.Authority(domains),
		Trend:     scoring.TrendScore(stamps, now, s.settings.TrendWindow),
		Relevance: scoring.RelevanceScore(text, s.settings.RelevanceVocabulary),
		Novelty:   scoring.NoveltyScore(topic.Title, recentTitles),
	}

	bonus := scoring.VocabularyBonus(text, s.settings.ViralVocabulary, s.settings.PoliticalVocabulary)
	topic.Impact = scoring.Impact(topic.Scores, s.weights, bonus)
	topic.Confidence = scoring.ConfidenceTier(len(domains), topic.Scores.Consensus, stamps)
}

// persistTopics saves each selected topic in its own transaction and hands
// it downstream. A failed save drops only that topic; a failed publish is
// logged and the topic is still returned, it remains discoverable in
// storage.
func (s *ScanService) persistTopics(ctx context.Context, topics []domain.Topic, logger *slog.Logger) []domain.Topic {
	persisted := make([]domain.Topic, 0, len(topics))
	for i := range topics {
		topic := &topics[i]

		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			id, err := s.topics.Save(txCtx, topic)
			if err != nil {
				return err
			}
			topic.ID = id
			return nil
		})
		if err != nil {
			logger.Error("failed to save topic", "title", topic.Title, "error", err)
			continue
		}

		if s.publisher != nil {
			if err := s.publisher.PublishTopic(ctx, topic); err != nil {
				logger.Warn("failed to publish topic", "topic_id", topic.ID, "error", err)
			}
		}

		persisted = append(persisted, *topic)
	}
	return persisted
}

func (s *ScanService) failureSummary(run domain.ScanRun, partial domain.ScanSummary, err error) domain.ScanSummary {
	partial.RunID = run.ID
	partial.TenantID = run.TenantID
	partial.Status = domain.ScanFailed
	partial.Error = err.Error()
	if partial.Duration == 0 {
		partial.Duration = s.now().Sub(run.StartedAt)
	}
	return partial
}

// logSummary records the run outcome without blocking or failing the scan.
func (s *ScanService) logSummary(summary domain.ScanSummary) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.scanLog.Insert(ctx, summary); err != nil {
			s.logger.Warn("failed to record scan summary", "run_id", summary.RunID, "error", err)
		}
	}()
}

func countDomains(candidates []domain.Candidate) int {
	seen := make(map[string]struct{})
	for _, c := range candidates {
		seen[c.Domain] = struct{}{}
	}
	return len(seen)
}
