package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"topicscan/internal/config"
	"topicscan/internal/domain"
	"topicscan/internal/filter"
	"topicscan/internal/lock"
	"topicscan/internal/service/mocks"
)

type ScanServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	retriever  *mocks.MockRetriever
	classifier *mocks.MockClassifier
	topics     *mocks.MockTopicStore
	scanLog    *mocks.MockScanLogStore
	configs    *mocks.MockConfigStore
	txManager  *mocks.MockTransactionManager
	publisher  *mocks.MockPublisher

	service *ScanService
	logged  chan domain.ScanSummary
	logger  *slog.Logger
}

func (s *ScanServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.retriever = mocks.NewMockRetriever(s.ctrl)
	s.classifier = mocks.NewMockClassifier(s.ctrl)
	s.topics = mocks.NewMockTopicStore(s.ctrl)
	s.scanLog = mocks.NewMockScanLogStore(s.ctrl)
	s.configs = mocks.NewMockConfigStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.logged = make(chan domain.ScanSummary, 4)
	s.scanLog.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, summary domain.ScanSummary) error {
			s.logged <- summary
			return nil
		},
	).AnyTimes()

	s.service = NewScanService(
		s.retriever,
		s.classifier,
		s.topics,
		s.scanLog,
		s.configs,
		s.txManager,
		s.publisher,
		lock.NewRegistry(),
		filter.New(filter.DefaultConfig()),
		s.logger,
		config.ScanSettings{},
	)
}

func (s *ScanServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestScanServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ScanServiceTestSuite))
}

// waitSummary blocks until the asynchronous summary write for one run has
// landed, so expectations are settled before the controller finishes.
func (s *ScanServiceTestSuite) waitSummary() domain.ScanSummary {
	select {
	case summary := <-s.logged:
		return summary
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for scan summary")
		return domain.ScanSummary{}
	}
}

func (s *ScanServiceTestSuite) tenantConfig() *domain.ScanConfig {
	return &domain.ScanConfig{
		TenantID:             "acme",
		MaxTopics:            10,
		FreshnessWindowHours: 48,
		PerSourceCap:         5,
	}
}

func (s *ScanServiceTestSuite) expectTransactions() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()
}

func generalResult() domain.ClassificationResult {
	return domain.ClassificationResult{Category: "general", Confidence: 0.8}
}

func (s *ScanServiceTestSuite) TestScan_HappyPath() {
	ctx := context.Background()
	now := time.Now()

	candidates := []domain.Candidate{
		{
			Title:       "Apagones masivos golpean a toda la isla",
			Summary:     "Cortes de mas de doce horas en varias provincias",
			URL:         "https://www.14ymedio.com/cuba/apagones-masivos",
			Domain:      "14ymedio.com",
			PublishedAt: now.Add(-2 * time.Hour),
		},
	}

	s.configs.EXPECT().Get(ctx, "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(candidates, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "acme", gomock.Any()).Return(nil, nil)
	s.classifier.EXPECT().Classify(ctx, candidates[0].Title, candidates[0].Summary, "").Return(generalResult())

	s.expectTransactions()
	s.topics.EXPECT().Save(gomock.Any(), gomock.Any()).Return(int64(42), nil)
	s.publisher.EXPECT().PublishTopic(ctx, gomock.Any()).Return(nil)

	topics, err := s.service.Scan(ctx, "acme")

	s.NoError(err)
	s.Require().Len(topics, 1)
	s.Equal(int64(42), topics[0].ID)
	s.Equal("acme", topics[0].TenantID)
	s.Equal("Apagones masivos golpean a toda la isla", topics[0].Title)
	s.Equal("general", topics[0].Category)
	s.Equal(domain.TopicPending, topics[0].Status)
	s.Require().Len(topics[0].Sources, 1)
	s.Equal("14ymedio.com", topics[0].Sources[0].Medium)
	s.Greater(topics[0].Impact, 0)

	summary := s.waitSummary()
	s.Equal(domain.ScanSucceeded, summary.Status)
	s.Equal("acme", summary.TenantID)
	s.Equal(1, summary.TopicsFound)
	s.Equal(1, summary.CandidatesFetched)
}

func (s *ScanServiceTestSuite) TestScan_ClassificationAuditLogged() {
	ctx := context.Background()
	now := time.Now()

	var buf bytes.Buffer
	service := NewScanService(
		s.retriever,
		s.classifier,
		s.topics,
		s.scanLog,
		s.configs,
		s.txManager,
		s.publisher,
		lock.NewRegistry(),
		filter.New(filter.DefaultConfig()),
		slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		config.ScanSettings{},
	)

	candidates := []domain.Candidate{
		{
			Title:       "Apagones masivos golpean a toda la isla",
			URL:         "https://www.14ymedio.com/cuba/apagones",
			Domain:      "14ymedio.com",
			PublishedAt: now.Add(-1 * time.Hour),
		},
	}

	s.configs.EXPECT().Get(ctx, "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(candidates, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "acme", gomock.Any()).Return(nil, nil)
	s.classifier.EXPECT().Classify(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.ClassificationResult{
		Category:      "general",
		Confidence:    0.42,
		LowConfidence: true,
		Detail:        domain.ClassificationDetail{Profile: "rules-only"},
	})

	s.expectTransactions()
	s.topics.EXPECT().Save(gomock.Any(), gomock.Any()).Return(int64(3), nil)
	s.publisher.EXPECT().PublishTopic(ctx, gomock.Any()).Return(nil)

	_, err := service.Scan(ctx, "acme")
	s.NoError(err)
	s.waitSummary()

	// Each classification decision leaves its audit trail in the debug log.
	out := buf.String()
	s.Contains(out, "classified topic")
	s.Contains(out, `"category":"general"`)
	s.Contains(out, `"low_confidence":true`)
	s.Contains(out, `"profile":"rules-only"`)
}

func (s *ScanServiceTestSuite) TestScan_SecondRunSameTenantRejected() {
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	s.configs.EXPECT().Get(gomock.Any(), "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, domain.ScanConfig) ([]domain.Candidate, error) {
			close(entered)
			<-release
			return nil, nil
		},
	)
	s.topics.EXPECT().ListRecentTitles(gomock.Any(), "acme", gomock.Any()).Return(nil, nil)

	go func() {
		defer close(done)
		_, err := s.service.Scan(ctx, "acme")
		s.NoError(err)
	}()

	<-entered
	_, err := s.service.Scan(ctx, "acme")
	s.ErrorIs(err, domain.ErrScanInProgress)

	close(release)
	<-done
	s.waitSummary()
}

func (s *ScanServiceTestSuite) TestScan_LockReleasedAfterFailure() {
	ctx := context.Background()

	s.configs.EXPECT().Get(ctx, "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(nil, errors.New("every batch failed"))

	_, err := s.service.Scan(ctx, "acme")
	s.Error(err)
	s.Contains(err.Error(), "retrieve candidates")

	summary := s.waitSummary()
	s.Equal(domain.ScanFailed, summary.Status)
	s.Contains(summary.Error, "every batch failed")

	// The failed run must not leave the tenant locked.
	s.configs.EXPECT().Get(ctx, "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(nil, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "acme", gomock.Any()).Return(nil, nil)

	topics, err := s.service.Scan(ctx, "acme")
	s.NoError(err)
	s.Empty(topics)
	s.waitSummary()
}

func (s *ScanServiceTestSuite) TestScan_ConfigLoadFailure() {
	ctx := context.Background()

	s.configs.EXPECT().Get(ctx, "acme").Return(nil, errors.New("connection refused"))

	_, err := s.service.Scan(ctx, "acme")
	s.Error(err)
	s.Contains(err.Error(), "load tenant config")

	summary := s.waitSummary()
	s.Equal(domain.ScanFailed, summary.Status)
}

func (s *ScanServiceTestSuite) TestScan_FreshnessWindowDropsStaleCandidates() {
	ctx := context.Background()
	now := time.Now()

	cfg := s.tenantConfig()
	cfg.FreshnessWindowHours = 24

	candidates := []domain.Candidate{
		{
			Title:       "Noticia vieja sobre los apagones",
			URL:         "https://www.cibercuba.com/noticias/vieja",
			Domain:      "cibercuba.com",
			PublishedAt: now.Add(-30 * time.Hour),
		},
	}

	s.configs.EXPECT().Get(ctx, "acme").Return(cfg, nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(candidates, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "acme", gomock.Any()).Return(nil, nil)

	topics, err := s.service.Scan(ctx, "acme")

	s.NoError(err)
	s.Empty(topics)

	summary := s.waitSummary()
	s.Equal(1, summary.CandidatesFetched)
	s.Equal(0, summary.TopicsFound)
}

func (s *ScanServiceTestSuite) TestScan_CategoryQuotasRespected() {
	ctx := context.Background()
	now := time.Now()

	cfg := s.tenantConfig()
	cfg.MaxTopics = 2
	cfg.CategoryQuotas = map[string]int{"economy": 1}
	cfg.PriorityCategories = []string{"economy"}

	candidates := []domain.Candidate{
		{
			Title:       "Nuevo impuesto a las mipymes anunciado",
			URL:         "https://www.14ymedio.com/economia/impuesto-mipymes",
			Domain:      "14ymedio.com",
			PublishedAt: now.Add(-1 * time.Hour),
		},
		{
			Title:       "Tasa del dolar alcanza record historico",
			URL:         "https://www.cibercuba.com/economia/tasa-dolar",
			Domain:      "cibercuba.com",
			PublishedAt: now.Add(-1 * time.Hour),
		},
		{
			Title:       "Familias reportan escasez de medicamentos basicos",
			URL:         "https://www.cubanet.org/sociedad/medicamentos",
			Domain:      "cubanet.org",
			PublishedAt: now.Add(-1 * time.Hour),
		},
	}

	s.configs.EXPECT().Get(ctx, "acme").Return(cfg, nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(candidates, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "acme", gomock.Any()).Return(nil, nil)

	s.classifier.EXPECT().Classify(ctx, gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, title, _, _ string) domain.ClassificationResult {
			if strings.Contains(title, "impuesto") || strings.Contains(title, "dolar") {
				return domain.ClassificationResult{Category: "economy"}
			}
			return domain.ClassificationResult{Category: "society"}
		},
	).Times(3)

	s.expectTransactions()
	s.topics.EXPECT().Save(gomock.Any(), gomock.Any()).Return(int64(1), nil).Times(2)
	s.publisher.EXPECT().PublishTopic(ctx, gomock.Any()).Return(nil).Times(2)

	topics, err := s.service.Scan(ctx, "acme")

	s.NoError(err)
	s.Require().Len(topics, 2)

	counts := map[string]int{}
	for _, t := range topics {
		counts[t.Category]++
	}
	s.Equal(1, counts["economy"])
	s.Equal(1, counts["society"])
	s.waitSummary()
}

func (s *ScanServiceTestSuite) TestScan_SaveFailureKeepsOtherTopics() {
	ctx := context.Background()
	now := time.Now()

	candidates := []domain.Candidate{
		{
			Title:       "Apagones masivos golpean a toda la isla",
			URL:         "https://www.14ymedio.com/cuba/apagones",
			Domain:      "14ymedio.com",
			PublishedAt: now.Add(-1 * time.Hour),
		},
		{
			Title:       "Festival de cine abre su convocatoria anual",
			URL:         "https://www.cibercuba.com/cultura/festival-cine",
			Domain:      "cibercuba.com",
			PublishedAt: now.Add(-1 * time.Hour),
		},
	}

	s.configs.EXPECT().Get(ctx, "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(candidates, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "acme", gomock.Any()).Return(nil, nil)
	s.classifier.EXPECT().Classify(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(generalResult()).Times(2)

	s.expectTransactions()
	s.topics.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, topic *domain.Topic) (int64, error) {
			if strings.Contains(topic.Title, "Apagones") {
				return 0, errors.New("constraint violation")
			}
			return 7, nil
		},
	).Times(2)
	s.publisher.EXPECT().PublishTopic(ctx, gomock.Any()).Return(nil)

	topics, err := s.service.Scan(ctx, "acme")

	s.NoError(err)
	s.Require().Len(topics, 1)
	s.Contains(topics[0].Title, "Festival")

	summary := s.waitSummary()
	s.Equal(1, summary.TopicsFound)
}

func (s *ScanServiceTestSuite) TestScan_PublishFailureIsTolerated() {
	ctx := context.Background()
	now := time.Now()

	candidates := []domain.Candidate{
		{
			Title:       "Apagones masivos golpean a toda la isla",
			URL:         "https://www.14ymedio.com/cuba/apagones",
			Domain:      "14ymedio.com",
			PublishedAt: now.Add(-1 * time.Hour),
		},
	}

	s.configs.EXPECT().Get(ctx, "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(candidates, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "acme", gomock.Any()).Return(nil, nil)
	s.classifier.EXPECT().Classify(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(generalResult())

	s.expectTransactions()
	s.topics.EXPECT().Save(gomock.Any(), gomock.Any()).Return(int64(9), nil)
	s.publisher.EXPECT().PublishTopic(ctx, gomock.Any()).Return(errors.New("broker down"))

	topics, err := s.service.Scan(ctx, "acme")

	s.NoError(err)
	s.Len(topics, 1)
	s.waitSummary()
}

func (s *ScanServiceTestSuite) TestScan_ExcludedDomainsFiltered() {
	ctx := context.Background()
	now := time.Now()

	candidates := []domain.Candidate{
		{
			Title:       "Editorial oficial celebra aniversario",
			URL:         "http://www.granma.cu/editorial",
			Domain:      "granma.cu",
			PublishedAt: now.Add(-1 * time.Hour),
		},
	}

	s.configs.EXPECT().Get(ctx, "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(candidates, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "acme", gomock.Any()).Return(nil, nil)

	topics, err := s.service.Scan(ctx, "acme")

	s.NoError(err)
	s.Empty(topics)
	s.waitSummary()
}

func (s *ScanServiceTestSuite) TestScan_ParallelTenantsProceed() {
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	s.configs.EXPECT().Get(gomock.Any(), "acme").Return(s.tenantConfig(), nil)
	s.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, domain.ScanConfig) ([]domain.Candidate, error) {
			close(entered)
			<-release
			return nil, nil
		},
	)
	s.topics.EXPECT().ListRecentTitles(gomock.Any(), "acme", gomock.Any()).Return(nil, nil)

	go func() {
		defer close(done)
		_, err := s.service.Scan(ctx, "acme")
		s.NoError(err)
	}()
	<-entered

	otherCfg := &domain.ScanConfig{TenantID: "globex", MaxTopics: 5, FreshnessWindowHours: 48, PerSourceCap: 5}
	s.configs.EXPECT().Get(ctx, "globex").Return(otherCfg, nil)
	s.retriever.EXPECT().Retrieve(ctx, gomock.Any()).Return(nil, nil)
	s.topics.EXPECT().ListRecentTitles(ctx, "globex", gomock.Any()).Return(nil, nil)

	_, err := s.service.Scan(ctx, "globex")
	s.NoError(err)

	close(release)
	<-done
	s.waitSummary()
	s.waitSummary()
}
