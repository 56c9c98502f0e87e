package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"topicscan/internal/classify"
	"topicscan/internal/classify/openai"
	"topicscan/internal/config"
	"topicscan/internal/filter"
	"topicscan/internal/lock"
	"topicscan/internal/publisher"
	"topicscan/internal/queue"
	"topicscan/internal/retrieval"
	"topicscan/internal/scheduler"
	"topicscan/internal/service"
	"topicscan/internal/source/feeds"
	"topicscan/internal/source/newsapi"
	"topicscan/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	tenant := flag.String("tenant", "", "run a single scan for this tenant and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Initialize stores
	topicStore := postgres.NewTopicStore(db)
	scanLogStore := postgres.NewScanLogStore(db)
	tenantConfigStore := postgres.NewTenantConfigStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Initialize candidate sources
	searchAPI := newsapi.New(newsapi.Config{
		BaseURL:        cfg.API.BaseURL,
		APIKey:         cfg.API.APIKey,
		PageSize:       cfg.API.PageSize,
		Timeout:        cfg.API.Timeout,
		MaxAttempts:    cfg.API.Retry.MaxAttempts,
		InitialBackoff: cfg.API.Retry.InitialBackoff,
		MaxBackoff:     cfg.API.Retry.MaxBackoff,
	}, logger)

	feedSource := feeds.New(feeds.Config{
		Timeout:     cfg.Feeds.Timeout,
		FeedPathTTL: cfg.Feeds.FeedPathTTL,
		NegativeTTL: cfg.Feeds.NegativeTTL,
		UserAgent:   cfg.Feeds.UserAgent,
	}, logger)

	retriever := retrieval.New(searchAPI, feedSource, logger)

	// The external classifier is optional; without an endpoint the
	// ensemble runs rules and similarity only.
	var external classify.ExternalClassifier
	if cfg.Classifier.Endpoint != "" {
		client := openai.NewClient(openai.Config{
			Endpoint: cfg.Classifier.Endpoint,
			Model:    cfg.Classifier.Model,
			APIKey:   cfg.Classifier.APIKey,
			Timeout:  cfg.Classifier.Timeout,
		})
		classifyQueue := queue.New[string]("classify", cfg.Classifier.MaxConcurrent, logger)
		external = classify.NewBounded(client, classifyQueue, 0, cfg.Classifier.QueueTimeout)
	}
	ensemble := classify.New(external, logger)

	scanService := service.NewScanService(
		retriever,
		ensemble,
		topicStore,
		scanLogStore,
		tenantConfigStore,
		txManager,
		rabbitMQ,
		lock.NewRegistry(),
		filter.New(cfg.Filter),
		logger,
		cfg.Scan,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *tenant != "" {
		logger.Info("running one-shot scan", "tenant_id", *tenant)
		topics, err := scanService.Scan(ctx, *tenant)
		if err != nil {
			logger.Error("scan failed", "error", err)
			os.Exit(1)
		}
		logger.Info("scan finished", "topics", len(topics))
		return
	}

	sched := scheduler.NewScheduler(scanService, cfg.Scheduler.Tenants, cfg.Scheduler.Interval, logger)

	logger.Info("starting topic scanner",
		"interval", cfg.Scheduler.Interval,
		"tenants", cfg.Scheduler.Tenants,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
