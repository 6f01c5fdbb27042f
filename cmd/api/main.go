package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bhiv/hr-platform/internal/config"
	"bhiv/hr-platform/internal/handlers"
	"bhiv/hr-platform/internal/logger"
	"bhiv/hr-platform/internal/repositories"
	"bhiv/hr-platform/internal/services"
)

const geminiMaxRetries = 3

func main() {
	// Load configuration
	cfg := config.Load()

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	if err := cfg.Validate(); err != nil {
		zl.Fatal("❌ Invalid configuration", zap.Error(err))
	}
	zl.Info("✅ Config loaded successfully",
		zap.String("env", cfg.Server.Env),
		zap.String("notification_mode", cfg.Notification.Mode),
	)

	// Initialize database
	db, err := config.InitDatabase(cfg, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	// Initialize repositories
	candidateRepo := repositories.NewCandidateRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	workflowRepo := repositories.NewWorkflowRepository(db)
	zl.Info("✅ Repositories initialized successfully")

	// Initialize matching
	cache := services.NewMatchCache(cfg.Redis.URL, cfg.Match.CacheTTL, zl)
	agent := services.NewAgentClient(cfg.Agent.URL, cfg.Agent.APIKey, cfg.Agent.Timeout, zl)

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), 5*time.Second)
	if err := agent.Health(healthCtx); err != nil {
		zl.Warn("⚠️  Agent service unreachable, fallback matching will be used", zap.String("url", cfg.Agent.URL), zap.Error(err))
	} else {
		zl.Info("✅ Agent service reachable", zap.String("url", cfg.Agent.URL))
	}
	cancelHealth()

	matcher := services.NewMatcherService(agent, candidateRepo, jobRepo, cache, cfg.Match.BatchLimit, zl)

	// Initialize Gemini AI; recommendations fall back to templates without it.
	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		g, err := services.NewGeminiService(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, zl)
		if err != nil {
			zl.Warn("⚠️  Gemini unavailable, using template recommendations", zap.Error(err))
		} else {
			gemini = g
			zl.Info("✅ Gemini AI initialized successfully", zap.String("model", cfg.Gemini.Model))
		}
	}
	recommender := services.NewRecommender(gemini, geminiMaxRetries, zl)

	// Initialize notifications
	notifier := services.NewNotificationService(
		cfg.Notification.Mode,
		cfg.Notification.Timeout,
		cfg.Notification.RatePerSecond,
		services.NewSendersFromConfig(cfg.Notification),
		zl,
	)

	// Initialize workflows
	hub := services.NewProgressHub()
	tracker := services.NewWorkflowTracker(workflowRepo, hub, zl)
	pipeline := services.NewApplicationPipeline(tracker, matcher, recommender, notifier, candidateRepo, jobRepo, zl)
	runner := services.NewWorkflowRunner(tracker, pipeline, services.RunnerOptions{
		Concurrency:     cfg.Worker.Concurrency,
		QueueSize:       cfg.Worker.QueueSize,
		WorkflowTimeout: cfg.Worker.WorkflowTimeout,
		PollInterval:    cfg.Worker.PollInterval,
	}, zl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)
	zl.Info("✅ Workflow runner started", zap.Int("concurrency", cfg.Worker.Concurrency))

	app := handlers.NewApp(handlers.Dependencies{
		APIKeySecret:   cfg.Server.APIKeySecret,
		Matcher:        matcher,
		Runner:         runner,
		Tracker:        tracker,
		Notifier:       notifier,
		Hub:            hub,
		Log:            zl,
		RequestLogging: true,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-quit
		shutdown(runner, app, zl)
		cancel()
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zl.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zl.Fatal("❌ Failed to start server", zap.Error(err))
	}

	<-done
	zl.Info("✅ Server stopped")
}
