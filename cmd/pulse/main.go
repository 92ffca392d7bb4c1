package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/advisory"
	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
	"github.com/MikeSquared-Agency/pulse/internal/anthropic"
	"github.com/MikeSquared-Agency/pulse/internal/api"
	"github.com/MikeSquared-Agency/pulse/internal/config"
	"github.com/MikeSquared-Agency/pulse/internal/dashboard"
	"github.com/MikeSquared-Agency/pulse/internal/hermes"
	"github.com/MikeSquared-Agency/pulse/internal/openai"
	"github.com/MikeSquared-Agency/pulse/internal/processor"
	"github.com/MikeSquared-Agency/pulse/internal/reports"
	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/MikeSquared-Agency/pulse/internal/slack"
	"github.com/MikeSquared-Agency/pulse/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	logger := slog.Default()

	logger.Info("pulse starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	resolver := scope.NewResolver(db, logger)
	agg := aggregate.New(db, logger)

	// Advisory engine (optional, requests answer 503 without one)
	engine := newEngine(cfg, logger)
	advisor := advisory.New(db, engine, logger, advisory.Options{
		Timeout:       cfg.AdvisoryTimeout,
		DefaultPrompt: cfg.AdvisoryDefaultPrompt,
	})

	// NATS/Hermes (optional, reports are saved without events)
	var publisher reports.Publisher
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		logger.Warn("NATS unavailable, running without events", "url", cfg.NatsURL, "error", err)
	} else {
		defer hermesClient.Close()
		publisher = hermesClient
		logger.Info("NATS connected", "url", cfg.NatsURL)

		proc := processor.New(resolver, advisor, hermesClient, logger)
		if err := hermesClient.Subscribe(hermes.SubjectAdvisoryRequested, proc.HandleAdvisoryRequested); err != nil {
			logger.Error("failed to subscribe to advisory requests", "error", err)
			os.Exit(1)
		}
	}

	// Slack poster (optional)
	var notifier reports.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		logger.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		logger.Warn("slack not configured, saved reports will not be announced")
	}

	reportSvc := reports.New(db, agg, advisor, publisher, notifier, logger)

	// HTTP API
	srv := api.NewServer(cfg.Port, api.Auth{APIToken: cfg.APIToken, JWTSecret: cfg.JWTSecret}, api.Deps{
		Store:      db,
		Scopes:     resolver,
		Metrics:    agg,
		Dashboards: dashboard.New(agg, logger),
		Advisor:    advisor,
		Reports:    reportSvc,
		Logger:     logger,
	})
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	logger.Info("pulse ready", "port", cfg.Port, "advisory_provider", cfg.AdvisoryProvider)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	cancel()
	logger.Info("pulse stopped")
}

// newEngine returns the configured reasoning engine, or nil when no key is set.
func newEngine(cfg config.Config, logger *slog.Logger) advisory.Engine {
	if cfg.AdvisoryKey() == "" {
		logger.Warn("advisory engine not configured", "provider", cfg.AdvisoryProvider)
		return nil
	}
	switch cfg.AdvisoryProvider {
	case config.ProviderAnthropic:
		logger.Info("anthropic client ready", "model", cfg.AnthropicModel)
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		logger.Info("openai client ready", "model", cfg.OpenAIModel)
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel).
			WithSchema(advisory.SchemaName, advisory.ActionSchema())
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
