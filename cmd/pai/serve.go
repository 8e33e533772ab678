package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pai/internal/anthropic"
	"github.com/MikeSquared-Agency/pai/internal/api"
	"github.com/MikeSquared-Agency/pai/internal/cache"
	"github.com/MikeSquared-Agency/pai/internal/config"
	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/hermes"
	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
	"github.com/MikeSquared-Agency/pai/internal/processor"
	"github.com/MikeSquared-Agency/pai/internal/store"
	"github.com/MikeSquared-Agency/pai/internal/supabase"
	"github.com/MikeSquared-Agency/pai/internal/validation"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg := config.Load()
	closeLog := setupLogging(cfg, os.Stdout)
	defer closeLog()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}
	slog.Info("pai starting", "port", cfg.Port, "backend", cfg.StoreBackend)

	proc, cleanup, err := newProcessor(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := api.NewServer(proc, api.Options{
		Port:             cfg.Port,
		APIToken:         cfg.APIToken,
		CORSOrigin:       cfg.CORSOrigin,
		RateLimit:        cfg.RateLimit,
		RateBurst:        cfg.RateBurst,
		APIKeyConfigured: cfg.AnthropicAPIKey != "",
	}, slog.Default())

	slog.Info("pai ready", "port", cfg.Port)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server error", "error", err)
		return err
	}
	slog.Info("pai stopped")
	return nil
}

// newProcessor wires storage, the optional session cache and event bus, and
// the model-backed components. cleanup releases all of them.
func newProcessor(ctx context.Context, cfg config.Config) (*processor.Processor, func(), error) {
	llm := newLLM(cfg)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.StoreBackend, "error", err)
		return nil, nil, err
	}

	// Redis (optional; sessions are read from the store without it)
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, running without session cache", "error", err)
		} else {
			repo = cache.NewSessionStore(repo, rdb, cfg.SessionTTL, slog.Default())
			slog.Info("session cache ready", "ttl", cfg.SessionTTL)
		}
	}

	// NATS/Hermes (optional; events are dropped without it)
	var events *hermes.Client
	if cfg.NatsURL != "" {
		events, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("NATS unavailable, running without events", "error", err)
			events = nil
		} else {
			slog.Info("NATS connected", "url", cfg.NatsURL)
		}
	}

	proc := processor.New(
		repo,
		interview.NewSequencer(llm, slog.Default()),
		extractor.New(llm, slog.Default()),
		validation.New(predictor.New(llm, slog.Default()), slog.Default()),
		events,
		processor.Options{
			Backend:        cfg.StoreBackend,
			ModelVersion:   llm.Model(),
			TargetAccuracy: cfg.TargetAccuracy,
		},
		slog.Default(),
	)

	cleanup := func() {
		events.Close()
		repo.Close()
	}
	return proc, cleanup, nil
}

func newLLM(cfg config.Config) *anthropic.Client {
	return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.LLMTimeout)
}

func openRepository(ctx context.Context, cfg config.Config) (store.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		return supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StoreTimeout), nil
	case config.BackendPostgres:
		db, err := store.New(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case config.BackendMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StoreBackend)
	}
}
