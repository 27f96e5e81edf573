package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"stencil/internal/generator"
	"stencil/internal/infra"
	"stencil/internal/jobstore"
	"stencil/internal/mirror"
	"stencil/internal/orchestrator"
	"stencil/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobsDir := filepath.Join(cfg.DataDir, "jobs")
	store, err := jobstore.NewFileStore(jobsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure job store")
	}
	artifacts, err := storage.NewArtifactStore(jobsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure artifact storage")
	}

	gen, err := generator.NewGeminiClient(generator.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure generator")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("worker: GEMINI_API_KEY not set, running with synthetic generation")
	}

	// The metadata mirror is optional; without DATABASE_URL the worker runs
	// on the file store alone.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: db connection failed")
		}
		defer pool.Close()
	}
	m := mirror.New(pool, logger)

	orch := orchestrator.New(store, artifacts, gen, m, logger)
	workers := orchestrator.NewPool(store, orch, logger, cfg.WorkerCount, cfg.PollInterval)

	if err := workers.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: pool exited")
	}
	logger.Info().Msg("worker stopped")
}
