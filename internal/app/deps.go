package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/engagement"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
	"github.com/cliptube/backend/internal/storage"
)

// dependencies bundles everything serve needs beyond the HTTP handlers.
type dependencies struct {
	handlers handlers.Dependencies
	ingestor *media.Ingestor
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (dependencies, error) {
	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return dependencies{}, fmt.Errorf("configure object storage: %w", err)
	}

	accounts := repositories.NewPostgresAccountStore(pool)
	likes := repositories.NewPostgresLikeStore(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	history := repositories.NewPostgresWatchHistoryRepository(pool)
	targets := repositories.NewPostgresContentChecker(pool)

	tokens := auth.NewTokenIssuer(cfg.Tokens)
	uploader := media.NewUploader(objectStore)
	sessions := auth.NewSessionManager(accounts, tokens, uploader)
	ledger := engagement.NewLedger(likes, targets, videos)

	ingestor := media.NewIngestor(objectStore, videos, media.IngestorConfig{
		QueueSize: cfg.IngestQueueSize,
		Workers:   cfg.IngestWorkers,
	}, logger)

	return dependencies{
		handlers: handlers.Dependencies{
			Sessions:      sessions,
			Ledger:        ledger,
			Videos:        videos,
			History:       history,
			Ingestor:      ingestor,
			TokenVerifier: tokens,
			AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthRateLimit),
			ToggleLimiter: middleware.NewIPRateLimiter(cfg.ToggleRateLimit),
		},
		ingestor: ingestor,
	}, nil
}
