package handlers

import (
	"context"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/models"
)

// SessionService captures the credential and session lifecycle operations
// required by the auth handlers.
type SessionService interface {
	Register(ctx context.Context, input auth.RegisterInput) (models.Account, error)
	Login(ctx context.Context, identifier, password string) (models.Account, models.SessionTokens, error)
	Refresh(ctx context.Context, presented string) (models.SessionTokens, error)
	Logout(ctx context.Context, accountID string) error
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
	Account(ctx context.Context, accountID string) (models.Account, error)
}

// EngagementLedger captures the like-toggle operations.
type EngagementLedger interface {
	Toggle(ctx context.Context, accountID string, target models.LikeTarget) (bool, error)
	ListLikedVideos(ctx context.Context, accountID string) ([]models.Video, error)
}

// VideoStore captures persistence for video publishing.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
}

// WatchHistoryStore records and lists video views per account.
type WatchHistoryStore interface {
	Append(ctx context.Context, event models.WatchEvent) error
	ListForAccount(ctx context.Context, accountID string) ([]models.Video, error)
}

// VideoAssetIngestor schedules background persistence of video payloads.
type VideoAssetIngestor interface {
	Enqueue(ctx context.Context, job media.IngestJob) error
}
