package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record, pending asset ingestion by default.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := video.AssetStatus
	if status == "" {
		status = models.AssetStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, asset_key, asset_url, asset_status, asset_size, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.AssetKey,
		video.AssetURL, status, video.AssetSize, video.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByIDs fetches the videos whose ids appear in the provided slice.
func (r *PostgresVideoRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, title, description, asset_key, asset_url, asset_status, asset_size, created_at
        FROM videos
        WHERE id = ANY($1)
    `, ids)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// MarkAssetReady updates a video's asset metadata after successful ingestion.
func (r *PostgresVideoRepository) MarkAssetReady(ctx context.Context, videoID, location string, size int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2,
            asset_url = $3,
            asset_size = $4
        WHERE id = $1
    `, videoID, models.AssetStatusReady, location, size)
	if err != nil {
		return fmt.Errorf("update video asset status ready: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAssetFailed records a failed ingestion attempt for the video.
func (r *PostgresVideoRepository) MarkAssetFailed(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2,
            asset_url = '',
            asset_size = 0
        WHERE id = $1
    `, videoID, models.AssetStatusFailed)
	if err != nil {
		return fmt.Errorf("update video asset status failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

type videoRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanVideos(rows videoRows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.AssetKey,
			&v.AssetURL, &v.AssetStatus, &v.AssetSize, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}
