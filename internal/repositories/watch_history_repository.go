package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// foreignKeyViolation is the SQLSTATE for foreign key violations.
const foreignKeyViolation = "23503"

// PostgresWatchHistoryRepository records video views per account.
type PostgresWatchHistoryRepository struct {
	pool db.Pool
}

// NewPostgresWatchHistoryRepository constructs a watch history repository
// backed by PostgreSQL.
func NewPostgresWatchHistoryRepository(pool db.Pool) *PostgresWatchHistoryRepository {
	return &PostgresWatchHistoryRepository{pool: pool}
}

// Append records that the account watched the video.
func (r *PostgresWatchHistoryRepository) Append(ctx context.Context, event models.WatchEvent) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_events (account_id, video_id, watched_at)
        VALUES ($1, $2, $3)
    `, event.AccountID, event.VideoID, event.WatchedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("insert watch event: %w", err)
	}

	return nil
}

// ListForAccount returns the account's watched videos, most recent view
// first, one entry per video.
func (r *PostgresWatchHistoryRepository) ListForAccount(ctx context.Context, accountID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.asset_key, v.asset_url, v.asset_status, v.asset_size, v.created_at
        FROM (
            SELECT video_id, MAX(watched_at) AS last_watched
            FROM watch_events
            WHERE account_id = $1
            GROUP BY video_id
        ) w
        JOIN videos v ON v.id = w.video_id
        ORDER BY w.last_watched DESC
        LIMIT 100
    `, accountID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}
