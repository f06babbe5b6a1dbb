package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/engagement"
	"github.com/cliptube/backend/internal/models"
)

// PostgresLikeStore provides PostgreSQL-backed persistence for the
// engagement ledger. The (account_id, target_type, target_id) unique index
// is the storage-level backstop behind the transactional flip.
type PostgresLikeStore struct {
	pool db.Pool
}

// NewPostgresLikeStore constructs a like store backed by PostgreSQL.
func NewPostgresLikeStore(pool db.Pool) *PostgresLikeStore {
	return &PostgresLikeStore{pool: pool}
}

// Flip deletes an existing like for the triple or inserts the provided
// record, in a single transaction. A concurrent insert that wins the race
// between our delete miss and our insert surfaces as engagement.ErrConflict.
func (r *PostgresLikeStore) Flip(ctx context.Context, like models.Like) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin toggle transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        DELETE FROM likes
        WHERE account_id = $1 AND target_type = $2 AND target_id = $3
    `, like.AccountID, like.Target.Type, like.Target.ID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}

	if tag.RowsAffected() > 0 {
		if err := tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("commit toggle: %w", err)
		}
		return false, nil
	}

	tag, err = tx.Exec(ctx, `
        INSERT INTO likes (id, account_id, target_type, target_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (account_id, target_type, target_id) DO NOTHING
    `, like.ID, like.AccountID, like.Target.Type, like.Target.ID, like.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, engagement.ErrConflict
		}
		return false, fmt.Errorf("insert like: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return false, engagement.ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit toggle: %w", err)
	}
	return true, nil
}

// ListByAccount returns the account's likes of the given type, newest first.
func (r *PostgresLikeStore) ListByAccount(ctx context.Context, accountID string, targetType models.TargetType) ([]models.Like, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, account_id, target_type, target_id, created_at
        FROM likes
        WHERE account_id = $1 AND target_type = $2
        ORDER BY created_at DESC
    `, accountID, targetType)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	var likes []models.Like
	for rows.Next() {
		var like models.Like
		if err := rows.Scan(&like.ID, &like.AccountID, &like.Target.Type, &like.Target.ID, &like.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		likes = append(likes, like)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}

	return likes, nil
}

var _ engagement.LikeStore = (*PostgresLikeStore)(nil)
