package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresAccountStore provides PostgreSQL-backed persistence for accounts.
// It returns the auth package's sentinel errors so the session manager can
// classify failures without knowing about SQLSTATEs.
type PostgresAccountStore struct {
	pool db.Pool
}

// NewPostgresAccountStore constructs an account store backed by PostgreSQL.
func NewPostgresAccountStore(pool db.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

const accountColumns = `id, username, email, full_name, password_hash,
        avatar_url, avatar_key, cover_url, cover_key,
        COALESCE(refresh_token, ''), created_at, updated_at`

// Create persists a new account record.
func (r *PostgresAccountStore) Create(ctx context.Context, account models.Account) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO accounts (id, username, email, full_name, password_hash,
                avatar_url, avatar_key, cover_url, cover_key, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, account.ID, account.Username, account.Email, account.FullName, account.PasswordHash,
		account.AvatarURL, account.AvatarKey, account.CoverURL, account.CoverKey,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrDuplicateAccount
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// FindByID fetches an account by its id.
func (r *PostgresAccountStore) FindByID(ctx context.Context, id string) (models.Account, error) {
	return r.findWhere(ctx, `id = $1`, id)
}

// FindByIdentifier fetches an account whose username or email matches.
func (r *PostgresAccountStore) FindByIdentifier(ctx context.Context, identifier string) (models.Account, error) {
	return r.findWhere(ctx, `username = $1 OR email = $1`, identifier)
}

func (r *PostgresAccountStore) findWhere(ctx context.Context, where string, arg any) (models.Account, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)

	var account models.Account
	if err := row.Scan(&account.ID, &account.Username, &account.Email, &account.FullName,
		&account.PasswordHash, &account.AvatarURL, &account.AvatarKey, &account.CoverURL,
		&account.CoverKey, &account.RefreshToken, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, auth.ErrNotFound
		}
		return models.Account{}, fmt.Errorf("select account: %w", err)
	}

	return account, nil
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
// An empty token clears the active session.
func (r *PostgresAccountStore) SetRefreshToken(ctx context.Context, accountID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET refresh_token = NULLIF($2, ''), updated_at = $3
        WHERE id = $1
    `, accountID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}

	return nil
}

// RotateRefreshToken is the compare-and-swap behind refresh rotation: the
// write only lands when the stored token still equals old. A lost race is
// reported as a stale token, never as success.
func (r *PostgresAccountStore) RotateRefreshToken(ctx context.Context, accountID, old, new string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET refresh_token = $3, updated_at = $4
        WHERE id = $1 AND refresh_token = $2
    `, accountID, old, new, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrStaleToken
	}

	return nil
}

// UpdatePasswordHash stores a new password hash for the account.
func (r *PostgresAccountStore) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, accountID, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}

	return nil
}

var _ auth.AccountStore = (*PostgresAccountStore)(nil)
