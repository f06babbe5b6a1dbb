package repositories

import (
	"context"
	"fmt"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/engagement"
	"github.com/cliptube/backend/internal/models"
)

// PostgresContentChecker verifies like targets against the videos, comments,
// and tweets tables.
type PostgresContentChecker struct {
	pool db.Pool
}

// NewPostgresContentChecker constructs a content checker backed by PostgreSQL.
func NewPostgresContentChecker(pool db.Pool) *PostgresContentChecker {
	return &PostgresContentChecker{pool: pool}
}

// Exists reports whether the referenced target row is present.
func (c *PostgresContentChecker) Exists(ctx context.Context, target models.LikeTarget) (bool, error) {
	var table string
	switch target.Type {
	case models.TargetVideo:
		table = "videos"
	case models.TargetComment:
		table = "comments"
	case models.TargetTweet:
		table = "tweets"
	default:
		return false, fmt.Errorf("%w: unsupported target type %q", engagement.ErrInvalidTarget, target.Type)
	}

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	row := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, target.ID)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s existence: %w", table, err)
	}

	return exists, nil
}

var _ engagement.TargetChecker = (*PostgresContentChecker)(nil)
