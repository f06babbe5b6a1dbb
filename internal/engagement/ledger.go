package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/models"
)

// LikeStore persists like records. Flip executes the delete-or-insert as a
// single atomic unit per (account, target) triple and reports the resulting
// state; a concurrent insert racing past the existence check surfaces as
// ErrConflict.
type LikeStore interface {
	Flip(ctx context.Context, like models.Like) (liked bool, err error)
	ListByAccount(ctx context.Context, accountID string, targetType models.TargetType) ([]models.Like, error)
}

// TargetChecker verifies that a like target actually exists.
type TargetChecker interface {
	Exists(ctx context.Context, target models.LikeTarget) (bool, error)
}

// VideoFinder resolves video records for liked-video listings.
type VideoFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Video, error)
}

// Ledger maintains the like relation over heterogeneous target types with
// the at-most-one-record-per-triple invariant.
type Ledger struct {
	likes   LikeStore
	targets TargetChecker
	videos  VideoFinder

	nowFunc func() time.Time
}

// NewLedger constructs an engagement ledger.
func NewLedger(likes LikeStore, targets TargetChecker, videos VideoFinder) *Ledger {
	if likes == nil || targets == nil {
		panic("engagement: like store and target checker must not be nil")
	}
	return &Ledger{
		likes:   likes,
		targets: targets,
		videos:  videos,
		nowFunc: time.Now,
	}
}

// Toggle flips the like state for the (account, target) pair and reports the
// resulting state. The flip itself is atomic in the store; a single retry
// absorbs the window where a concurrent toggle inserts between the store's
// existence check and its insert.
func (l *Ledger) Toggle(ctx context.Context, accountID string, target models.LikeTarget) (bool, error) {
	if accountID == "" {
		return false, fmt.Errorf("%w: account id is required", ErrInvalidTarget)
	}
	if !target.Type.Valid() || target.ID == "" {
		return false, ErrInvalidTarget
	}

	exists, err := l.targets.Exists(ctx, target)
	if err != nil {
		return false, fmt.Errorf("check target: %w", err)
	}
	if !exists {
		return false, ErrTargetNotFound
	}

	const attempts = 2
	for attempt := 0; attempt < attempts; attempt++ {
		like := models.Like{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Target:    target,
			CreatedAt: l.nowFunc().UTC(),
		}

		liked, err := l.likes.Flip(ctx, like)
		if err == nil {
			return liked, nil
		}
		if !errors.Is(err, ErrConflict) {
			return false, fmt.Errorf("flip like: %w", err)
		}
	}

	return false, ErrConflict
}

// ListLikedVideos returns the videos the account currently likes, most
// recently liked first.
func (l *Ledger) ListLikedVideos(ctx context.Context, accountID string) ([]models.Video, error) {
	if l.videos == nil {
		return nil, fmt.Errorf("video finder unavailable")
	}

	likes, err := l.likes.ListByAccount(ctx, accountID, models.TargetVideo)
	if err != nil {
		return nil, fmt.Errorf("list video likes: %w", err)
	}
	if len(likes) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(likes))
	for _, like := range likes {
		ids = append(ids, like.Target.ID)
	}

	videos, err := l.videos.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve liked videos: %w", err)
	}

	// Preserve like recency order.
	byID := make(map[string]models.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	ordered := make([]models.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}
