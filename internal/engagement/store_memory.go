package engagement

import (
	"context"
	"sort"
	"sync"

	"github.com/cliptube/backend/internal/models"
)

type tripleKey struct {
	accountID  string
	targetType models.TargetType
	targetID   string
}

// NewInMemoryLikeStore returns a LikeStore backed by a map. The whole flip
// runs under one mutex, matching the transactional semantics of the Postgres
// implementation.
func NewInMemoryLikeStore() *InMemoryLikeStore {
	return &InMemoryLikeStore{likes: make(map[tripleKey]models.Like)}
}

// InMemoryLikeStore implements LikeStore for tests and local development.
type InMemoryLikeStore struct {
	mu    sync.Mutex
	likes map[tripleKey]models.Like
}

// Flip deletes the like when present, otherwise inserts the provided record.
func (s *InMemoryLikeStore) Flip(_ context.Context, like models.Like) (bool, error) {
	key := tripleKey{accountID: like.AccountID, targetType: like.Target.Type, targetID: like.Target.ID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.likes[key]; ok {
		delete(s.likes, key)
		return false, nil
	}
	s.likes[key] = like
	return true, nil
}

// ListByAccount returns the account's likes of the given type, newest first.
func (s *InMemoryLikeStore) ListByAccount(_ context.Context, accountID string, targetType models.TargetType) ([]models.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Like
	for key, like := range s.likes {
		if key.accountID == accountID && key.targetType == targetType {
			out = append(out, like)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Count reports the number of stored likes. Useful for tests.
func (s *InMemoryLikeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.likes)
}

var _ LikeStore = (*InMemoryLikeStore)(nil)
