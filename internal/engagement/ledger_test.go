package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cliptube/backend/internal/models"
)

type fakeTargetChecker struct {
	existing map[models.LikeTarget]bool
	err      error
}

func (f *fakeTargetChecker) Exists(_ context.Context, target models.LikeTarget) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.existing[target], nil
}

type fakeVideoFinder struct {
	videos map[string]models.Video
}

func (f *fakeVideoFinder) FindByIDs(_ context.Context, ids []string) ([]models.Video, error) {
	var out []models.Video
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func videoTarget(id string) models.LikeTarget {
	return models.LikeTarget{Type: models.TargetVideo, ID: id}
}

func newTestLedger(targets ...models.LikeTarget) (*Ledger, *InMemoryLikeStore, *fakeVideoFinder) {
	store := NewInMemoryLikeStore()
	checker := &fakeTargetChecker{existing: make(map[models.LikeTarget]bool)}
	for _, t := range targets {
		checker.existing[t] = true
	}
	videos := &fakeVideoFinder{videos: make(map[string]models.Video)}
	return NewLedger(store, checker, videos), store, videos
}

func TestToggleRoundTrip(t *testing.T) {
	target := videoTarget("vid-1")
	ledger, store, _ := newTestLedger(target)

	liked, err := ledger.Toggle(context.Background(), "acct-1", target)
	if err != nil {
		t.Fatalf("first Toggle returned error: %v", err)
	}
	if !liked {
		t.Fatal("first toggle should like the target")
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 like, got %d", store.Count())
	}

	liked, err = ledger.Toggle(context.Background(), "acct-1", target)
	if err != nil {
		t.Fatalf("second Toggle returned error: %v", err)
	}
	if liked {
		t.Fatal("second toggle should unlike the target")
	}
	if store.Count() != 0 {
		t.Fatalf("expected 0 likes after unlike, got %d", store.Count())
	}
}

func TestToggleIsPerTriple(t *testing.T) {
	video := videoTarget("vid-1")
	comment := models.LikeTarget{Type: models.TargetComment, ID: "com-1"}
	tweet := models.LikeTarget{Type: models.TargetTweet, ID: "twt-1"}
	ledger, store, _ := newTestLedger(video, comment, tweet)

	for _, target := range []models.LikeTarget{video, comment, tweet} {
		if liked, err := ledger.Toggle(context.Background(), "acct-1", target); err != nil || !liked {
			t.Fatalf("Toggle(%v) = (%v, %v), want (true, nil)", target, liked, err)
		}
	}
	// A different account liking the same targets is independent.
	if liked, err := ledger.Toggle(context.Background(), "acct-2", video); err != nil || !liked {
		t.Fatalf("Toggle for second account = (%v, %v), want (true, nil)", liked, err)
	}

	if store.Count() != 4 {
		t.Fatalf("expected 4 likes across triples, got %d", store.Count())
	}
}

func TestToggleValidation(t *testing.T) {
	ledger, _, _ := newTestLedger()

	if _, err := ledger.Toggle(context.Background(), "", videoTarget("vid-1")); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for empty account, got %v", err)
	}
	if _, err := ledger.Toggle(context.Background(), "acct-1", models.LikeTarget{Type: "playlist", ID: "x"}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for unknown type, got %v", err)
	}
	if _, err := ledger.Toggle(context.Background(), "acct-1", models.LikeTarget{Type: models.TargetVideo}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for empty target id, got %v", err)
	}
}

func TestToggleMissingTarget(t *testing.T) {
	ledger, _, _ := newTestLedger()

	if _, err := ledger.Toggle(context.Background(), "acct-1", videoTarget("ghost")); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestConcurrentTogglesConverge(t *testing.T) {
	target := videoTarget("vid-1")
	ledger, store, _ := newTestLedger(target)

	const toggles = 16

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, toggles)

	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := ledger.Toggle(context.Background(), "acct-1", target)
			errs <- err
		}()
	}

	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent toggle returned error: %v", err)
		}
	}

	// An even number of successful toggles lands back at zero likes.
	if store.Count() != 0 {
		t.Fatalf("expected parity to hold after %d toggles, got %d likes", toggles, store.Count())
	}
}

// conflictOnceStore forces one ErrConflict before delegating, modelling a
// concurrent insert racing past the delete.
type conflictOnceStore struct {
	*InMemoryLikeStore
	mu       sync.Mutex
	conflict bool
}

func (s *conflictOnceStore) Flip(ctx context.Context, like models.Like) (bool, error) {
	s.mu.Lock()
	trigger := !s.conflict
	s.conflict = true
	s.mu.Unlock()

	if trigger {
		return false, ErrConflict
	}
	return s.InMemoryLikeStore.Flip(ctx, like)
}

func TestToggleRetriesOnceOnConflict(t *testing.T) {
	target := videoTarget("vid-1")
	store := &conflictOnceStore{InMemoryLikeStore: NewInMemoryLikeStore()}
	checker := &fakeTargetChecker{existing: map[models.LikeTarget]bool{target: true}}
	ledger := NewLedger(store, checker, nil)

	liked, err := ledger.Toggle(context.Background(), "acct-1", target)
	if err != nil {
		t.Fatalf("Toggle should absorb a single conflict, got %v", err)
	}
	if !liked {
		t.Fatal("retried toggle should land the like")
	}
}

type alwaysConflictStore struct{}

func (alwaysConflictStore) Flip(context.Context, models.Like) (bool, error) {
	return false, ErrConflict
}

func (alwaysConflictStore) ListByAccount(context.Context, string, models.TargetType) ([]models.Like, error) {
	return nil, nil
}

func TestToggleGivesUpAfterRepeatedConflicts(t *testing.T) {
	target := videoTarget("vid-1")
	checker := &fakeTargetChecker{existing: map[models.LikeTarget]bool{target: true}}
	ledger := NewLedger(alwaysConflictStore{}, checker, nil)

	if _, err := ledger.Toggle(context.Background(), "acct-1", target); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict after exhausted retries, got %v", err)
	}
}

func TestListLikedVideosOrder(t *testing.T) {
	first := videoTarget("vid-1")
	second := videoTarget("vid-2")
	ledger, _, videos := newTestLedger(first, second)

	videos.videos["vid-1"] = models.Video{ID: "vid-1", Title: "first"}
	videos.videos["vid-2"] = models.Video{ID: "vid-2", Title: "second"}

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	ledger.nowFunc = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	if _, err := ledger.Toggle(context.Background(), "acct-1", first); err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if _, err := ledger.Toggle(context.Background(), "acct-1", second); err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}

	liked, err := ledger.ListLikedVideos(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("ListLikedVideos returned error: %v", err)
	}
	if len(liked) != 2 {
		t.Fatalf("expected 2 liked videos, got %d", len(liked))
	}
	if liked[0].ID != "vid-2" || liked[1].ID != "vid-1" {
		t.Errorf("expected most recent like first, got %q then %q", liked[0].ID, liked[1].ID)
	}

	if liked, err := ledger.ListLikedVideos(context.Background(), "acct-2"); err != nil || liked != nil {
		t.Errorf("expected empty result for account with no likes, got (%v, %v)", liked, err)
	}
}
