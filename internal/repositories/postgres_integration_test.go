package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/engagement"
	"github.com/cliptube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresAccountStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresAccountStore(testPool)
	account := createTestAccount(t, store, "ada", "ada@example.com")

	dup := account
	dup.ID = uuid.NewString()
	dup.Email = "other@example.com"
	if err := store.Create(ctx, dup); !errors.Is(err, auth.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount for duplicate username, got %v", err)
	}

	dup = account
	dup.ID = uuid.NewString()
	dup.Username = "other"
	if err := store.Create(ctx, dup); !errors.Is(err, auth.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount for duplicate email, got %v", err)
	}

	byUsername, err := store.FindByIdentifier(ctx, "ada")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	byEmail, err := store.FindByIdentifier(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byUsername.ID != account.ID || byEmail.ID != account.ID {
		t.Fatalf("identifier lookups disagree: %s vs %s", byUsername.ID, byEmail.ID)
	}

	if _, err := store.FindByID(ctx, uuid.NewString()); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
	if _, err := store.FindByIdentifier(ctx, "nobody"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown identifier, got %v", err)
	}
}

func TestPostgresAccountStore_RefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresAccountStore(testPool)
	account := createTestAccount(t, store, "ada", "ada@example.com")

	// A fresh account carries no refresh token.
	loaded, err := store.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	if loaded.RefreshToken != "" {
		t.Fatalf("expected empty refresh token, got %q", loaded.RefreshToken)
	}

	first := "refresh-token-1"
	if err := store.SetRefreshToken(ctx, account.ID, first); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}

	second := "refresh-token-2"
	if err := store.RotateRefreshToken(ctx, account.ID, first, second); err != nil {
		t.Fatalf("rotate refresh token: %v", err)
	}

	// The superseded value no longer matches; the swap must not land.
	if err := store.RotateRefreshToken(ctx, account.ID, first, "refresh-token-3"); !errors.Is(err, auth.ErrStaleToken) {
		t.Fatalf("expected ErrStaleToken rotating from stale value, got %v", err)
	}

	loaded, err = store.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("find account after rotation: %v", err)
	}
	if loaded.RefreshToken != second {
		t.Fatalf("expected stored token %q, got %q", second, loaded.RefreshToken)
	}

	// Clearing stores NULL, surfaced as the empty string.
	if err := store.SetRefreshToken(ctx, account.ID, ""); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	loaded, err = store.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("find account after clear: %v", err)
	}
	if loaded.RefreshToken != "" {
		t.Fatalf("expected cleared refresh token, got %q", loaded.RefreshToken)
	}

	// Rotating a cleared session is stale, not a success.
	if err := store.RotateRefreshToken(ctx, account.ID, second, "refresh-token-4"); !errors.Is(err, auth.ErrStaleToken) {
		t.Fatalf("expected ErrStaleToken after logout, got %v", err)
	}

	if err := store.SetRefreshToken(ctx, uuid.NewString(), "x"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown account, got %v", err)
	}
}

func TestPostgresAccountStore_UpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresAccountStore(testPool)
	account := createTestAccount(t, store, "ada", "ada@example.com")

	if err := store.UpdatePasswordHash(ctx, account.ID, "new-hash"); err != nil {
		t.Fatalf("update password hash: %v", err)
	}

	loaded, err := store.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	if loaded.PasswordHash != "new-hash" {
		t.Fatalf("expected updated hash, got %q", loaded.PasswordHash)
	}

	if err := store.UpdatePasswordHash(ctx, uuid.NewString(), "x"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown account, got %v", err)
	}
}

func TestPostgresLikeStore_FlipAndList(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountStore(testPool)
	videos := NewPostgresVideoRepository(testPool)
	account := createTestAccount(t, accounts, "ada", "ada@example.com")

	first := createTestVideo(t, videos, account.ID, "first")
	second := createTestVideo(t, videos, account.ID, "second")

	store := NewPostgresLikeStore(testPool)

	base := time.Now().UTC().Truncate(time.Millisecond)
	mkLike := func(videoID string, at time.Time) models.Like {
		return models.Like{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Target:    models.LikeTarget{Type: models.TargetVideo, ID: videoID},
			CreatedAt: at,
		}
	}

	liked, err := store.Flip(ctx, mkLike(first.ID, base))
	if err != nil {
		t.Fatalf("flip insert: %v", err)
	}
	if !liked {
		t.Fatal("expected first flip to insert")
	}

	liked, err = store.Flip(ctx, mkLike(second.ID, base.Add(time.Minute)))
	if err != nil {
		t.Fatalf("flip second insert: %v", err)
	}
	if !liked {
		t.Fatal("expected second flip to insert")
	}

	likes, err := store.ListByAccount(ctx, account.ID, models.TargetVideo)
	if err != nil {
		t.Fatalf("list likes: %v", err)
	}
	if len(likes) != 2 {
		t.Fatalf("expected 2 likes, got %d", len(likes))
	}
	if likes[0].Target.ID != second.ID || likes[1].Target.ID != first.ID {
		t.Fatalf("expected newest-first order, got %+v", likes)
	}

	// Flipping again deletes.
	liked, err = store.Flip(ctx, mkLike(first.ID, base.Add(2*time.Minute)))
	if err != nil {
		t.Fatalf("flip delete: %v", err)
	}
	if liked {
		t.Fatal("expected flip of an existing like to delete")
	}

	likes, err = store.ListByAccount(ctx, account.ID, models.TargetVideo)
	if err != nil {
		t.Fatalf("list likes after unlike: %v", err)
	}
	if len(likes) != 1 || likes[0].Target.ID != second.ID {
		t.Fatalf("expected only the second video liked, got %+v", likes)
	}
}

func TestPostgresLikeStore_UniqueIndexBackstop(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountStore(testPool)
	videos := NewPostgresVideoRepository(testPool)
	account := createTestAccount(t, accounts, "ada", "ada@example.com")
	video := createTestVideo(t, videos, account.ID, "clip")

	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	insert := `INSERT INTO likes (id, account_id, target_type, target_id, created_at)
                VALUES ($1, $2, $3, $4, $5)`
	if _, err := conn.Exec(ctx, insert, uuid.NewString(), account.ID, models.TargetVideo, video.ID, time.Now().UTC()); err != nil {
		t.Fatalf("seed like: %v", err)
	}
	if _, err := conn.Exec(ctx, insert, uuid.NewString(), account.ID, models.TargetVideo, video.ID, time.Now().UTC()); err == nil {
		t.Fatal("expected unique index to reject a duplicate triple")
	}
}

func TestPostgresContentChecker_Exists(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountStore(testPool)
	videos := NewPostgresVideoRepository(testPool)
	account := createTestAccount(t, accounts, "ada", "ada@example.com")
	video := createTestVideo(t, videos, account.ID, "clip")

	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	commentID := uuid.NewString()
	tweetID := uuid.NewString()
	if _, err := conn.Exec(ctx, `INSERT INTO comments (id, video_id, author_id, body) VALUES ($1, $2, $3, 'hi')`,
		commentID, video.ID, account.ID); err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	if _, err := conn.Exec(ctx, `INSERT INTO tweets (id, author_id, body) VALUES ($1, $2, 'hello')`,
		tweetID, account.ID); err != nil {
		t.Fatalf("seed tweet: %v", err)
	}
	conn.Release()

	checker := NewPostgresContentChecker(testPool)

	existing := []models.LikeTarget{
		{Type: models.TargetVideo, ID: video.ID},
		{Type: models.TargetComment, ID: commentID},
		{Type: models.TargetTweet, ID: tweetID},
	}
	for _, target := range existing {
		ok, err := checker.Exists(ctx, target)
		if err != nil {
			t.Fatalf("exists(%v): %v", target, err)
		}
		if !ok {
			t.Errorf("expected %v to exist", target)
		}
	}

	ok, err := checker.Exists(ctx, models.LikeTarget{Type: models.TargetVideo, ID: uuid.NewString()})
	if err != nil {
		t.Fatalf("exists for missing video: %v", err)
	}
	if ok {
		t.Error("expected missing video to report false")
	}

	if _, err := checker.Exists(ctx, models.LikeTarget{Type: "playlist", ID: uuid.NewString()}); !errors.Is(err, engagement.ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for unknown type, got %v", err)
	}
}

func TestPostgresVideoRepository_AssetLifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountStore(testPool)
	videos := NewPostgresVideoRepository(testPool)
	account := createTestAccount(t, accounts, "ada", "ada@example.com")

	video := createTestVideo(t, videos, account.ID, "clip")
	if video.AssetStatus != "" && video.AssetStatus != models.AssetStatusPending {
		t.Fatalf("unexpected initial status %q", video.AssetStatus)
	}

	if err := videos.MarkAssetReady(ctx, video.ID, "https://media.test/videos/clip.mp4", 2048); err != nil {
		t.Fatalf("mark asset ready: %v", err)
	}

	loaded, err := videos.FindByIDs(ctx, []string{video.ID})
	if err != nil {
		t.Fatalf("find videos: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 video, got %d", len(loaded))
	}
	if loaded[0].AssetStatus != models.AssetStatusReady || loaded[0].AssetSize != 2048 {
		t.Fatalf("expected ready asset of 2048 bytes, got %+v", loaded[0])
	}

	if err := videos.MarkAssetFailed(ctx, video.ID); err != nil {
		t.Fatalf("mark asset failed: %v", err)
	}
	loaded, err = videos.FindByIDs(ctx, []string{video.ID})
	if err != nil {
		t.Fatalf("find videos after failure: %v", err)
	}
	if loaded[0].AssetStatus != models.AssetStatusFailed || loaded[0].AssetURL != "" {
		t.Fatalf("expected failed asset with cleared URL, got %+v", loaded[0])
	}

	if err := videos.MarkAssetReady(ctx, uuid.NewString(), "x", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
}

func TestPostgresWatchHistoryRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountStore(testPool)
	videos := NewPostgresVideoRepository(testPool)
	history := NewPostgresWatchHistoryRepository(testPool)
	account := createTestAccount(t, accounts, "ada", "ada@example.com")

	first := createTestVideo(t, videos, account.ID, "first")
	second := createTestVideo(t, videos, account.ID, "second")

	base := time.Now().UTC().Truncate(time.Millisecond)
	events := []models.WatchEvent{
		{AccountID: account.ID, VideoID: first.ID, WatchedAt: base},
		{AccountID: account.ID, VideoID: second.ID, WatchedAt: base.Add(time.Minute)},
		// Rewatching the first video moves it to the front, without duplication.
		{AccountID: account.ID, VideoID: first.ID, WatchedAt: base.Add(2 * time.Minute)},
	}
	for _, event := range events {
		if err := history.Append(ctx, event); err != nil {
			t.Fatalf("append watch event: %v", err)
		}
	}

	watched, err := history.ListForAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("list watch history: %v", err)
	}
	if len(watched) != 2 {
		t.Fatalf("expected 2 distinct videos, got %d", len(watched))
	}
	if watched[0].ID != first.ID || watched[1].ID != second.ID {
		t.Fatalf("expected most recently watched first, got %+v", watched)
	}

	ghost := models.WatchEvent{AccountID: account.ID, VideoID: uuid.NewString(), WatchedAt: base}
	if err := history.Append(ctx, ghost); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE watch_events, likes, comments, tweets, videos, accounts CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestAccount(t *testing.T, store *PostgresAccountStore, username, email string) models.Account {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	account := models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     "Test User",
		PasswordHash: "password-hash",
		AvatarURL:    "https://media.test/avatars/" + username + ".png",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.Create(context.Background(), account); err != nil {
		t.Fatalf("create test account: %v", err)
	}
	return account
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string) models.Video {
	t.Helper()
	video := models.Video{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		AssetKey:  "videos/" + title + ".mp4",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
