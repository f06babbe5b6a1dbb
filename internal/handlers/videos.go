package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const maxVideoFormMemory = 64 << 20 // 64 MiB kept in memory; larger spills to disk

// VideoHandler implements video publishing and watch history endpoints.
type VideoHandler struct {
	Videos   VideoStore
	History  WatchHistoryStore
	Ingestor VideoAssetIngestor
	NowFunc  func() time.Time
}

// Publish handles POST /api/v1/videos multipart requests. The payload is
// spooled to a temp file and uploaded to object storage in the background;
// the video row starts out pending.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)
	accountID := middleware.AccountIDFromContext(ctx)

	if h.Videos == nil || h.Ingestor == nil {
		logger.Error("video publishing dependencies unavailable", "hasVideos", h.Videos != nil, "hasIngestor", h.Ingestor != nil)
		respondError(ctx, w, http.StatusInternalServerError, "video publishing unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxVideoFormMemory); err != nil {
		logger.Warn("invalid video form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}
	defer file.Close()

	tempPath, err := spoolUpload(file)
	if err != nil {
		logger.Error("spool video upload", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to accept upload")
		return
	}

	videoID := uuid.NewString()
	assetKey := fmt.Sprintf("videos/%s%s", videoID, path.Ext(header.Filename))

	video := models.Video{
		ID:          videoID,
		OwnerID:     accountID,
		Title:       title,
		Description: strings.TrimSpace(r.FormValue("description")),
		AssetKey:    assetKey,
		AssetStatus: models.AssetStatusPending,
		CreatedAt:   h.now(),
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		removeSpooled(tempPath)
		logger.Error("create video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create video")
		return
	}

	job := media.IngestJob{
		VideoID:     videoID,
		AssetKey:    assetKey,
		TempPath:    tempPath,
		ContentType: header.Header.Get("Content-Type"),
	}
	if err := h.Ingestor.Enqueue(ctx, job); err != nil {
		removeSpooled(tempPath)
		logger.Error("enqueue video ingestion", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusServiceUnavailable, "video ingestion is not accepting uploads")
		return
	}

	logger.Info("video accepted for ingestion", "videoId", videoID, "ownerId", accountID)
	respondJSON(ctx, w, http.StatusAccepted, map[string]any{"video": videoView(video)})
}

// Watch handles POST /api/v1/videos/watch requests, appending to the
// caller's watch history.
func (h VideoHandler) Watch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	accountID := middleware.AccountIDFromContext(ctx)

	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	event := models.WatchEvent{AccountID: accountID, VideoID: req.VideoID, WatchedAt: h.now()}
	if err := h.History.Append(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("append watch event", "error", err, "videoId", req.VideoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to record view")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "recorded"})
}

// WatchHistory handles GET /api/v1/videos/history requests.
func (h VideoHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	accountID := middleware.AccountIDFromContext(ctx)

	videos, err := h.History.ListForAccount(ctx, accountID)
	if err != nil {
		logging.FromContext(ctx).Error("list watch history", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load watch history")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": videoViews(videos)})
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

func spoolUpload(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "cliptube-upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), nil
}

func removeSpooled(path string) {
	_ = os.Remove(path)
}

type watchRequest struct {
	VideoID string `json:"videoId"`
}

type videoJSON struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AssetURL    string    `json:"assetUrl,omitempty"`
	AssetStatus string    `json:"assetStatus"`
	CreatedAt   time.Time `json:"createdAt"`
}

func videoView(v models.Video) videoJSON {
	return videoJSON{
		ID:          v.ID,
		OwnerID:     v.OwnerID,
		Title:       v.Title,
		Description: v.Description,
		AssetURL:    v.AssetURL,
		AssetStatus: v.AssetStatus,
		CreatedAt:   v.CreatedAt,
	}
}

func videoViews(videos []models.Video) []videoJSON {
	out := make([]videoJSON, 0, len(videos))
	for _, v := range videos {
		out = append(out, videoView(v))
	}
	return out
}
