package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

// LikeHandler exposes the engagement ledger over HTTP.
type LikeHandler struct {
	Ledger  EngagementLedger
	Limiter RateLimiter
}

// Toggle handles POST /api/v1/likes/toggle requests.
func (h LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	accountID := middleware.AccountIDFromContext(ctx)

	if !allowRequest(h.Limiter, r, "toggle") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many toggle attempts")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := models.LikeTarget{Type: models.TargetType(req.TargetType), ID: req.TargetID}

	liked, err := h.Ledger.Toggle(ctx, accountID, target)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Info("like toggled",
		"accountId", accountID, "targetType", target.Type, "targetId", target.ID, "liked", liked)
	respondJSON(ctx, w, http.StatusOK, toggleResponse{Liked: liked})
}

// LikedVideos handles GET /api/v1/likes/videos requests.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	accountID := middleware.AccountIDFromContext(ctx)

	videos, err := h.Ledger.ListLikedVideos(ctx, accountID)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": videoViews(videos)})
}

type toggleRequest struct {
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
}

type toggleResponse struct {
	Liked bool `json:"liked"`
}
