package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions SessionService
	Ledger   EngagementLedger
	Videos   VideoStore
	History  WatchHistoryStore
	Ingestor VideoAssetIngestor

	TokenVerifier middleware.TokenVerifier
	AuthLimiter   RateLimiter
	ToggleLimiter RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	authH := AuthHandler{Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	likes := LikeHandler{Ledger: deps.Ledger, Limiter: deps.ToggleLimiter}
	videos := VideoHandler{Videos: deps.Videos, History: deps.History, Ingestor: deps.Ingestor}

	requireAuth := middleware.RequireAuth(deps.TokenVerifier)

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/auth/register", authH.Register)
	mux.HandleFunc("/api/v1/auth/login", authH.Login)
	mux.HandleFunc("/api/v1/auth/refresh", authH.Refresh)
	mux.Handle("/api/v1/auth/logout", requireAuth(http.HandlerFunc(authH.Logout)))
	mux.Handle("/api/v1/auth/change-password", requireAuth(http.HandlerFunc(authH.ChangePassword)))
	mux.Handle("/api/v1/auth/me", requireAuth(http.HandlerFunc(authH.Me)))

	mux.Handle("/api/v1/likes/toggle", requireAuth(http.HandlerFunc(likes.Toggle)))
	mux.Handle("/api/v1/likes/videos", requireAuth(http.HandlerFunc(likes.LikedVideos)))

	mux.Handle("/api/v1/videos", requireAuth(http.HandlerFunc(videos.Publish)))
	mux.Handle("/api/v1/videos/watch", requireAuth(http.HandlerFunc(videos.Watch)))
	mux.Handle("/api/v1/videos/history", requireAuth(http.HandlerFunc(videos.WatchHistory)))
}
