package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/engagement"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

const refreshTokenCookie = "refreshToken"

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, map[string]string{"error": message})
}

// respondDomainError maps the error taxonomy onto HTTP statuses with stable,
// user-facing messages.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		respondError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrDuplicateAccount):
		respondError(ctx, w, http.StatusConflict, "account with that username or email already exists")
	case errors.Is(err, auth.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "account not found")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrUnauthorized):
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrExpiredToken):
		respondError(ctx, w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, auth.ErrStaleToken):
		respondError(ctx, w, http.StatusUnauthorized, "refresh token superseded")
	case errors.Is(err, auth.ErrInvalidToken):
		respondError(ctx, w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, engagement.ErrInvalidTarget):
		respondError(ctx, w, http.StatusBadRequest, "invalid like target")
	case errors.Is(err, engagement.ErrTargetNotFound):
		respondError(ctx, w, http.StatusNotFound, "like target not found")
	case errors.Is(err, engagement.ErrConflict):
		respondError(ctx, w, http.StatusConflict, "toggle conflicted with a concurrent request")
	default:
		logging.FromContext(ctx).Error("unclassified failure", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

// setSessionCookies mirrors the token pair into HTTP-only secure cookies
// with expiries matching the token lifetimes.
func setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
