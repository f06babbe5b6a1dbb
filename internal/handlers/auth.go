package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

const maxRegisterFormMemory = 32 << 20 // 32 MiB

// AuthHandler implements the credential and session lifecycle endpoints.
type AuthHandler struct {
	Sessions SessionService
	Limiter  RateLimiter
}

// Register handles POST /api/v1/auth/register multipart requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(maxRegisterFormMemory); err != nil {
		logger.Warn("invalid registration form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	input := auth.RegisterInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		FullName: r.FormValue("fullname"),
	}

	avatar, avatarFile, err := formAsset(r, "avatar")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer avatarFile.Close()
	input.Avatar = avatar

	if cover, coverFile, err := formAsset(r, "coverImage"); err == nil {
		defer coverFile.Close()
		input.Cover = cover
	}

	account, err := h.Sessions.Register(ctx, input)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	logger.Info("account registered", "accountId", account.ID, "username", account.Username)
	respondJSON(ctx, w, http.StatusCreated, map[string]any{"account": account.Public()})
}

// Login handles POST /api/v1/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, tokens, err := h.Sessions.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	setSessionCookies(w, tokens)
	logger.Info("login succeeded", "accountId", account.ID)
	respondJSON(ctx, w, http.StatusOK, sessionResponse{Account: account.Public(), Tokens: tokens})
}

// Refresh handles POST /api/v1/auth/refresh requests. The refresh token is
// read from the cookie or, failing that, the request body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "refresh") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many refresh attempts")
		return
	}

	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}

	tokens, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	setSessionCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, map[string]models.SessionTokens{"tokens": tokens})
}

// Logout handles POST /api/v1/auth/logout requests.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	accountID := middleware.AccountIDFromContext(ctx)

	if err := h.Sessions.Logout(ctx, accountID); err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	clearSessionCookies(w)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "logged out"})
}

// ChangePassword handles POST /api/v1/auth/change-password requests.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	accountID := middleware.AccountIDFromContext(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Sessions.ChangePassword(ctx, accountID, req.OldPassword, req.NewPassword); err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "password changed"})
}

// Me handles GET /api/v1/auth/me requests.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	accountID := middleware.AccountIDFromContext(ctx)

	account, err := h.Sessions.Account(ctx, accountID)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"account": account.Public()})
}

func formAsset(r *http.Request, field string) (*auth.Asset, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	return &auth.Asset{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, file, nil
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type sessionResponse struct {
	Account models.PublicAccount `json:"account"`
	Tokens  models.SessionTokens `json:"tokens"`
}
