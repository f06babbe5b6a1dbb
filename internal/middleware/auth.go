package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
)

type authCtxKey string

const accountIDKey authCtxKey = "accountID"

// AccessTokenCookie is the cookie the access token travels in when no
// Authorization header is present.
const AccessTokenCookie = "accessToken"

// TokenVerifier checks an access token and returns the bound account id.
type TokenVerifier interface {
	Verify(raw string, kind auth.TokenKind) (string, error)
}

// AccountIDFromContext returns the authenticated account id, if any.
func AccountIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(accountIDKey).(string); ok {
		return id
	}
	return ""
}

// WithAccountID stores the authenticated account id on the context.
// Exported for handler tests.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// RequireAuth verifies the access token from the Authorization header or the
// accessToken cookie and stores the account id on the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
					token = cookie.Value
				}
			}

			if token == "" {
				unauthorized(w, "authentication required")
				return
			}

			accountID, err := verifier.Verify(token, auth.KindAccess)
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token rejected", "error", err)
				if errors.Is(err, auth.ErrExpiredToken) {
					unauthorized(w, "access token expired")
					return
				}
				unauthorized(w, "invalid access token")
				return
			}

			ctx := WithAccountID(r.Context(), accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
