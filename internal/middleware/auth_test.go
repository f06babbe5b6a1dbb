package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cliptube/backend/internal/auth"
)

type stubVerifier struct {
	accounts map[string]string
	err      error
}

func (s stubVerifier) Verify(raw string, kind auth.TokenKind) (string, error) {
	if kind != auth.KindAccess {
		return "", auth.ErrInvalidToken
	}
	if s.err != nil {
		return "", s.err
	}
	id, ok := s.accounts[raw]
	if !ok {
		return "", auth.ErrInvalidToken
	}
	return id, nil
}

func protectedHandler(t *testing.T, wantAccountID string, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if got := AccountIDFromContext(r.Context()); got != wantAccountID {
			t.Errorf("expected account id %q in context, got %q", wantAccountID, got)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthBearerHeader(t *testing.T) {
	verifier := stubVerifier{accounts: map[string]string{"good-token": "acct-1"}}

	var called bool
	handler := RequireAuth(verifier)(protectedHandler(t, "acct-1", &called))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected the wrapped handler to run")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAuthCookieFallback(t *testing.T) {
	verifier := stubVerifier{accounts: map[string]string{"cookie-token": "acct-2"}}

	var called bool
	handler := RequireAuth(verifier)(protectedHandler(t, "acct-2", &called))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected cookie auth to succeed, called=%v code=%d", called, rec.Code)
	}
}

func TestRequireAuthRejections(t *testing.T) {
	tests := []struct {
		name     string
		verifier TokenVerifier
		prepare  func(*http.Request)
	}{
		{
			name:     "missing token",
			verifier: stubVerifier{},
			prepare:  func(*http.Request) {},
		},
		{
			name:     "malformed header",
			verifier: stubVerifier{},
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Token abc")
			},
		},
		{
			name:     "invalid token",
			verifier: stubVerifier{err: auth.ErrInvalidToken},
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer bad")
			},
		},
		{
			name:     "expired token",
			verifier: stubVerifier{err: auth.ErrExpiredToken},
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer expired")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			handler := RequireAuth(tc.verifier)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tc.prepare(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if called {
				t.Error("wrapped handler must not run")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}
