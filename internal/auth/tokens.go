package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/config"
)

// TokenKind discriminates access tokens from refresh tokens so a refresh
// token can never be presented where an access token is expected.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

type tokenClaims struct {
	TokenKind string `json:"token_kind"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies signed session tokens. Access and refresh
// tokens use independent secrets and lifetimes.
type TokenIssuer struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer from the token configuration.
func NewTokenIssuer(cfg config.TokenConfig) *TokenIssuer {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		panic("auth: token secrets must not be empty")
	}
	return &TokenIssuer{
		issuer:        cfg.Issuer,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// IssueAccess signs a short-lived access token for the account.
func (t *TokenIssuer) IssueAccess(accountID string) (string, time.Time, error) {
	return t.sign(accountID, KindAccess, t.accessSecret, t.accessTTL)
}

// IssueRefresh signs a refresh token for the account. Persisting the token
// on the account record is the caller's responsibility.
func (t *TokenIssuer) IssueRefresh(accountID string) (string, time.Time, error) {
	return t.sign(accountID, KindRefresh, t.refreshSecret, t.refreshTTL)
}

func (t *TokenIssuer) sign(accountID string, kind TokenKind, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := t.now().UTC()
	expires := now.Add(ttl)

	claims := tokenClaims{
		TokenKind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify checks signature and expiry for a token of the expected kind and
// returns the bound account id. Expiry is reported distinctly from other
// failures so callers can produce a precise message.
func (t *TokenIssuer) Verify(raw string, kind TokenKind) (string, error) {
	secret := t.accessSecret
	if kind == KindRefresh {
		secret = t.refreshSecret
	}

	claims := &tokenClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(func() time.Time { return t.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !tok.Valid || claims.TokenKind != string(kind) || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
