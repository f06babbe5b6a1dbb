package auth

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

// AccountStore persists account records. Implementations map storage-level
// uniqueness violations to ErrDuplicateAccount and missing rows to ErrNotFound.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, id string) (models.Account, error)
	// FindByIdentifier matches the lowercased username or email.
	FindByIdentifier(ctx context.Context, identifier string) (models.Account, error)
	// SetRefreshToken unconditionally overwrites the stored refresh token.
	// An empty token clears the active session.
	SetRefreshToken(ctx context.Context, accountID, token string) error
	// RotateRefreshToken replaces the stored refresh token only when the
	// current value still equals old. A lost race returns ErrStaleToken.
	RotateRefreshToken(ctx context.Context, accountID, old, new string) error
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
}

// Asset is an uploadable media payload streamed from the client.
type Asset struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// MediaStore uploads profile assets to durable storage.
type MediaStore interface {
	Upload(ctx context.Context, key string, asset Asset) (string, error)
	Delete(ctx context.Context, key string) error
}

// RegisterInput carries everything needed to create an account. Avatar is
// required; Cover is optional.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Avatar   *Asset
	Cover    *Asset
}

// SessionManager orchestrates the credential and session lifecycle:
// registration, login, refresh-token rotation, logout, and password changes.
type SessionManager struct {
	accounts AccountStore
	tokens   *TokenIssuer
	media    MediaStore

	nowFunc func() time.Time
}

// NewSessionManager wires the session manager's collaborators.
func NewSessionManager(accounts AccountStore, tokens *TokenIssuer, media MediaStore) *SessionManager {
	if accounts == nil || tokens == nil {
		panic("auth: account store and token issuer must not be nil")
	}
	return &SessionManager{
		accounts: accounts,
		tokens:   tokens,
		media:    media,
		nowFunc:  time.Now,
	}
}

const minPasswordLength = 8

// Register validates the input, uploads profile assets, and creates the
// account. Assets are uploaded before the account row exists; if the create
// then fails they are deleted best-effort and otherwise left for offline
// reconciliation.
func (m *SessionManager) Register(ctx context.Context, input RegisterInput) (models.Account, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)

	if username == "" || email == "" || fullName == "" || input.Password == "" {
		return models.Account{}, fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.Account{}, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(input.Password) < minPasswordLength {
		return models.Account{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if input.Avatar == nil || input.Avatar.Body == nil {
		return models.Account{}, fmt.Errorf("%w: avatar is required", ErrValidation)
	}

	// Reject duplicates before any asset leaves the process. The storage
	// unique constraints remain the backstop for concurrent registrations.
	for _, identifier := range []string{username, email} {
		if _, err := m.accounts.FindByIdentifier(ctx, identifier); err == nil {
			return models.Account{}, ErrDuplicateAccount
		} else if !isNotFound(err) {
			return models.Account{}, fmt.Errorf("check existing account: %w", err)
		}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	accountID := uuid.NewString()

	avatarKey := assetKey("avatars", accountID, input.Avatar.FileName)
	avatarURL, err := m.uploadAsset(ctx, avatarKey, *input.Avatar)
	if err != nil {
		return models.Account{}, fmt.Errorf("upload avatar: %w", err)
	}

	var coverKey, coverURL string
	if input.Cover != nil && input.Cover.Body != nil {
		coverKey = assetKey("covers", accountID, input.Cover.FileName)
		coverURL, err = m.uploadAsset(ctx, coverKey, *input.Cover)
		if err != nil {
			m.cleanupAsset(ctx, avatarKey)
			return models.Account{}, fmt.Errorf("upload cover image: %w", err)
		}
	}

	now := m.now()
	account := models.Account{
		ID:           accountID,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		AvatarURL:    avatarURL,
		AvatarKey:    avatarKey,
		CoverURL:     coverURL,
		CoverKey:     coverKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.accounts.Create(ctx, account); err != nil {
		m.cleanupAsset(ctx, avatarKey)
		if coverKey != "" {
			m.cleanupAsset(ctx, coverKey)
		}
		if isDuplicate(err) {
			return models.Account{}, ErrDuplicateAccount
		}
		return models.Account{}, fmt.Errorf("create account: %w", err)
	}

	return account, nil
}

// Login authenticates by username or email and issues a fresh token pair.
// The stored refresh token is overwritten unconditionally, which invalidates
// any session held by another device.
func (m *SessionManager) Login(ctx context.Context, identifier, password string) (models.Account, models.SessionTokens, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return models.Account{}, models.SessionTokens{}, fmt.Errorf("%w: identifier and password are required", ErrValidation)
	}

	account, err := m.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if isNotFound(err) {
			return models.Account{}, models.SessionTokens{}, ErrNotFound
		}
		return models.Account{}, models.SessionTokens{}, fmt.Errorf("find account: %w", err)
	}

	if err := CheckPassword(account.PasswordHash, password); err != nil {
		return models.Account{}, models.SessionTokens{}, err
	}

	tokens, err := m.issueAndStore(ctx, account.ID)
	if err != nil {
		return models.Account{}, models.SessionTokens{}, err
	}

	account.RefreshToken = tokens.RefreshToken
	return account, tokens, nil
}

// Refresh exchanges a presented refresh token for a new pair, rotating the
// stored value. The equality check against the stored token is the
// revocation mechanism; rotation itself is a compare-and-swap so two
// concurrent refreshes cannot both succeed.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (models.SessionTokens, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return models.SessionTokens{}, ErrUnauthorized
	}

	accountID, err := m.tokens.Verify(presented, KindRefresh)
	if err != nil {
		return models.SessionTokens{}, err
	}

	account, err := m.accounts.FindByID(ctx, accountID)
	if err != nil {
		if isNotFound(err) {
			return models.SessionTokens{}, ErrInvalidToken
		}
		return models.SessionTokens{}, fmt.Errorf("find account: %w", err)
	}

	if account.RefreshToken == "" || account.RefreshToken != presented {
		return models.SessionTokens{}, ErrStaleToken
	}

	tokens, err := m.issuePair(account.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.accounts.RotateRefreshToken(ctx, account.ID, presented, tokens.RefreshToken); err != nil {
		if isStale(err) {
			return models.SessionTokens{}, ErrStaleToken
		}
		return models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return tokens, nil
}

// Logout clears the account's stored refresh token. Calling it twice is not
// an error.
func (m *SessionManager) Logout(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrUnauthorized
	}
	if err := m.accounts.SetRefreshToken(ctx, accountID, ""); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password before storing a new hash. The
// active refresh token survives a password change; revoking it here would
// log out the very session performing the change.
func (m *SessionManager) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if accountID == "" {
		return ErrUnauthorized
	}
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: old and new passwords are required", ErrValidation)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	account, err := m.accounts.FindByID(ctx, accountID)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}

	if err := CheckPassword(account.PasswordHash, oldPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := m.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}
	return nil
}

// Account loads the account for the provided id.
func (m *SessionManager) Account(ctx context.Context, accountID string) (models.Account, error) {
	account, err := m.accounts.FindByID(ctx, accountID)
	if err != nil {
		if isNotFound(err) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (m *SessionManager) issueAndStore(ctx context.Context, accountID string) (models.SessionTokens, error) {
	tokens, err := m.issuePair(accountID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.accounts.SetRefreshToken(ctx, accountID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

func (m *SessionManager) issuePair(accountID string) (models.SessionTokens, error) {
	access, accessExpires, err := m.tokens.IssueAccess(accountID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExpires, err := m.tokens.IssueRefresh(accountID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

func (m *SessionManager) uploadAsset(ctx context.Context, key string, asset Asset) (string, error) {
	if m.media == nil {
		return "", fmt.Errorf("media store unavailable")
	}
	return m.media.Upload(ctx, key, asset)
}

// cleanupAsset deletes an uploaded asset after a failed registration.
// Failures are logged, not escalated; a sweep job reconciles leftovers.
func (m *SessionManager) cleanupAsset(ctx context.Context, key string) {
	if m.media == nil || key == "" {
		return
	}
	if err := m.media.Delete(ctx, key); err != nil {
		logging.FromContext(ctx).Warn("orphaned asset cleanup failed", "key", key, "error", err)
	}
}

func (m *SessionManager) now() time.Time {
	if m.nowFunc != nil {
		return m.nowFunc().UTC()
	}
	return time.Now().UTC()
}

func assetKey(prefix, accountID, fileName string) string {
	ext := path.Ext(fileName)
	return fmt.Sprintf("%s/%s%s", prefix, accountID, ext)
}
