package auth

import "errors"

var (
	// ErrValidation indicates a required registration field is blank or malformed.
	ErrValidation = errors.New("invalid or missing field")
	// ErrDuplicateAccount indicates the username or email is already registered.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrNotFound indicates no account matches the provided identifier.
	ErrNotFound = errors.New("account not found")
	// ErrInvalidCredentials indicates a password check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a token failed signature or structural checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a well-signed token past its expiry.
	ErrExpiredToken = errors.New("token expired")
	// ErrStaleToken indicates a well-signed refresh token that has been
	// superseded by a later-issued one (logout, re-login, or a lost
	// rotation race).
	ErrStaleToken = errors.New("refresh token superseded")
	// ErrUnauthorized indicates no credential was presented.
	ErrUnauthorized = errors.New("authentication required")
)

func isNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func isDuplicate(err error) bool { return errors.Is(err, ErrDuplicateAccount) }
func isStale(err error) bool     { return errors.Is(err, ErrStaleToken) }
