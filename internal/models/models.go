package models

import "time"

// Account represents a registered user of the ClipTube platform.
type Account struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	AvatarURL    string
	AvatarKey    string
	CoverURL     string
	CoverKey     string
	// RefreshToken holds the single currently valid refresh token for this
	// account. Empty means no active session.
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns the account projection safe to hand to API clients.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FullName:  a.FullName,
		AvatarURL: a.AvatarURL,
		CoverURL:  a.CoverURL,
		CreatedAt: a.CreatedAt,
	}
}

// PublicAccount is the redacted view of an Account. It never carries the
// password hash or the refresh token.
type PublicAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullname"`
	AvatarURL string    `json:"avatarUrl"`
	CoverURL  string    `json:"coverUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// TargetType identifies the kind of content a like points at.
type TargetType string

const (
	TargetVideo   TargetType = "video"
	TargetComment TargetType = "comment"
	TargetTweet   TargetType = "tweet"
)

// Valid reports whether the target type is one of the supported kinds.
func (t TargetType) Valid() bool {
	switch t {
	case TargetVideo, TargetComment, TargetTweet:
		return true
	}
	return false
}

// LikeTarget is the tagged variant identifying what a like applies to.
type LikeTarget struct {
	Type TargetType
	ID   string
}

// Like records that an account likes a target. At most one row exists per
// (AccountID, Target.Type, Target.ID) triple.
type Like struct {
	ID        string
	AccountID string
	Target    LikeTarget
	CreatedAt time.Time
}

// Video is a published video. Asset ingestion to object storage happens in
// the background, tracked by AssetStatus.
type Video struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	AssetKey    string
	AssetURL    string
	AssetStatus string
	AssetSize   int64
	CreatedAt   time.Time
}

const (
	AssetStatusPending = "pending"
	AssetStatusReady   = "ready"
	AssetStatusFailed  = "failed"
)

// Comment exists here only as a like target; comment CRUD lives elsewhere.
type Comment struct {
	ID        string
	VideoID   string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// Tweet exists here only as a like target.
type Tweet struct {
	ID        string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// WatchEvent records that an account viewed a video.
type WatchEvent struct {
	AccountID string
	VideoID   string
	WatchedAt time.Time
}
