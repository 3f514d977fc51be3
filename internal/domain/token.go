package domain

import (
	"time"
)

// Principal is the identity carried inside every signed token.
type Principal struct {
	UserID int64 `json:"sub"`
	Role   Role  `json:"role"`
}

// RefreshTokenRecord is the persisted row backing one refresh token. The
// signed artifact embeds the row ID as its jti claim; deleting the row
// revokes the artifact regardless of its signature.
type RefreshTokenRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair is one issued access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
