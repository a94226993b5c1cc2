package models

import (
	"time"
)

// RefreshToken is one row per issued refresh token, keyed by the token's
// jti claim. Only the SHA-256 digest of the raw token is stored. Rows are
// soft-revoked, never deleted, so the ledger doubles as an audit trail.
type RefreshToken struct {
	ID        string    `gorm:"primaryKey" json:"id"` // jti of the issued token
	TokenHash string    `gorm:"not null" json:"-"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
