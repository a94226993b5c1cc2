package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/http-api/models"
)

// ErrAlreadyRevoked is returned by Rotate when another redemption of the
// same token already revoked it.
var ErrAlreadyRevoked = errors.New("refresh token already revoked")

// RefreshTokenRepository handles database operations for the refresh token
// ledger. Tokens are soft-revoked, never un-revoked.
type RefreshTokenRepository interface {
	Create(ctx context.Context, refreshToken *models.RefreshToken) error
	FindByID(ctx context.Context, jti string) (*models.RefreshToken, error)
	// Revoke marks the token revoked and reports whether this call flipped
	// the flag. Concurrent redemptions of the same token serialize here:
	// the conditional update lets exactly one caller win.
	Revoke(ctx context.Context, jti string) (bool, error)
	// Rotate revokes the redeemed token and records its replacement as one
	// unit, so a failure partway never leaves two live tokens.
	Rotate(ctx context.Context, oldJTI string, newToken *models.RefreshToken) error
	DeleteExpired(ctx context.Context) error
}

// refreshTokenRepository is the GORM implementation of RefreshTokenRepository
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create: records a newly issued refresh token in the ledger
func (r *refreshTokenRepository) Create(ctx context.Context, refreshToken *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(refreshToken).Error
}

// FindByID: look up the ledger row by the token's jti
func (r *refreshTokenRepository) FindByID(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).First(&refreshToken, "id = ?", jti).Error; err != nil {
		return nil, err
	}
	return &refreshToken, nil
}

// Revoke: conditional update so only the first caller for a given jti wins
func (r *refreshTokenRepository) Revoke(ctx context.Context, jti string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", jti, false).
		Update("revoked", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Rotate: single-use redemption. The conditional revoke serializes
// concurrent redemptions of the same refresh token at the storage layer;
// the loser rolls back and sees ErrAlreadyRevoked.
func (r *refreshTokenRepository) Rotate(ctx context.Context, oldJTI string, newToken *models.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", oldJTI, false).
			Update("revoked", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyRevoked
		}
		return tx.Create(newToken).Error
	})
}

// DeleteExpired: removes ledger rows past their expiry, revoked or not.
// Expired rows are already rejected at refresh time, this just keeps the
// table from growing without bound.
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.RefreshToken{}).Error
}
