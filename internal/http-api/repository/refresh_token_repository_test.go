package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/http-api/models"
)

func newLedgerRow(userID string) *models.RefreshToken {
	return &models.RefreshToken{
		ID:        uuid.New().String(),
		TokenHash: "digest-" + uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
}

func TestRefreshTokenRepository_CreateAndFind(t *testing.T) {
	repo := NewRefreshTokenRepository(setupTestDB(t))
	ctx := context.Background()

	row := newLedgerRow("user-id")
	require.NoError(t, repo.Create(ctx, row))

	found, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, row.TokenHash, found.TokenHash)
	assert.Equal(t, "user-id", found.UserID)
	assert.False(t, found.Revoked)

	_, err = repo.FindByID(ctx, "unknown-jti")
	assert.Error(t, err)
}

func TestRefreshTokenRepository_RevokeOnceWins(t *testing.T) {
	repo := NewRefreshTokenRepository(setupTestDB(t))
	ctx := context.Background()

	row := newLedgerRow("user-id")
	require.NoError(t, repo.Create(ctx, row))

	won, err := repo.Revoke(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, won)

	// Second revocation of the same row finds no unrevoked row to flip
	won, err = repo.Revoke(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, won)

	found, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, found.Revoked)
}

func TestRefreshTokenRepository_RevokeUnknownID(t *testing.T) {
	repo := NewRefreshTokenRepository(setupTestDB(t))

	won, err := repo.Revoke(context.Background(), "unknown-jti")
	assert.NoError(t, err)
	assert.False(t, won)
}

func TestRefreshTokenRepository_Rotate(t *testing.T) {
	repo := NewRefreshTokenRepository(setupTestDB(t))
	ctx := context.Background()

	old := newLedgerRow("user-id")
	require.NoError(t, repo.Create(ctx, old))

	replacement := newLedgerRow("user-id")
	require.NoError(t, repo.Rotate(ctx, old.ID, replacement))

	// The redeemed row is revoked, not deleted
	oldRow, err := repo.FindByID(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, oldRow.Revoked)

	newRow, err := repo.FindByID(ctx, replacement.ID)
	require.NoError(t, err)
	assert.False(t, newRow.Revoked)
}

// A second rotation of the same token must lose: the conditional revoke
// inside the transaction finds the row already revoked and no replacement
// row is written.
func TestRefreshTokenRepository_RotateSingleUse(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	old := newLedgerRow("user-id")
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Rotate(ctx, old.ID, newLedgerRow("user-id")))

	loser := newLedgerRow("user-id")
	err := repo.Rotate(ctx, old.ID, loser)
	assert.ErrorIs(t, err, ErrAlreadyRevoked)

	// The loser's replacement row was rolled back
	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("id = ?", loser.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	live := newLedgerRow("user-id")
	require.NoError(t, repo.Create(ctx, live))

	stale := newLedgerRow("user-id")
	stale.ExpiresAt = time.Now().Add(-1 * time.Hour)
	require.NoError(t, repo.Create(ctx, stale))

	require.NoError(t, repo.DeleteExpired(ctx))

	_, err := repo.FindByID(ctx, stale.ID)
	assert.Error(t, err)
	_, err = repo.FindByID(ctx, live.ID)
	assert.NoError(t, err)
}
