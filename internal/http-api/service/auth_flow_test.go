package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhub/internal/http-api/models"
	"taskhub/internal/http-api/repository"
)

// newFlowService wires the auth service against a real in-memory sqlite
// database, so the whole token lifecycle runs against actual storage.
func newFlowService(t *testing.T) (AuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	cfg := testConfig()
	svc := NewAuthService(
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db),
		NewTokenService(cfg),
		cfg,
	)
	return svc, db
}

// Full session lifecycle: register, login, refresh with rotation, replay of
// the rotated-away token, logout, refresh after logout.
func TestSessionLifecycle(t *testing.T) {
	svc, _ := newFlowService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "pw12345")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)

	// Duplicate registration is a conflict
	_, err = svc.Register(ctx, "alice@example.com", "pw12345")
	assert.Equal(t, ErrEmailInUse, err)

	loggedIn, err := svc.Login(ctx, "alice@example.com", "pw12345")
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, loggedIn.RefreshToken)

	// Redeem the login's refresh token
	rotated, err := svc.Refresh(ctx, loggedIn.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, loggedIn.RefreshToken, rotated.RefreshToken)

	// Single-use law: the redeemed token is now revoked
	_, err = svc.Refresh(ctx, loggedIn.RefreshToken)
	assert.Equal(t, ErrInvalidToken, err)

	// Logout revokes the latest token
	require.NoError(t, svc.Logout(ctx, rotated.RefreshToken))
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.Equal(t, ErrInvalidToken, err)

	// The register session's token was never redeemed or revoked, so it
	// still works
	_, err = svc.Refresh(ctx, registered.RefreshToken)
	assert.NoError(t, err)
}

func TestSessionLifecycle_WrongPassword(t *testing.T) {
	svc, _ := newFlowService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob@example.com", "correct-horse")
	require.NoError(t, err)

	_, wrongPw := svc.Login(ctx, "bob@example.com", "battery-staple")
	_, noUser := svc.Login(ctx, "carol@example.com", "battery-staple")

	// Identical failure for wrong password and unknown email
	assert.Equal(t, ErrInvalidCredentials, wrongPw)
	assert.Equal(t, ErrInvalidCredentials, noUser)
}

func TestSessionLifecycle_ExpiredLedgerRow(t *testing.T) {
	svc, db := newFlowService(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "dave@example.com", "pw12345")
	require.NoError(t, err)

	// Age the ledger row past its expiry without revoking it
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("1 = 1").
		Update("expires_at", time.Now().Add(-1*time.Minute)).Error)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, ErrInvalidToken, err)
}

// Rotation revokes the old row rather than deleting it: the ledger keeps
// every issued token.
func TestSessionLifecycle_SoftRevoke(t *testing.T) {
	svc, db := newFlowService(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "erin@example.com", "pw12345")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	var rows []models.RefreshToken
	require.NoError(t, db.Order("created_at").Find(&rows).Error)
	require.Len(t, rows, 2)

	revoked := 0
	for _, row := range rows {
		if row.Revoked {
			revoked++
		}
	}
	assert.Equal(t, 1, revoked)
}
