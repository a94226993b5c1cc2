package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/auth"
	"taskhub/internal/config"
	"taskhub/internal/http-api/models"
	"taskhub/internal/http-api/repository"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// dummyHash is compared against when login hits an unknown email, so both
// failure paths cost one bcrypt verification (mitigates timing probes).
const dummyHash = "$2a$12$7EqJtq98hPqEX7fNZaFWoOHi6VbU5h6K9v8u5rO0m3j0h6dX5r8e"

// TokenPair is the result of every session-establishing operation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService orchestrates register/login/refresh/logout over the user
// store, the refresh token ledger, and the token service.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*TokenPair, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, rawRefreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, rawRefreshToken string) error
	ValidateAccessToken(tokenString string) (*AccessClaims, error)
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           TokenService
	bcryptCost       int
	refreshTokenTTL  time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens TokenService,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		bcryptCost:       cfg.BcryptCost,
		refreshTokenTTL:  cfg.RefreshTokenTTL,
	}
}

// Register creates a user and establishes their first session.
func (s *authService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	// Check if email exists
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	}

	// Hash password
	hashedPassword, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Password: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokenPair(ctx, user.ID)
}

// Login authenticates a user and returns access and refresh tokens upon
// successful login. Unknown email and wrong password are indistinguishable
// to the caller.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		// User not found: dummy compare to keep both paths at one bcrypt
		// verification
		auth.VerifyPassword(dummyHash, password)
		return nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(user.Password, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokenPair(ctx, user.ID)
}

// Refresh redeems a refresh token for a new pair. A token is redeemable
// exactly once: the redeemed row is revoked in the same storage transaction
// that records its replacement, so a replay or a concurrent second
// redemption fails on the revoked flag.
func (s *authService) Refresh(ctx context.Context, rawRefreshToken string) (*TokenPair, error) {
	// Signature check comes first; the jti inside is not trusted until the
	// stored hash comparison below also passes.
	claims, err := s.tokens.ParseRefreshToken(rawRefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	record, err := s.refreshTokenRepo.FindByID(ctx, claims.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if record.Revoked {
		return nil, ErrInvalidToken
	}

	// The hash comparison is what authenticates the presented raw token: a
	// forged token sharing a known jti fails here.
	if s.tokens.HashToken(rawRefreshToken) != record.TokenHash {
		return nil, ErrInvalidToken
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, record.UserID)
	if err != nil {
		// Deleted account; the ledger row outlives it
		return nil, ErrInvalidToken
	}

	jti := uuid.New().String()
	pair, newRecord, err := s.mintPair(user.ID, jti)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.Rotate(ctx, record.ID, newRecord); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			// Lost a concurrent redemption race for the same token
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return pair, nil
}

// Logout revokes the session's refresh token. It is best-effort and
// idempotent: malformed, unknown, or already-revoked tokens are not errors.
func (s *authService) Logout(ctx context.Context, rawRefreshToken string) error {
	if rawRefreshToken == "" {
		return nil
	}

	claims, err := s.tokens.ParseRefreshToken(rawRefreshToken)
	if err != nil {
		// Don't leak token validity through the logout path
		return nil
	}

	if _, err := s.refreshTokenRepo.Revoke(ctx, claims.ID); err != nil {
		return err
	}
	return nil
}

// ValidateAccessToken is the middleware's entry point. It never consults
// the ledger: access tokens are self-contained and simply expire on their
// own short horizon.
func (s *authService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	return s.tokens.ParseAccessToken(tokenString)
}

func (s *authService) issueTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	jti := uuid.New().String()
	pair, record, err := s.mintPair(userID, jti)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return pair, nil
}

func (s *authService) mintPair(userID, jti string) (*TokenPair, *models.RefreshToken, error) {
	accessToken, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, nil, err
	}

	refreshToken, err := s.tokens.IssueRefreshToken(userID, jti)
	if err != nil {
		return nil, nil, err
	}

	record := &models.RefreshToken{
		ID:        jti,
		TokenHash: s.tokens.HashToken(refreshToken),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.refreshTokenTTL),
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, record, nil
}
