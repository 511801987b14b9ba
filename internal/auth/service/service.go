// Package service implements credential verification and token issuance.
// Access tokens are short-lived HMAC JWTs; refresh tokens are opaque,
// stored hashed, and rotated on every use.
package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"prodline_backend/internal/auth/password"
	"prodline_backend/internal/auth/repository"
	"prodline_backend/internal/auth/token"
	"prodline_backend/internal/auth/transport"
	"prodline_backend/platform/apperr"
	"prodline_backend/platform/config"
	"prodline_backend/platform/logger"
)

const (
	accessTokenType = "access"

	refreshTokenBytes = 48
)

// Store is the persistence surface the auth service needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	ListUsers(ctx context.Context) ([]repository.User, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

type Service struct {
	store Store
	cfg   config.AuthServiceConfig
	log   *logger.Logger
}

func New(store Store, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{store: store, cfg: cfg, log: log}
}

// SignIn verifies credentials and issues a token pair. Every failure mode
// collapses into the same unauthorized error so responses do not reveal
// whether the account exists.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (transport.TokenPairResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("sign_in", email, false, "unknown user")
		return transport.TokenPairResponse{}, apperr.Unauthorized("invalid credentials")
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "bad password")
		return transport.TokenPairResponse{}, apperr.Unauthorized("invalid credentials")
	}
	if !user.IsActive {
		s.log.AuthEvent("sign_in", email, false, "inactive account")
		return transport.TokenPairResponse{}, apperr.Unauthorized("invalid credentials")
	}

	s.log.AuthEvent("sign_in", email, true, "")
	return s.issueTokens(ctx, user)
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// token is revoked whether or not the exchange succeeds, so a token can
// never be replayed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (transport.TokenPairResponse, error) {
	hash := token.HashSHA256(refreshToken)
	userID, expiresAt, err := s.store.GetRefreshToken(ctx, hash)
	if err != nil {
		return transport.TokenPairResponse{}, apperr.Unauthorized("invalid refresh token")
	}

	_ = s.store.RevokeRefreshToken(ctx, hash)
	if time.Now().After(expiresAt) {
		return transport.TokenPairResponse{}, apperr.Unauthorized("refresh token expired")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil || !user.IsActive {
		return transport.TokenPairResponse{}, apperr.Unauthorized("invalid refresh token")
	}

	return s.issueTokens(ctx, user)
}

// SignOut revokes the presented refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.store.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (transport.UserResponse, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return transport.UserResponse{}, apperr.NotFound("user not found")
	}
	return toUserResponse(user), nil
}

// ListUsers returns all accounts, for assignment pickers.
func (s *Service) ListUsers(ctx context.Context) (transport.UserListResponse, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return transport.UserListResponse{}, err
	}

	items := make([]transport.UserResponse, len(users))
	for i, u := range users {
		items[i] = toUserResponse(u)
	}
	return transport.UserListResponse{Items: items, Total: len(items)}, nil
}

// Exists reports whether an active user with this id exists. Consumed by
// the orders module through its UserDirectory port.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.store.UserExists(ctx, id)
}

func (s *Service) issueTokens(ctx context.Context, user repository.User) (transport.TokenPairResponse, error) {
	accessToken, err := s.signJWT(user.ID, []string{user.Role}, s.cfg.GetAccessTokenTTL())
	if err != nil {
		return transport.TokenPairResponse{}, err
	}

	refreshToken, err := token.GenerateRandomToken(refreshTokenBytes)
	if err != nil {
		return transport.TokenPairResponse{}, err
	}

	hash := token.HashSHA256(refreshToken)
	expiresAt := time.Now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.store.CreateRefreshToken(ctx, user.ID, hash, expiresAt); err != nil {
		return transport.TokenPairResponse{}, err
	}

	return transport.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) signJWT(userID uuid.UUID, roles []string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"type":  accessTokenType,
		"roles": roles,
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func toUserResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}
