package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/repository"
	"fieldops-server/pkg/hash"
	"fieldops-server/pkg/jwt"

	"github.com/sirupsen/logrus"
)

type AuthService struct {
	userRepo          repository.UserRepository
	jwtSecret         string
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
	logger            *logrus.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExp, refreshExp time.Duration, logger *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo:          userRepo,
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExp,
		refreshExpiration: refreshExp,
		logger:            logger,
	}
}

// SignIn authenticates a username-only account.
func (s *AuthService) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("find user", err)
	}

	if err := hash.Compare(user.Password, req.Password); err != nil {
		if !hash.IsMismatch(err) {
			s.logger.WithError(err).Warn("Password comparison failed")
		}
		return nil, ErrInvalidCredentials
	}
	s.rehash(ctx, user.ID, user.Password, req.Password)

	accessToken, err := jwt.GenerateToken(user.ID, string(user.Role), s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(user.ID, s.refreshExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	user.Password = ""
	s.logger.WithField("user_id", user.ID).Info("User signed in")

	return &domain.LoginResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtExpiration.Seconds()),
	}, nil
}

// RefreshToken issues a new access token. The role is reloaded so that a
// changed role takes effect on the next refresh.
func (s *AuthService) RefreshToken(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.TokenResponse, error) {
	claims, err := jwt.ValidateTyped(req.RefreshToken, s.jwtSecret, jwt.TypeRefresh)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("find user", err)
	}

	accessToken, err := jwt.GenerateToken(user.ID, string(user.Role), s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) ValidateToken(token string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateTyped(token, s.jwtSecret, jwt.TypeAccess)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

// rehash upgrades hashes made with an older cost. Failures are logged and
// do not block the sign-in.
func (s *AuthService) rehash(ctx context.Context, userID, hashed, password string) {
	if !hash.NeedsRehash(hashed, hash.DefaultCost) {
		return
	}
	upgraded, err := hash.Hash(password)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Password rehash failed")
		return
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, upgraded); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to store rehashed password")
	}
}
