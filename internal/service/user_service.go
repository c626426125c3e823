package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/repository"
	"fieldops-server/pkg/hash"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type UserService struct {
	userRepo repository.UserRepository
	audit    repository.AuditRepository
	logger   *logrus.Logger
}

func NewUserService(userRepo repository.UserRepository, audit repository.AuditRepository, logger *logrus.Logger) *UserService {
	return &UserService{userRepo: userRepo, audit: audit, logger: logger}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError("find user", err)
	}

	user.Password = ""
	return user, nil
}

// CreateUser provisions a username-only account. Role defaults to viewer.
func (s *UserService) CreateUser(ctx context.Context, actor *string, req *domain.CreateUserRequest) (*domain.CreateUserResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return nil, invalid("username mancante")
	}
	role := req.Role
	if role == "" {
		role = domain.RoleViewer
	}

	hashed, err := hash.Hash(req.Password)
	if err != nil {
		if errors.Is(err, hash.ErrTooShort) || errors.Is(err, hash.ErrTooLong) {
			return nil, invalid("%s", err.Error())
		}
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     domain.LocalEmail(username),
		Password:  hashed,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUsernameTaken
		}
		return nil, storeError("create user", err)
	}

	if s.audit != nil {
		payload := map[string]string{"username": username, "role": string(role)}
		if err := s.audit.Record(ctx, actor, "admin_create_user", "users", user.ID, payload); err != nil {
			s.logger.WithError(err).Warn("Failed to audit user creation")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    role,
	}).Info("User created")

	return &domain.CreateUserResponse{OK: true, UserID: user.ID, Email: user.Email}, nil
}

// ChangePassword replaces the password of userID once the current one is
// confirmed. Tokens already issued stay valid until they expire.
func (s *UserService) ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return invalid("Le password non coincidono")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storeError("find user", err)
	}

	if err := hash.Compare(user.Password, req.CurrentPassword); err != nil {
		if !hash.IsMismatch(err) {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Password comparison failed")
		}
		return invalid("Password attuale non corretta")
	}
	if req.NewPassword == req.CurrentPassword {
		return invalid("La nuova password deve essere diversa da quella attuale")
	}

	hashed, err := hash.Hash(req.NewPassword)
	if err != nil {
		if errors.Is(err, hash.ErrTooShort) || errors.Is(err, hash.ErrTooLong) {
			return invalid("%s", err.Error())
		}
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hashed); err != nil {
		return storeError("update password", err)
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, &userID, "change_password", "users", userID, nil); err != nil {
			s.logger.WithError(err).Warn("Failed to audit password change")
		}
	}
	s.logger.WithField("user_id", userID).Info("Password changed")
	return nil
}

// EnsureAdmin creates the bootstrap admin account unless it exists.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	exists, err := s.userRepo.UsernameExists(ctx, strings.ToLower(username))
	if err != nil {
		return storeError("check admin", err)
	}
	if exists {
		return nil
	}

	_, err = s.CreateUser(ctx, nil, &domain.CreateUserRequest{
		Username: username,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	return err
}
