package handler

import (
	"net/http"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/middleware"
	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validate
	logger      *logrus.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator.New(),
		logger:      logger,
	}
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	loginResp, err := h.authService.SignIn(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Sign-in failed")
		return
	}

	response.Success(w, loginResp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	tokenResp, err := h.authService.RefreshToken(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Token refresh failed")
		return
	}

	response.Success(w, tokenResp)
}

// Logout is stateless; clients drop their tokens.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	response.OK(w)
}

type UserHandler struct {
	userService *service.UserService
	validator   *validator.Validate
	logger      *logrus.Logger
}

func NewUserHandler(userService *service.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator.New(),
		logger:      logger,
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByID(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load user")
		return
	}
	response.Success(w, user)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	resp, err := h.userService.CreateUser(r.Context(), actorOf(r), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create user")
		return
	}
	response.Created(w, resp)
}

// ChangePassword serves POST /account/password for the signed-in user.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.userService.ChangePassword(r.Context(), middleware.GetUserID(r), &req); err != nil {
		writeServiceError(w, h.logger, err, "Failed to change password")
		return
	}
	response.OK(w)
}
