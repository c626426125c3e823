package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/middleware"
	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ClientIDHeader carries the browser session id used to skip the sender
// when a change is broadcast.
const ClientIDHeader = "X-Client-ID"

const maxJSONBody = 1 << 20

type stageErrorBody struct {
	OK    bool   `json:"ok"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// storeErrorBody is the 503 body for a failing backend.
type storeErrorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, v interface{}) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := validate.Struct(v); err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	return true
}

func originOf(r *http.Request) string {
	return r.Header.Get(ClientIDHeader)
}

func actorOf(r *http.Request) *string {
	if id := middleware.GetUserID(r); id != "" {
		return &id
	}
	return nil
}

// writeServiceError maps service errors to HTTP responses. Backend and
// unrecognized errors are logged and reported with their own message.
func writeServiceError(w http.ResponseWriter, logger *logrus.Logger, err error, fallback string) {
	var (
		validationErr *service.ValidationError
		conflictErr   *service.ConflictError
		storeErr      *service.StoreError
		stageErr      *service.StageError
	)

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, validationErr.Reason)
	case errors.As(err, &conflictErr):
		response.JSON(w, http.StatusConflict, &domain.DayConflictResponse{
			OK:       false,
			Conflict: true,
			Current:  conflictErr.Current,
		})
	case errors.As(err, &stageErr):
		logger.WithField("stage", stageErr.Stage).WithError(err).Error("Storage step failed")
		response.JSON(w, http.StatusInternalServerError, &stageErrorBody{
			OK:    false,
			Stage: stageErr.Stage,
			Error: stageErr.Error(),
		})
	case errors.As(err, &storeErr):
		logger.WithField("op", storeErr.Op).WithError(err).Error("Store unavailable")
		response.JSON(w, http.StatusServiceUnavailable, &storeErrorBody{
			Error:     storeErr.Error(),
			Retryable: true,
		})
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, "Not found")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(w, "Forbidden")
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, "Credenziali non valide")
	case errors.Is(err, service.ErrUsernameTaken):
		response.Error(w, http.StatusConflict, "Username già in uso")
	default:
		logger.WithError(err).Error(fallback)
		response.InternalError(w, err.Error())
	}
}
