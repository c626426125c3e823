package handler

import (
	"net/http"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type AssignmentHandler struct {
	service  *service.AssignmentService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewAssignmentHandler(service *service.AssignmentService, logger *logrus.Logger) *AssignmentHandler {
	return &AssignmentHandler{service: service, validate: validator.New(), logger: logger}
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAssignmentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	a, err := h.service.Create(r.Context(), originOf(r), actorOf(r), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create assignment")
		return
	}
	response.Success(w, &domain.AssignmentResponse{OK: true, Assignment: a})
}

func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateAssignmentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	a, err := h.service.Update(r.Context(), originOf(r), actorOf(r), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update assignment")
		return
	}
	response.Success(w, &domain.AssignmentResponse{OK: true, Assignment: a})
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteAssignmentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.service.Delete(r.Context(), originOf(r), actorOf(r), req.ID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete assignment")
		return
	}
	response.OK(w)
}

func (h *AssignmentHandler) AssignOnDate(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignOnDateRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	day, a, err := h.service.AssignOnDate(r.Context(), originOf(r), actorOf(r), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to assign")
		return
	}
	response.Success(w, &domain.AssignOnDateResponse{OK: true, Day: day, Assignment: a})
}

func (h *AssignmentHandler) OnCall(w http.ResponseWriter, r *http.Request) {
	var req domain.OnCallRangeRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	res, err := h.service.AssignOnCall(r.Context(), actorOf(r), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to assign on-call range")
		return
	}
	response.Success(w, res)
}
