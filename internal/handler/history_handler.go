package handler

import (
	"net/http"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type HistoryHandler struct {
	service  *service.HistoryService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewHistoryHandler(service *service.HistoryService, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{service: service, validate: validator.New(), logger: logger}
}

// List serves GET /history/calendar-days?id=<calendar day id>.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.List(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load history")
		return
	}
	response.Success(w, &domain.HistoryListResponse{Rows: rows})
}

func (h *HistoryHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req domain.RestoreDayRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	row, err := h.service.Restore(r.Context(), originOf(r), actorOf(r), req.HistoryID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to restore day")
		return
	}
	response.Success(w, &domain.UpsertDayResponse{OK: true, Row: row})
}

// ListAssignment serves GET /history/assignments?id=<assignment id>.
func (h *HistoryHandler) ListAssignment(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListAssignment(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load assignment history")
		return
	}
	response.Success(w, &domain.AssignmentHistoryListResponse{Rows: rows})
}

// RestoreRow serves POST /history/restore for calendar days and assignments.
func (h *HistoryHandler) RestoreRow(w http.ResponseWriter, r *http.Request) {
	var req domain.RestoreRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	res, err := h.service.RestoreRow(r.Context(), originOf(r), actorOf(r), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to restore row")
		return
	}
	response.Success(w, res)
}
