package handler

import (
	"net/http"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type CalendarHandler struct {
	service  *service.CalendarService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewCalendarHandler(service *service.CalendarService, logger *logrus.Logger) *CalendarHandler {
	return &CalendarHandler{service: service, validate: validator.New(), logger: logger}
}

// ListDays serves GET /calendar/days?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *CalendarHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.service.ListRange(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list days")
		return
	}
	response.Success(w, resp)
}

// UpsertDay answers 200 {ok,row} on success and 409 {ok:false,conflict:true,current}
// when another writer created the day first.
func (h *CalendarHandler) UpsertDay(w http.ResponseWriter, r *http.Request) {
	var req domain.UpsertDayRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if req.UserID == nil {
		req.UserID = actorOf(r)
	}

	row, err := h.service.UpsertDay(r.Context(), originOf(r), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save day")
		return
	}
	response.Success(w, &domain.UpsertDayResponse{OK: true, Row: row})
}
