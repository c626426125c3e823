package handler

import (
	"errors"
	"net/http"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type HotelHandler struct {
	service  *service.HotelService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewHotelHandler(service *service.HotelService, logger *logrus.Logger) *HotelHandler {
	return &HotelHandler{service: service, validate: validator.New(), logger: logger}
}

func (h *HotelHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req domain.HotelBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.To) == 0 {
		response.BadRequest(w, "Destinatari mancanti")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.service.RequestAvailability(r.Context(), actorOf(r), &req); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, verr.Reason)
			return
		}
		h.logger.WithError(err).Error("Hotel booking mail failed")
		response.InternalError(w, "Errore invio email")
		return
	}
	response.OK(w)
}
