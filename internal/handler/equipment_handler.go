package handler

import (
	"io"
	"net/http"

	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/sirupsen/logrus"
)

// maxUploadBytes bounds uploaded workbooks.
const maxUploadBytes = 25 << 20

type EquipmentHandler struct {
	service *service.EquipmentService
	logger  *logrus.Logger
}

func NewEquipmentHandler(service *service.EquipmentService, logger *logrus.Logger) *EquipmentHandler {
	return &EquipmentHandler{service: service, logger: logger}
}

// Upload takes the master workbook as the raw request body.
func (h *EquipmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		response.BadRequest(w, "File troppo grande o non leggibile")
		return
	}
	if len(data) == 0 {
		response.BadRequest(w, "File mancante")
		return
	}

	res, err := h.service.Upload(r.Context(), data)
	if err != nil {
		writeServiceError(w, h.logger, err, "Upload failed")
		return
	}
	response.Success(w, res)
}

// ExpiryScan runs the daily alert. ?force=1 skips the hour gate.
func (h *EquipmentHandler) ExpiryScan(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"

	res, err := h.service.Scan(r.Context(), force)
	if err != nil {
		h.logger.WithError(err).Error("Expiry scan failed")
		response.JSON(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}
	response.Success(w, res)
}
