package handler

import (
	"net/http"

	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/sirupsen/logrus"
)

type ExportHandler struct {
	service *service.ExportService
	logger  *logrus.Logger
}

func NewExportHandler(service *service.ExportService, logger *logrus.Logger) *ExportHandler {
	return &ExportHandler{service: service, logger: logger}
}

func (h *ExportHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")

	body, err := h.service.AssignmentsCSV(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, h.logger, err, "Export failed")
		return
	}
	response.Attachment(w, "text/csv; charset=utf-8", service.ExportFilename(from, to), body)
}
