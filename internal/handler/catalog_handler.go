package handler

import (
	"net/http"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type CatalogHandler struct {
	service  *service.CatalogService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewCatalogHandler(service *service.CatalogService, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, validate: validator.New(), logger: logger}
}

// List serves GET /catalog/{kind}. ?all=1 includes inactive entries.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, err := service.ParseCatalogKind(mux.Vars(r)["kind"])
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	rows, err := h.service.List(r.Context(), kind, r.URL.Query().Get("all") != "1")
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list catalog")
		return
	}
	response.Success(w, rows)
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind, err := service.ParseCatalogKind(mux.Vars(r)["kind"])
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	var req domain.CreateCatalogEntryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	entry, err := h.service.Create(r.Context(), kind, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create catalog entry")
		return
	}
	response.Created(w, entry)
}
