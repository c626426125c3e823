package handler

import (
	"io"
	"net/http"
	"strings"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/service"
	"fieldops-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"
)

type ReportHandler struct {
	service  *service.ReportService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewReportHandler(service *service.ReportService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{service: service, validate: validator.New(), logger: logger}
}

// readUpload returns the "file" part of a multipart request.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "Richiesta multipart non valida")
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "File mancante")
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "File non leggibile")
		return nil, "", false
	}
	return data, header.Filename, true
}

// Operators lists the operators of an uploaded massiva or clientela workbook.
func (h *ReportHandler) Operators(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := readUpload(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Operators(mux.Vars(r)["kind"], data, filename)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to read operators")
		return
	}
	response.Success(w, resp)
}

// Generate reads the source workbook of the kind named in the path and the
// form fields date, operators (repeated or comma separated), combined,
// target, path and format. The download target returns the PDF zip, or the
// workbook with format=xlsx.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := readUpload(w, r)
	if !ok {
		return
	}

	req := domain.GenerateReportRequest{
		Kind:      mux.Vars(r)["kind"],
		Date:      strings.TrimSpace(r.FormValue("date")),
		Operators: formList(r.MultipartForm.Value["operators"]),
		Combined:  r.FormValue("combined") == "true" || r.FormValue("combined") == "1",
		Target:    r.FormValue("target"),
		Path:      r.FormValue("path"),
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if req.Target == domain.ReportTargetStorage {
		stored, err := h.service.GenerateAndStore(r.Context(), data, filename, &req)
		if err != nil {
			writeServiceError(w, h.logger, err, "Failed to store reports")
			return
		}
		response.Success(w, stored)
		return
	}

	report, err := h.service.Generate(r.Context(), data, filename, &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to generate reports")
		return
	}
	if r.FormValue("format") == "xlsx" {
		response.Attachment(w, xlsxContentType, report.WorkbookName(), report.Workbook)
		return
	}
	response.Attachment(w, zipContentType, report.BundleName(), report.PDFBundle)
}

func formList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
