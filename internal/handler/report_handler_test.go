package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fieldops-server/internal/domain"

	"github.com/xuri/excelize/v2"
)

func attgiornUpload(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "ATTGIORN")
	rows := [][]interface{}{
		{"DATA", "RISORSA"},
		{"05/11/2025", "ROSSI"},
		{"05/11/2025", "BIANCHI"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("ATTGIORN", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	// name column O
	f.SetCellValue("ATTGIORN", "O2", "Cliente A")
	f.SetCellValue("ATTGIORN", "O3", "Cliente B")

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func (s *testServer) upload(t *testing.T, path string, file []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "attgiorn.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(file)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.tokens[domain.RoleEditor])
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestClientelaReportRoutes(t *testing.T) {
	s := newTestServer(t)
	file := attgiornUpload(t)

	rec := s.upload(t, "/api/reports/clientela/operators", file, nil)
	var ops domain.OperatorsResponse
	decode(t, rec, &ops)
	if rec.Code != http.StatusOK || strings.Join(ops.Operators, ",") != "BIANCHI,ROSSI" {
		t.Fatalf("operators = %d %+v", rec.Code, ops)
	}

	rec = s.upload(t, "/api/reports/clientela", file, map[string]string{"date": "05/11/2025", "combined": "true", "format": "xlsx"})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate = %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "RAPPORTINI_CLIENTELA_05-11-2025.xlsx") {
		t.Errorf("disposition = %s", cd)
	}

	rec = s.upload(t, "/api/reports/clientela", file, map[string]string{"date": "05/11/2025", "operators": "ROSSI", "target": "storage", "path": "2025/11"})
	var stored domain.StoredReportResponse
	decode(t, rec, &stored)
	if rec.Code != http.StatusOK || stored.PDFPath != "2025/11/RAPPORTINI_CLIENTELA_05-11-2025_PDF.zip" {
		t.Errorf("store = %d %+v", rec.Code, stored)
	}
	if _, ok := s.store.objects["rapportini/"+stored.PDFPath]; !ok {
		t.Errorf("bundle not stored")
	}

	rec = s.upload(t, "/api/reports/fatture", file, map[string]string{"date": "05/11/2025", "combined": "true"})
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("unknown kind = %d", rec.Code)
	}
}
