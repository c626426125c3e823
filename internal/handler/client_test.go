package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/logging"
	"fieldops-server/pkg/calendarclient"

	"github.com/xuri/excelize/v2"
)

func masterWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "ATTREZZATURA")
	rows := [][]interface{}{
		{"CODICE", "CATEGORIA", "DESCRIZIONE", "MODELLO", "MATRICOLA", "ASSEGNATO", "MENSILE", "COLLAUDO"},
		{"C1", "Scale", "Scala", "S3", "M1", "Rossi", "01/01/2099", "01/01/2099"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("ATTREZZATURA", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// TestClientAgainstRouter drives the calendar client through the production
// router so both sides agree on paths, methods and bodies.
func TestClientAgainstRouter(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	rec := s.do(t, http.MethodPost, "/api/admin/users", domain.RoleAdmin, map[string]string{
		"username": "pianificatore", "password": "password123", "role": "editor",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user = %d %s", rec.Code, rec.Body.String())
	}

	ctx := context.Background()
	client := calendarclient.New(srv.URL, calendarclient.WithLogger(logging.Discard()))
	login, err := client.SignIn(ctx, "pianificatore", "password123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if login.AccessToken == "" {
		t.Fatal("empty access token")
	}

	dayID, err := client.OpenDay(ctx, "2025-03-10")
	if err != nil {
		t.Fatalf("OpenDay() error = %v", err)
	}

	// a fresh client for the same date resolves the conflict to the same row
	other := calendarclient.New(srv.URL, calendarclient.WithToken(s.tokens[domain.RoleEditor]))
	otherID, err := other.OpenDay(ctx, "2025-03-10")
	if err != nil || otherID != dayID {
		t.Fatalf("second OpenDay() = %q, %v; want %q", otherID, err, dayID)
	}

	note := "cantiere nord"
	saved, err := client.SaveDayNote(ctx, "2025-03-10", &note)
	if err != nil {
		t.Fatalf("SaveDayNote() error = %v", err)
	}
	if saved.Version != 2 {
		t.Errorf("saved version = %d, want 2", saved.Version)
	}

	stale := "vecchia nota"
	_, err = other.SaveDayNote(ctx, "2025-03-10", &stale)
	var apiErr *calendarclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("stale SaveDayNote() error = %v, want 409", err)
	}
	if day, _ := other.Cache().Day("2025-03-10"); day == nil || day.Version != 2 {
		t.Errorf("conflict did not refresh the cached row: %+v", day)
	}

	notes := "sopralluogo"
	client.CreateAssignment(&domain.CreateAssignmentRequest{DayID: dayID, Notes: &notes})
	client.Wait()

	resp, err := client.LoadRange(ctx, "2025-03-10", "2025-03-16")
	if err != nil {
		t.Fatalf("LoadRange() error = %v", err)
	}
	if len(resp.Days) != 7 || len(resp.Days[0].Assignments) != 1 {
		t.Fatalf("range = %+v", resp.Days[0])
	}
	created := resp.Days[0].Assignments[0]
	if strings.HasPrefix(created.ID, "tmp-") {
		t.Errorf("provisional id reached the server: %s", created.ID)
	}

	if err := client.DeleteAssignment(ctx, created.ID); err != nil {
		t.Fatalf("DeleteAssignment() error = %v", err)
	}
	if refreshed, err := client.Refresh(ctx); err != nil || !refreshed {
		t.Fatalf("Refresh() = %v, %v", refreshed, err)
	}
	if got := client.Cache().Assignments(dayID); len(got) != 0 {
		t.Errorf("assignments after delete = %d", len(got))
	}

	csv, err := client.ExportCSV(ctx, "2025-03-01", "2025-03-31")
	if err != nil || !strings.HasPrefix(string(csv), "Data,Operatore") {
		t.Errorf("ExportCSV() = %q, %v", csv, err)
	}

	if _, err := client.UploadEquipmentMaster(ctx, masterWorkbook(t)); err != nil {
		t.Fatalf("UploadEquipmentMaster() error = %v", err)
	}
	scan, err := client.TriggerExpiryScan(ctx, true)
	if err != nil {
		t.Fatalf("TriggerExpiryScan() error = %v", err)
	}
	if !scan.OK || !scan.Sent || scan.Total != 0 {
		t.Errorf("scan = %+v", scan)
	}
	if len(s.sender.sent) != 1 {
		t.Errorf("alerts sent = %d, want 1", len(s.sender.sent))
	}
}

func TestExpiryScan_AcceptsGetOnly(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/equipment/expiry-scan", nil)
	req.Header.Set("X-Cron-Key", "cron-secret")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestClientAgainstRouter_Unauthorized(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	client := calendarclient.New(srv.URL, calendarclient.WithTimeout(5*time.Second))
	_, err := client.LoadRange(context.Background(), "2025-03-10", "2025-03-16")

	var apiErr *calendarclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("LoadRange() error = %v, want 401", err)
	}
}
