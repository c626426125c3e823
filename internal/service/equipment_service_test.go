package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fieldops-server/internal/config"
	"fieldops-server/internal/domain"
	"fieldops-server/internal/logging"

	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName() error = %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf.Bytes()
}

func testAlerts() config.AlertsConfig {
	return config.AlertsConfig{
		To:          []string{"ops@example.com"},
		ReplyTo:     "ufficio@example.com",
		FromName:    "Alert Scadenze",
		EnforceHour: true,
		Hour:        7,
		Location:    time.UTC,
		Bucket:      "attrezzature",
		MasterKey:   "attrezzature.xlsx",
	}
}

func newEquipmentServiceForTest(now time.Time) (*EquipmentService, *mockObjectStore, *mockMailer) {
	store := newMockObjectStore()
	mailer := &mockMailer{}
	svc := NewEquipmentService(store, mailer, testAlerts(), logging.Discard())
	svc.now = func() time.Time { return now }
	return svc, store, mailer
}

func TestEquipmentService_Upload(t *testing.T) {
	svc, store, _ := newEquipmentServiceForTest(time.Now())

	res, err := svc.Upload(context.Background(), []byte("xlsx"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !res.OK || res.Key != "attrezzature.xlsx" {
		t.Errorf("result = %+v", res)
	}
	if _, ok := store.objects["attrezzature/attrezzature.xlsx"]; !ok {
		t.Errorf("object not stored")
	}
}

func TestEquipmentService_Upload_Stages(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockObjectStore)
		stage string
	}{
		{"bucket", func(m *mockObjectStore) { m.bucketErr = errBackend }, StageBucket},
		{"upload", func(m *mockObjectStore) { m.putErr = errBackend }, StageUpload},
		{"list", func(m *mockObjectStore) { m.existsErr = errBackend }, StageList},
		{"verify", func(m *mockObjectStore) { m.dropPuts = true }, StageVerify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newEquipmentServiceForTest(time.Now())
			tt.setup(store)

			_, err := svc.Upload(context.Background(), []byte("xlsx"))
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				t.Fatalf("error = %v, want *StageError", err)
			}
			if stageErr.Stage != tt.stage {
				t.Errorf("stage = %s, want %s", stageErr.Stage, tt.stage)
			}
		})
	}
}

func TestEquipmentService_Scan_OutsideHour(t *testing.T) {
	svc, _, mailer := newEquipmentServiceForTest(time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC))

	res, err := svc.Scan(context.Background(), false)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Skipped != "hour=9" || res.Sent {
		t.Errorf("result = %+v", res)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("mail sent outside the alert hour")
	}
}

func TestEquipmentService_Scan(t *testing.T) {
	svc, store, mailer := newEquipmentServiceForTest(time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC))
	store.objects["attrezzature/attrezzature.xlsx"] = buildXLSX(t, "ATTREZZATURA", [][]interface{}{
		{"CODICE", "CATEGORIA", "DESCRIZIONE", "MODELLO", "MATRICOLA", "ASSEGNATO", "MENSILE", "COLLAUDO"},
		{"C1", "Scale", "Scala", "S3", "M1", "Rossi", "10/03/2025", "01/01/2026"},
		{"C2", "Gas", "Rilevatore", "G1", "M2", "Bianchi", "01/03/2025", "11/03/2025"},
	})

	// force bypasses the hour gate
	res, err := svc.Scan(context.Background(), true)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !res.Sent || res.Total != 3 || res.Overdue != 1 || res.Exported != 3 {
		t.Errorf("result = %+v", res)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.Subject != "Scadenze attrezzature • 10/03/2025 • scadute + prossimi 7 giorni" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.ReplyTo != "ufficio@example.com" || msg.FromName != "Alert Scadenze" {
		t.Errorf("message = %+v", msg)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "scadenze_10-03-2025.xlsx" {
		t.Errorf("attachments = %+v", msg.Attachments)
	}
	if !strings.Contains(msg.Text, "SCADUTE (prima di oggi): 1") {
		t.Errorf("body missing overdue count:\n%s", msg.Text)
	}
}

func TestEquipmentService_Scan_MissingMaster(t *testing.T) {
	svc, _, mailer := newEquipmentServiceForTest(time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC))

	if _, err := svc.Scan(context.Background(), false); err == nil {
		t.Fatal("Scan() should fail without a master file")
	}
	if len(mailer.sent) != 0 {
		t.Errorf("mail sent on failure")
	}
}

func TestExpiryEmailBody(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	report := &domain.ExpiryReport{Today: today}
	report.Overdue = []domain.ExpiryHit{{
		Date: today.AddDate(0, 0, -9), Offset: -9, Type: "MENSILE", Column: "MENSILE",
		Category: "Gas", Description: "Rilevatore", Model: "G1", Serial: "M2", Code: "C2", Assignee: "Bianchi",
	}}
	report.Buckets[1] = []domain.ExpiryHit{{
		Date: today.AddDate(0, 0, 1), Offset: 1, Type: "COLLAUDO",
		Category: "Gas", Description: "Rilevatore", Model: "G1", Serial: "M2", Code: "C2", Assignee: "Bianchi",
	}}

	body := ExpiryEmailBody(report)
	lines := strings.Split(body, "\n")

	if lines[0] != "Riepilogo scadenze attrezzature al 10/03/2025 — scadute + prossimi 7 giorni" {
		t.Errorf("line 0 = %q", lines[0])
	}
	wantLines := []string{
		"SCADUTE (prima di oggi): 1",
		" - [SCADUTO da 9g] [MENSILE] col: “MENSILE” | Gas | Rilevatore G1 | Matricola: M2 | Codice: C2 | Assegnato: Bianchi | Data: 01/03/2025",
		"OGGI 10/03/2025: 0 elemento/i",
		"1 giorni → 11/03/2025: 1 elemento/i • PROMEMORIA",
		" - [COLLAUDO] Gas | Rilevatore G1 | Matricola: M2 | Codice: C2 | Assegnato: Bianchi | Scadenza: 11/03/2025",
		"2 giorni → 12/03/2025: 0 elemento/i",
		"7 giorni → 17/03/2025: 0 elemento/i • PROMEMORIA",
	}
	for _, want := range wantLines {
		found := false
		for _, l := range lines {
			if l == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("body missing line %q\n%s", want, body)
		}
	}
}
