package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldops-server/internal/calendar"
	"fieldops-server/internal/config"
	"fieldops-server/internal/domain"
	"fieldops-server/internal/mail"
	"fieldops-server/internal/repository"
	"fieldops-server/internal/spreadsheet"

	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Upload stages reported on failure.
const (
	StageBucket = "bucket"
	StageUpload = "upload"
	StageList   = "list"
	StageVerify = "verify"
)

type EquipmentService struct {
	store  repository.ObjectStore
	mailer mail.Sender
	alerts config.AlertsConfig
	now    func() time.Time
	logger *logrus.Logger
}

func NewEquipmentService(store repository.ObjectStore, mailer mail.Sender, alerts config.AlertsConfig, logger *logrus.Logger) *EquipmentService {
	if alerts.Location == nil {
		alerts.Location = time.UTC
	}
	return &EquipmentService{
		store:  store,
		mailer: mailer,
		alerts: alerts,
		now:    time.Now,
		logger: logger,
	}
}

// Upload replaces the equipment master and checks it is readable back.
// Failures are *StageError naming the step that failed.
func (s *EquipmentService) Upload(ctx context.Context, data []byte) (*domain.UploadResult, error) {
	bucket, key := s.alerts.Bucket, s.alerts.MasterKey
	if len(data) == 0 {
		return nil, invalid("empty upload")
	}

	if err := s.store.EnsureBucket(ctx, bucket); err != nil {
		return nil, &StageError{Stage: StageBucket, Err: err}
	}
	if err := s.store.Put(ctx, bucket, key, xlsxContentType, data); err != nil {
		return nil, &StageError{Stage: StageUpload, Err: err}
	}

	found, err := s.store.Exists(ctx, bucket, key)
	if err != nil {
		return nil, &StageError{Stage: StageList, Err: err}
	}
	if !found {
		return nil, &StageError{Stage: StageVerify, Err: fmt.Errorf("Oggetto non trovato dopo upload: %s", key)}
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": bucket,
		"key":    key,
		"bytes":  len(data),
	}).Info("Equipment master uploaded")

	return &domain.UploadResult{OK: true, Bucket: bucket, Key: key}, nil
}

// Report reads the master and classifies every maintenance date that is
// overdue or due within the horizon, as of today in the alert time zone.
func (s *EquipmentService) Report(ctx context.Context) (*domain.ExpiryReport, error) {
	data, err := s.store.Get(ctx, s.alerts.Bucket, s.alerts.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("download master failed (bucket=%s key=%s): %w", s.alerts.Bucket, s.alerts.MasterKey, err)
	}

	wb, err := spreadsheet.Read(data, s.alerts.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read master: %w", err)
	}

	today := calendar.Civil(s.now(), s.alerts.Location)
	hits := spreadsheet.ExpiryHits(wb.Find(spreadsheet.MasterSheetHint), today, domain.ExpiryHorizonDays)
	return spreadsheet.Classify(today, hits), nil
}

// Scan runs the daily expiry alert. Unless force is set, it only proceeds
// at the configured hour when the hour gate is enabled.
func (s *EquipmentService) Scan(ctx context.Context, force bool) (*domain.ExpiryScanResult, error) {
	if s.alerts.EnforceHour && !force {
		hour := s.now().In(s.alerts.Location).Hour()
		if hour != s.alerts.Hour {
			s.logger.WithField("hour", hour).Debug("Expiry scan skipped outside alert hour")
			return &domain.ExpiryScanResult{OK: true, Skipped: fmt.Sprintf("hour=%d", hour)}, nil
		}
	}

	report, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}

	attachment, exported, err := spreadsheet.WriteExpiryWorkbook(report)
	if err != nil {
		return nil, fmt.Errorf("failed to build attachment: %w", err)
	}

	day := spreadsheet.FormatDMY(report.Today)
	msg := &mail.Message{
		FromName: s.alerts.FromName,
		To:       s.alerts.To,
		ReplyTo:  s.alerts.ReplyTo,
		Subject:  fmt.Sprintf("Scadenze attrezzature • %s • scadute + prossimi %d giorni", day, domain.ExpiryHorizonDays),
		Text:     ExpiryEmailBody(report),
		Attachments: []mail.Attachment{{
			Filename:    fmt.Sprintf("scadenze_%s.xlsx", strings.ReplaceAll(day, "/", "-")),
			ContentType: xlsxContentType,
			Data:        attachment,
		}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"total":    report.Total(),
		"overdue":  len(report.Overdue),
		"exported": exported,
	}).Info("Expiry alert sent")

	return &domain.ExpiryScanResult{
		OK:       true,
		Sent:     true,
		Total:    report.Total(),
		Overdue:  len(report.Overdue),
		Exported: exported,
	}, nil
}

// ExpiryEmailBody renders the plain text summary: overdue items first, then
// one section per day of the horizon.
func ExpiryEmailBody(report *domain.ExpiryReport) string {
	var lines []string
	lines = append(lines,
		fmt.Sprintf("Riepilogo scadenze attrezzature al %s — scadute + prossimi %d giorni",
			spreadsheet.FormatDMY(report.Today), domain.ExpiryHorizonDays),
		"Promemoria evidenziati a +1, +3, +7 giorni.",
		"",
		fmt.Sprintf("SCADUTE (prima di oggi): %d", len(report.Overdue)),
	)
	for _, h := range report.Overdue {
		lines = append(lines, fmt.Sprintf(
			" - [SCADUTO da %dg] [%s] col: “%s” | %s | %s %s | Matricola: %s | Codice: %s | Assegnato: %s | Data: %s",
			-h.Offset, h.Type, h.Column, h.Category, h.Description, h.Model, h.Serial, h.Code, h.Assignee,
			spreadsheet.FormatDMY(h.Date)))
	}
	lines = append(lines, "")

	for d, bucket := range report.Buckets {
		ref := spreadsheet.FormatDMY(report.Today.AddDate(0, 0, d))
		header := fmt.Sprintf("%d giorni → %s", d, ref)
		if d == 0 {
			header = "OGGI " + ref
		}
		flag := ""
		if domain.IsReminderOffset(d) {
			flag = " • PROMEMORIA"
		}
		lines = append(lines, fmt.Sprintf("%s: %d elemento/i%s", header, len(bucket), flag))
		for _, h := range bucket {
			lines = append(lines, fmt.Sprintf(
				" - [%s] %s | %s %s | Matricola: %s | Codice: %s | Assegnato: %s | Scadenza: %s",
				h.Type, h.Category, h.Description, h.Model, h.Serial, h.Code, h.Assignee,
				spreadsheet.FormatDMY(h.Date)))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
