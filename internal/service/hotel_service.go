package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"fieldops-server/internal/config"
	"fieldops-server/internal/domain"
	mailer "fieldops-server/internal/mail"
	"fieldops-server/internal/repository"

	"github.com/sirupsen/logrus"
)

var hotelHTML = template.Must(template.New("hotel").Parse(`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;font-size:14px;line-height:1.5">
  <p>Gentile Hotel,</p>
  <p>si richiede disponibilità per il seguente periodo:</p>
  <table style="border-collapse:collapse">
    <tr><td style="padding:4px 8px;border:1px solid #ddd">Periodo</td><td style="padding:4px 8px;border:1px solid #ddd"><b>{{.PeriodStart}}</b> → <b>{{.PeriodEnd}}</b></td></tr>
    <tr><td style="padding:4px 8px;border:1px solid #ddd">Tipologie camere</td><td style="padding:4px 8px;border:1px solid #ddd">{{.RoomTypes}}</td></tr>
    {{- if .Note}}
    <tr><td style="padding:4px 8px;border:1px solid #ddd">Note</td><td style="padding:4px 8px;border:1px solid #ddd">{{.Note}}</td></tr>
    {{- end}}
  </table>
  <p style="margin-top:12px">Cordiali saluti,<br/>{{.Signature}}</p>
</div>
`))

type HotelService struct {
	mailer mailer.Sender
	audit  repository.AuditRepository
	cfg    config.HotelConfig
	logger *logrus.Logger
}

func NewHotelService(sender mailer.Sender, audit repository.AuditRepository, cfg config.HotelConfig, logger *logrus.Logger) *HotelService {
	return &HotelService{mailer: sender, audit: audit, cfg: cfg, logger: logger}
}

// RequestAvailability mails a room availability request to the selected
// hotels, with the configured CC and reply-to.
func (s *HotelService) RequestAvailability(ctx context.Context, actor *string, req *domain.HotelBookingRequest) error {
	if len(req.To) == 0 {
		return invalid("Destinatari mancanti")
	}
	for _, addr := range req.To {
		if _, err := mail.ParseAddress(addr); err != nil {
			return invalid("indirizzo non valido: %s", addr)
		}
	}

	msg, err := s.buildMessage(req)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, actor, "hotel_booking_request", "hotel_booking", "", req); err != nil {
			s.logger.WithError(err).Warn("Failed to audit hotel booking request")
		}
	}
	s.logger.WithFields(logrus.Fields{
		"recipients": len(req.To),
		"period":     req.PeriodStart + " " + req.PeriodEnd,
	}).Info("Hotel availability request sent")
	return nil
}

func (s *HotelService) buildMessage(req *domain.HotelBookingRequest) (*mailer.Message, error) {
	note := req.Note
	if note == "" {
		note = "Nessuna nota"
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Gentile Hotel,\n\nsi richiede disponibilità per il seguente periodo:\n\n")
	fmt.Fprintf(&text, "Periodo: %s → %s\n", req.PeriodStart, req.PeriodEnd)
	fmt.Fprintf(&text, "Tipologie camere: %s\n", req.RoomTypes)
	fmt.Fprintf(&text, "Note: %s\n\n", note)
	fmt.Fprintf(&text, "Cordiali saluti,\n%s\n", s.cfg.Signature)

	var html bytes.Buffer
	err := hotelHTML.Execute(&html, struct {
		*domain.HotelBookingRequest
		Signature string
	}{req, s.cfg.Signature})
	if err != nil {
		return nil, fmt.Errorf("failed to render hotel request: %w", err)
	}

	return &mailer.Message{
		FromName: s.cfg.FromName,
		To:       req.To,
		CC:       s.cfg.CC,
		ReplyTo:  s.cfg.ReplyTo,
		Subject:  fmt.Sprintf("Richiesta disponibilità camere (%s → %s)", req.PeriodStart, req.PeriodEnd),
		Text:     text.String(),
		HTML:     html.String(),
	}, nil
}
