package mail

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fieldops-server/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("no recipients")

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a transport-agnostic outgoing email. HTML is optional and is
// sent as an alternative part to Text.
type Message struct {
	FromName    string
	To          []string
	CC          []string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type MailService struct {
	dialer *gomail.Dialer
	from   string
	logger *logrus.Logger
}

func NewMailService(cfg config.SMTPConfig, logger *logrus.Logger) *MailService {
	return &MailService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.User,
		logger: logger,
	}
}

func (m *MailService) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	message := buildMessage(m.from, msg)
	if err := m.dialer.DialAndSend(message); err != nil {
		m.logger.WithFields(logrus.Fields{
			"subject": msg.Subject,
			"to":      msg.To,
		}).WithError(err).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"subject":     msg.Subject,
		"recipients":  len(msg.To) + len(msg.CC),
		"attachments": len(msg.Attachments),
	}).Info("Email sent")
	return nil
}

func buildMessage(from string, msg *Message) *gomail.Message {
	message := gomail.NewMessage()
	if msg.FromName != "" {
		message.SetAddressHeader("From", from, msg.FromName)
	} else {
		message.SetHeader("From", from)
	}
	message.SetHeader("To", msg.To...)
	if len(msg.CC) > 0 {
		message.SetHeader("Cc", msg.CC...)
	}
	if msg.ReplyTo != "" {
		message.SetHeader("Reply-To", msg.ReplyTo)
	}
	message.SetHeader("Subject", msg.Subject)

	message.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		message.AddAlternative("text/html", msg.HTML)
	}

	for _, att := range msg.Attachments {
		data := att.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		message.Attach(att.Filename, settings...)
	}

	return message
}
