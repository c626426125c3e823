package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"fieldops-server/internal/config"
	"fieldops-server/internal/logging"
)

func render(t *testing.T, msg *Message) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := buildMessage("noreply@example.com", msg).WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	return buf.String()
}

func TestBuildMessage_Headers(t *testing.T) {
	out := render(t, &Message{
		FromName: "Alerts",
		To:       []string{"a@example.com", "b@example.com"},
		CC:       []string{"c@example.com"},
		ReplyTo:  "ops@example.com",
		Subject:  "Report",
		Text:     "hello",
	})

	for _, want := range []string{
		"From: \"Alerts\" <noreply@example.com>",
		"To: a@example.com, b@example.com",
		"Cc: c@example.com",
		"Reply-To: ops@example.com",
		"Subject: Report",
		"hello",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestBuildMessage_AlternativeAndAttachment(t *testing.T) {
	out := render(t, &Message{
		To:      []string{"a@example.com"},
		Subject: "Report",
		Text:    "plain",
		HTML:    "<b>rich</b>",
		Attachments: []Attachment{{
			Filename:    "scadenze.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        []byte("xlsx-bytes"),
		}},
	})

	for _, want := range []string{
		"multipart/alternative",
		"text/html",
		"scadenze.xlsx",
		"spreadsheetml.sheet",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if strings.Contains(out, "Cc:") {
		t.Error("unexpected Cc header")
	}
}

func TestMailService_SendWithoutRecipients(t *testing.T) {
	svc := NewMailService(config.SMTPConfig{Host: "localhost", Port: 2525}, logging.Discard())

	err := svc.Send(context.Background(), &Message{Subject: "x"})
	if !errors.Is(err, ErrNoRecipients) {
		t.Errorf("Send() error = %v, want ErrNoRecipients", err)
	}
}

func TestMailService_SendCancelled(t *testing.T) {
	svc := NewMailService(config.SMTPConfig{Host: "localhost", Port: 2525}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Send(ctx, &Message{To: []string{"a@example.com"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Send() error = %v, want context.Canceled", err)
	}
}
