// Package mailer dispatches the signup workflow's email notifications.
package mailer

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("message %q has no recipients", msg.Subject)
	}
	if msg.From == "" {
		msg.From = s.cfg.From
	}

	// No SMTP host configured: development mode, print instead of sending.
	if s.cfg.Host == "" {
		log.Printf("[mailer] to=%s subject=%q\n%s", strings.Join(msg.To, ","), msg.Subject, msg.Body)
		return nil
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, msg.From, msg.To, buildMessage(msg)); err != nil {
		return fmt.Errorf("send %q: %w", msg.Subject, err)
	}
	return nil
}

// buildMessage renders RFC 822 headers followed by a plain text body.
func buildMessage(msg Message) []byte {
	headers := []string{
		"From: " + msg.From,
		"To: " + strings.Join(msg.To, ", "),
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		msg.Body,
	}
	return []byte(strings.Join(headers, "\r\n"))
}
