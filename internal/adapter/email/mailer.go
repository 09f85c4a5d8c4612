// Package email provides the SMTP implementation of the mailer port.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/archsaint/storefront/internal/config"
)

// Mailer sends HTML email via SMTP.
type Mailer struct {
	cfg config.SMTP
}

// New creates a new SMTP mailer.
func New(cfg config.SMTP) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send sends an HTML email.
func (m *Mailer) Send(_ context.Context, to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, to, subject, htmlBody)

	var auth smtp.Auth
	if m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
