package impl

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"admin-auth/internal/service"
)

var _ service.OtpSender = (*SMTPOtpSender)(nil)

// SMTPOtpSender delivers passcodes over plain SMTP. net/smtp is used
// directly; the message is a minimal text mail.
type SMTPOtpSender struct {
	addr string // host:port
	host string
	from string
	auth smtp.Auth
}

func NewSMTPOtpSender(addr, host, from, username, password string) *SMTPOtpSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPOtpSender{addr: addr, host: host, from: from, auth: auth}
}

func (s *SMTPOtpSender) Deliver(_ context.Context, email, code string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your login code\r\n\r\nYour one-time login code is %s. It expires in 10 minutes.\r\n",
		s.from, email, code,
	)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

var _ service.OtpSender = (*DevOtpSender)(nil)

// DevOtpSender logs the passcode instead of sending it. Local development
// only; main wires the SMTP sender whenever SMTP_ADDR is configured.
type DevOtpSender struct{}

func (DevOtpSender) Deliver(_ context.Context, email, code string) error {
	slog.Warn("otp delivery not configured, logging code", "email", email, "code", code)
	return nil
}
