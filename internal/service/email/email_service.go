// internal/service/email/email_service.go
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Config carries SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailService sends plain-text mail over SMTP. When no host is configured
// sends become logged no-ops, so the engine runs without a mail relay in
// development.
type EmailService struct {
	cfg    Config
	logger *zap.Logger
}

func NewEmailService(cfg Config, logger *zap.Logger) *EmailService {
	return &EmailService{cfg: cfg, logger: logger}
}

// Send delivers a message to a single recipient.
func (s *EmailService) Send(to, subject, body string) error {
	if s.cfg.Host == "" {
		s.logger.Info("email delivery skipped: no SMTP host configured",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
