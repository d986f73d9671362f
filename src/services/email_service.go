package services

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/username/spendwise/backend/src/config"
	"github.com/username/spendwise/backend/src/logger"
)

// NewEmailService returns an SMTP-backed sender when the config carries
// an SMTP server, otherwise a no-op sender so the rest of the app never
// has to care whether mail is configured.
func NewEmailService() EmailService {
	if config.Cfg.SMTPServer == "" {
		logger.L.Info("SMTP not configured, email delivery disabled")
		return &noopEmailService{}
	}
	return &smtpEmailService{
		host:     config.Cfg.SMTPServer,
		port:     config.Cfg.SMTPPort,
		user:     config.Cfg.SMTPUser,
		password: config.Cfg.SMTPPassword,
		sender:   config.Cfg.SenderEmail,
		name:     config.Cfg.SenderName,
	}
}

type smtpEmailService struct {
	host     string
	port     int
	user     string
	password string
	sender   string
	name     string
}

func (s *smtpEmailService) Send(to, subject, htmlBody string) error {
	from := s.sender
	if from == "" {
		from = s.user
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.name, from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}
	logger.L.Debug("Email sent", "to", to, "subject", subject)
	return nil
}

type noopEmailService struct{}

func (n *noopEmailService) Send(to, subject, htmlBody string) error {
	logger.L.Debug("Email delivery skipped (SMTP not configured)", "to", to, "subject", subject)
	return nil
}
