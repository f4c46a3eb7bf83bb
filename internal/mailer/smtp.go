package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Encryption string // "ssl", "starttls" or empty
}

// dialer is the part of gomail.Dialer the sender uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends verification codes over SMTP.
type SMTP struct {
	from string
	d    dialer
	log  *zap.Logger
}

// NewSMTP validates cfg and builds an SMTP sender.
func NewSMTP(cfg SMTPConfig, log *zap.Logger) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, fmt.Errorf("smtp host, port and from address must be configured")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		d.SSL = true
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return &SMTP{from: cfg.From, d: d, log: log.Named("mailer.smtp")}, nil
}

func verificationMessage(from string, v Verification) *gomail.Message {
	name := v.UserName
	if name == "" {
		name = "there"
	}
	minutes := int(v.TTL.Minutes())

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", v.ToEmail)
	m.SetHeader("Subject", "Your Grader Market verification code")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour verification code is %s.\nIt expires in %d minutes.\n\nIf you did not try to sign in, ignore this e-mail.\n",
		name, v.Code, minutes))
	m.AddAlternative("text/html", fmt.Sprintf(
		"<p>Hello %s,</p><p>Your verification code is <b>%s</b>.</p><p>It expires in %d minutes.</p>",
		name, v.Code, minutes))
	return m
}

func (s *SMTP) SendVerification(ctx context.Context, v Verification) error {
	m := verificationMessage(s.from, v)

	done := make(chan error, 1)
	go func() { done <- s.d.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			s.log.Error("smtp send failed", zap.String("toEmail", v.ToEmail), zap.Error(err))
			return fmt.Errorf("smtp send: %w", err)
		}
	}
	s.log.Info("verification e-mail sent", zap.String("toEmail", v.ToEmail))
	return nil
}
