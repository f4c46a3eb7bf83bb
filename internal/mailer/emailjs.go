package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultEmailJSURL is the public EmailJS REST endpoint.
const DefaultEmailJSURL = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSConfig holds the account identifiers of an EmailJS template.
type EmailJSConfig struct {
	URL        string // empty means DefaultEmailJSURL
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string // optional access token
}

// EmailJS sends verification codes through an EmailJS template that accepts
// to_email, verification_code and user_name.
type EmailJS struct {
	cfg    EmailJSConfig
	client *http.Client
	log    *zap.Logger
}

// NewEmailJS creates an EmailJS sender.
func NewEmailJS(cfg EmailJSConfig, log *zap.Logger) *EmailJS {
	if cfg.URL == "" {
		cfg.URL = DefaultEmailJSURL
	}
	return &EmailJS{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.Named("mailer.emailjs"),
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func (s *EmailJS) SendVerification(ctx context.Context, v Verification) error {
	payload, err := json.Marshal(emailJSRequest{
		ServiceID:   s.cfg.ServiceID,
		TemplateID:  s.cfg.TemplateID,
		UserID:      s.cfg.PublicKey,
		AccessToken: s.cfg.PrivateKey,
		TemplateParams: map[string]string{
			"to_email":          v.ToEmail,
			"verification_code": v.Code,
			"user_name":         v.UserName,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal emailjs payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("emailjs request failed", zap.Error(err))
		return fmt.Errorf("emailjs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.log.Error("emailjs rejected message",
			zap.Int("statusCode", resp.StatusCode), zap.ByteString("body", body))
		return fmt.Errorf("emailjs status %d: %s", resp.StatusCode, body)
	}
	s.log.Info("verification e-mail sent", zap.String("toEmail", v.ToEmail))
	return nil
}
