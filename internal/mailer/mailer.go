package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPSender posts messages to a Resend compatible API.
type HTTPSender struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

func NewHTTPSender(cfg internal.EmailConfig) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &HTTPSender{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		from:   from,
		client: &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(sendRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// LogSender only logs; it stands in when no API key is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email delivery disabled, message dropped", "to", msg.To, "subject", msg.Subject)
	return nil
}

// NewSender picks the HTTP sender when an API key is present.
func NewSender(cfg internal.EmailConfig, logger *slog.Logger) Sender {
	if cfg.APIKey == "" || cfg.APIURL == "" {
		logger.Warn("email api key not configured, using log-only sender")
		return NewLogSender(logger)
	}
	return NewHTTPSender(cfg)
}
