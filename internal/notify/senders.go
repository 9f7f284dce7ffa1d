package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aguntuk/jobora/internal/model"
)

// Ensure both senders cover every channel.
var (
	_ model.EmailSender = (*LogSender)(nil)
	_ model.PushSender  = (*LogSender)(nil)
	_ model.SMSSender   = (*LogSender)(nil)
	_ model.EmailSender = (*WebhookSender)(nil)
	_ model.PushSender  = (*WebhookSender)(nil)
	_ model.SMSSender   = (*WebhookSender)(nil)
)

// LogSender writes notifications to the log instead of delivering them.
// Used when a channel has no transport configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, _, text string) error {
	s.logger.Info("email (log only)", "to", to, "subject", subject, "body", text)
	return nil
}

func (s *LogSender) SendPush(_ context.Context, userID, title, body, url string) error {
	s.logger.Info("push (log only)", "user_id", userID, "title", title, "body", body, "url", url)
	return nil
}

func (s *LogSender) SendSMS(_ context.Context, phone, message string) error {
	s.logger.Info("sms (log only)", "phone", phone, "message", message)
	return nil
}

// WebhookSender hands payloads to an external delivery service over HTTP.
// The service confirms synchronously: any non-2xx response is a rejection.
type WebhookSender struct {
	endpoint   string
	httpClient *http.Client
}

// NewWebhookSender returns a sender posting JSON payloads to endpoint.
func NewWebhookSender(endpoint string, httpClient *http.Client) *WebhookSender {
	return &WebhookSender{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

func (s *WebhookSender) SendEmail(ctx context.Context, to, subject, html, text string) error {
	return s.post(ctx, map[string]string{
		"type":    "email",
		"to":      to,
		"subject": subject,
		"html":    html,
		"text":    text,
	})
}

func (s *WebhookSender) SendPush(ctx context.Context, userID, title, body, url string) error {
	return s.post(ctx, map[string]string{
		"type":    "push",
		"user_id": userID,
		"title":   title,
		"body":    body,
		"url":     url,
	})
}

func (s *WebhookSender) SendSMS(ctx context.Context, phone, message string) error {
	return s.post(ctx, map[string]string{
		"type":    "sms",
		"phone":   phone,
		"message": message,
	})
}

func (s *WebhookSender) post(ctx context.Context, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", payload["type"], err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", payload["type"], err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", payload["type"], err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &model.HTTPError{StatusCode: resp.StatusCode}
	}
	return nil
}
