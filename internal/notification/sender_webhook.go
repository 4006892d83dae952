package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hookline/hookline/internal/common/logger"
)

// WebhookSender delivers the event context as a JSON document to the
// notification's HTTP endpoint.
type WebhookSender struct {
	client *http.Client
	logger *logger.Logger
}

func NewWebhookSender(log *logger.Logger) *WebhookSender {
	return &WebhookSender{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log.WithFields(zap.String("component", "webhook-sender")),
	}
}

func (s *WebhookSender) Send(ctx context.Context, n *Notification, vars map[string]string) error {
	body, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint responded with status %d", resp.StatusCode)
	}

	s.logger.Debug("Webhook notification sent", zap.String("notification", n.Name))
	return nil
}
