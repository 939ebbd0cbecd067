package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/logger"
)

// WebhookSender posts notices as JSON to the configured webhook URL.
type WebhookSender struct {
	url  string
	http *http.Client
	log  *logger.Logger
}

// NewWebhookSender builds a sender from configuration. Without a webhook URL
// it returns nil and the module stays quiet.
func NewWebhookSender(cfg config.NotifyConfig, log *logger.Logger) *WebhookSender {
	if cfg.GetNotifyWebhookURL() == "" {
		return nil
	}

	return &WebhookSender{
		url:  cfg.GetNotifyWebhookURL(),
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

// Send posts one notice. Any non-2xx answer is an error; the bus logs it and
// moves on, webhook delivery is best effort.
func (s *WebhookSender) Send(ctx context.Context, notice LeadChangeNotice) error {
	if s == nil {
		return nil
	}

	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal lead change notice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	s.log.Debug("lead change notice delivered", "customerId", notice.CustomerID)
	return nil
}
