// Package outbound provides the HTTP client for the delivery sink, the
// gateway that carries outbound messages to the channel providers.
package outbound

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/logger"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type sinkRequest struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Text    string `json:"text"`
}

// NewClient builds a sink client from configuration. Without a sink URL it
// returns nil; a nil client absorbs sends, which keeps development
// environments working without a gateway.
func NewClient(cfg config.OutboundConfig, log *logger.Logger) *Client {
	if cfg.GetOutboundSinkURL() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetOutboundSinkURL(), "/"),
		apiKey:  cfg.GetOutboundSinkKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// SendMessage posts one outbound message to the sink. The address is the
// channel-native external id, already normalized when the identity was
// stored.
func (c *Client) SendMessage(ctx context.Context, channel, to, text string) error {
	if c == nil {
		return nil
	}

	payload := sinkRequest{
		Channel: channel,
		To:      to,
		Text:    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sink payload: %w", err)
	}

	url := fmt.Sprintf("%s/messages", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sink request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delivery sink returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("outbound message delivered to sink", "channel", channel, "to", to)
	return nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
