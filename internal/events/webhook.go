package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookPublisher POSTs each event as JSON to a fixed endpoint. There is
// one attempt per event.
type WebhookPublisher struct {
	Endpoint string
	client   *http.Client
}

// NewWebhookPublisher creates a publisher for endpoint. A zero timeout
// means 10s.
func NewWebhookPublisher(endpoint string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookPublisher{
		Endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type webhookEnvelope struct {
	Topic string `json:"topic"`
	Event any    `json:"event"`
}

func (p *WebhookPublisher) Publish(ctx context.Context, topic string, event any) error {
	body, err := json.Marshal(webhookEnvelope{Topic: topic, Event: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Poe-Topic", topic)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
