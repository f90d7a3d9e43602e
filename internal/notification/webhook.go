package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookNotifier POSTs decision transitions as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// decisionEvent is the webhook body. Alerts without a state are sent as
// plain "alert" events.
type decisionEvent struct {
	Event       string          `json:"event"`
	Symbol      string          `json:"symbol,omitempty"`
	Level       AlertLevel      `json:"level"`
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	Summary     string          `json:"summary"`
	Explanation string          `json:"explanation,omitempty"`
	Snapshot    json.RawMessage `json:"snapshot,omitempty"`
	SentAt      string          `json:"sent_at"`
}

func (w *WebhookNotifier) event(alert Alert) decisionEvent {
	ev := decisionEvent{
		Event:       "alert",
		Symbol:      alert.Symbol,
		Level:       alert.Level,
		Summary:     alert.Title,
		Explanation: alert.Message,
		Snapshot:    alert.Data,
		SentAt:      w.now().UTC().Format(time.RFC3339Nano),
	}
	if alert.State != "" {
		ev.Event = "decision_changed"
		ev.To = string(alert.State)
		ev.From = string(alert.Previous)
		if ev.From == "" {
			ev.From = "none"
		}
	}
	return ev
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(w.event(alert))
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event", "decision")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send %s: %w", alert.Symbol, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
