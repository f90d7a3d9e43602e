// Package notification delivers fused-decision transitions to external
// channels (webhooks, logs).
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level    AlertLevel      `json:"level"`
	Symbol   string          `json:"symbol,omitempty"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	State    model.State     `json:"state,omitempty"`
	Previous model.State     `json:"previous,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// DecisionAlert describes a fused-decision transition. GREEN is reported
// at INFO, a drop from GREEN at WARNING.
func DecisionAlert(symbol string, prev model.State, msg model.SnapshotMessage) Alert {
	level := AlertInfo
	if prev == model.StateGreen && msg.Decision.State != model.StateGreen {
		level = AlertWarning
	}
	from := string(prev)
	if from == "" {
		from = "none"
	}
	return Alert{
		Level:    level,
		Symbol:   symbol,
		Title:    fmt.Sprintf("%s decision %s -> %s", symbol, from, msg.Decision.State),
		Message:  msg.Decision.Explanation,
		State:    msg.Decision.State,
		Previous: prev,
		Data:     msg.JSON(),
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Component("notify")}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.Info(alert.Title, "level", alert.Level, "message", alert.Message)
	return nil
}
