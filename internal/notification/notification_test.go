package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

func TestDecisionAlert(t *testing.T) {
	msg := model.SnapshotMessage{
		Type:       model.MsgSnapshot,
		FinalState: model.StateGreen,
		Decision:   model.FusedDecision{State: model.StateRed, Explanation: "statistically unsupported"},
	}
	a := DecisionAlert("EUR/USD", model.StateGreen, msg)
	assert.Equal(t, AlertWarning, a.Level)
	assert.Equal(t, "EUR/USD", a.Symbol)
	assert.Equal(t, "EUR/USD decision GREEN -> RED", a.Title)
	assert.Equal(t, "statistically unsupported", a.Message)
	assert.JSONEq(t, string(msg.JSON()), string(a.Data))

	first := DecisionAlert("EUR/USD", "", msg)
	assert.Equal(t, AlertInfo, first.Level)
	assert.Equal(t, "EUR/USD decision none -> RED", first.Title)
}

func TestWebhookNotifier_SendsDecisionTransition(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "decision", r.Header.Get("X-Event"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	msg := model.SnapshotMessage{
		Type:       model.MsgSnapshot,
		FinalState: model.StateGreen,
		Decision:   model.FusedDecision{State: model.StateGreen, Explanation: "historically supported"},
		TS:         1700000000000,
	}
	n := NewWebhookNotifier(srv.URL)
	n.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, n.Send(context.Background(), DecisionAlert("EUR/USD", model.StateYellow, msg)))

	assert.Equal(t, "decision_changed", got["event"])
	assert.Equal(t, "EUR/USD", got["symbol"])
	assert.Equal(t, "YELLOW", got["from"])
	assert.Equal(t, "GREEN", got["to"])
	assert.Equal(t, "INFO", got["level"])
	assert.Equal(t, "EUR/USD decision YELLOW -> GREEN", got["summary"])
	assert.Equal(t, "historically supported", got["explanation"])
	assert.Equal(t, "2026-03-02T09:00:00Z", got["sent_at"])
	snap, ok := got["snapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1700000000000), snap["ts"])
}

func TestWebhookNotifier_PlainAlert(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Level: AlertCritical, Title: "feed down"})
	require.NoError(t, err)
	assert.Equal(t, "alert", got["event"])
	assert.Equal(t, "CRITICAL", got["level"])
	assert.NotContains(t, got, "from")
	assert.NotContains(t, got, "to")
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "t"})
	assert.ErrorContains(t, err, "502")
}

type recorder struct {
	mu    sync.Mutex
	sent  []Alert
	fail  bool
	delay chan struct{}
}

func (r *recorder) Send(ctx context.Context, a Alert) error {
	if r.delay != nil {
		<-r.delay
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, a)
	if r.fail {
		return errors.New("down")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestDispatcher_DeliversToAll(t *testing.T) {
	ok, bad := &recorder{}, &recorder{fail: true}
	d := NewDispatcher(4, ok, bad)

	var mu sync.Mutex
	var errs int
	d.OnError = func(error) { mu.Lock(); errs++; mu.Unlock() }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.True(t, d.Notify(Alert{Title: "a"}))
	require.True(t, d.Notify(Alert{Title: "b"}))

	require.Eventually(t, func() bool { return ok.count() == 2 && bad.count() == 2 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 2, errs)
	mu.Unlock()
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, &recorder{})
	assert.True(t, d.Notify(Alert{Title: "a"}))
	assert.False(t, d.Notify(Alert{Title: "b"}), "no consumer running, queue of one is full")
}
