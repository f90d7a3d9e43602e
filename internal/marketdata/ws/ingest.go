// Package ws streams price ticks from the upstream WebSocket feed.
//
// The feed sends JSON price events:
//
//	{"event":"price","symbol":"EUR/USD","price":1.0842,"timestamp":1700000000}
//
// Any other event, a missing or non-positive price, or unparseable JSON is
// ignored. A subscribe request for the configured symbol is sent on every
// connection.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// Config holds configuration for the feed client.
type Config struct {
	// URL of the price WebSocket, e.g. "ws://localhost:9001/ws"
	URL string

	// APIKey is sent as the apikey query parameter when set.
	APIKey string

	// Symbol is subscribed on open; events for other symbols are ignored.
	Symbol string

	// ReconnectDelay is the fixed delay between connection attempts.
	// Defaults to 5 seconds if zero.
	ReconnectDelay time.Duration

	// HandshakeTimeout bounds a single dial. Defaults to 10 seconds.
	HandshakeTimeout time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

// Ingest connects to the price feed and pushes model.Tick values into tickCh.
//
// Connections are strictly sequential: the previous connection is fully torn
// down before the next dial, and no dial starts while another is in flight.
type Ingest struct {
	cfg      Config
	endpoint string
	log      *slog.Logger

	// Optional hooks.
	OnStatus    func(status model.FeedStatus, message string)
	OnReconnect func()
	OnMalformed func()
}

// New creates a new Ingest. Returns an error if the URL is unparseable.
func New(cfg Config) (*Ingest, error) {
	cfg.defaults()
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ws: parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("ws: unsupported scheme %q", u.Scheme)
	}
	if cfg.APIKey != "" {
		q := u.Query()
		q.Set("apikey", cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return &Ingest{cfg: cfg, endpoint: u.String(), log: logger.Component("feed")}, nil
}

// Start connects to the feed and streams ticks into tickCh.
// Blocks until ctx is cancelled. Reconnects after a fixed delay on disconnect.
func (ing *Ingest) Start(ctx context.Context, tickCh chan<- model.Tick) error {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil
		}
		if attempt > 0 && ing.OnReconnect != nil {
			ing.OnReconnect()
		}

		actx := logger.WithTraceID(ctx, logger.GenerateTraceID("feed"))
		err := ing.runOnce(actx, tickCh)
		if err == nil {
			// Context cancelled cleanly
			return nil
		}

		ing.status(model.FeedDisconnected, err.Error())
		ing.log.Warn("feed disconnected, reconnecting",
			append(logger.LogWithTrace(actx), "err", err, "delay", ing.cfg.ReconnectDelay)...)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(ing.cfg.ReconnectDelay):
		}
	}
}

func (ing *Ingest) status(s model.FeedStatus, msg string) {
	if ing.OnStatus != nil {
		ing.OnStatus(s, msg)
	}
}

type subscribeRequest struct {
	Action string `json:"action"`
	Params struct {
		Symbols string `json:"symbols"`
	} `json:"params"`
}

// runOnce makes a single connection attempt and reads until disconnect or
// ctx cancel. It returns only after the connection is closed.
func (ing *Ingest) runOnce(ctx context.Context, tickCh chan<- model.Tick) error {
	ing.status(model.FeedConnecting, "")

	dialer := websocket.Dialer{HandshakeTimeout: ing.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, ing.endpoint, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("ws: dial: %w", err)
	}

	done := make(chan struct{})
	watcherDone := make(chan struct{})
	defer func() {
		close(done)
		<-watcherDone
		conn.Close()
	}()

	// Closes the connection when ctx is cancelled so ReadMessage returns.
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	if ing.cfg.Symbol != "" {
		var req subscribeRequest
		req.Action = "subscribe"
		req.Params.Symbols = ing.cfg.Symbol
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("ws: subscribe: %w", err)
		}
	}

	ing.status(model.FeedConnected, "")
	ing.log.Info("feed connected", append(logger.LogWithTrace(ctx), "url", ing.cfg.URL, "symbol", ing.cfg.Symbol)...)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("ws: closed by server")
			}
			return fmt.Errorf("ws: read: %w", err)
		}

		tick, ok := ParsePriceEvent(raw, time.Now())
		if !ok || (ing.cfg.Symbol != "" && tick.Symbol != "" && tick.Symbol != ing.cfg.Symbol) {
			ing.log.Debug("ignoring feed message", "raw", string(raw))
			if ing.OnMalformed != nil {
				ing.OnMalformed()
			}
			continue
		}

		select {
		case tickCh <- tick:
		default:
			ing.log.Warn("tick channel full, dropping tick", "price", tick.Price)
		}
	}
}

type priceEvent struct {
	Event     string  `json:"event"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // Unix seconds
}

// ParsePriceEvent decodes a feed message into a tick. Non-price events and
// unusable prices report ok=false. The tick time is the event timestamp when
// present, otherwise now.
func ParsePriceEvent(raw []byte, now time.Time) (model.Tick, bool) {
	var ev priceEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.Tick{}, false
	}
	if ev.Event != "price" || !(ev.Price > 0) {
		return model.Tick{}, false
	}
	ts := now.UTC()
	if ev.Timestamp > 0 {
		ts = time.Unix(ev.Timestamp, 0).UTC()
	}
	return model.Tick{Symbol: ev.Symbol, Price: ev.Price, TickTS: ts}, true
}
