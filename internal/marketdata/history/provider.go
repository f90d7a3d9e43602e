// Package history fetches bulk historical candles from the market-data
// vendor's time-series endpoint.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// ErrVendor is returned when the vendor answers with an error status or a
// payload without values.
var ErrVendor = errors.New("history: vendor error")

const datetimeLayout = "2006-01-02 15:04:05"

// Config configures the HTTP provider.
type Config struct {
	BaseURL string // e.g. "https://api.twelvedata.com"
	APIKey  string
	Symbol  string

	// Pause is the minimum spacing between two requests.
	Pause   time.Duration
	Timeout time.Duration
}

// Provider implements model.HistoryProvider over HTTP.
type Provider struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger

	// OnFailure is called with the timeframe of every failed fetch.
	OnFailure func(tf model.Timeframe, err error)
}

// New creates a Provider.
func New(cfg Config) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.Pause > 0 {
		limit = rate.Every(cfg.Pause)
	}
	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.Component("history"),
	}
}

// FetchCandles returns up to limit closed candles for tf, oldest first.
// Any failure is logged and yields an empty slice.
func (p *Provider) FetchCandles(ctx context.Context, tf model.Timeframe, limit int) []model.Candle {
	candles, err := p.Fetch(ctx, tf, limit)
	if err != nil {
		p.log.Warn("history fetch failed", "tf", tf, "err", err)
		if p.OnFailure != nil {
			p.OnFailure(tf, err)
		}
		return []model.Candle{}
	}
	p.log.Info("history fetched", "tf", tf, "candles", len(candles))
	return candles
}

type timeSeriesResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
	} `json:"values"`
}

// Fetch performs one paced time-series request.
func (p *Provider) Fetch(ctx context.Context, tf model.Timeframe, limit int) ([]model.Candle, error) {
	if tf.Period() == 0 {
		return nil, fmt.Errorf("history: unknown timeframe %q", tf)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("history: wait: %w", err)
	}

	q := url.Values{}
	q.Set("symbol", p.cfg.Symbol)
	q.Set("interval", tf.Interval())
	q.Set("outputsize", strconv.Itoa(limit))
	if p.cfg.APIKey != "" {
		q.Set("apikey", p.cfg.APIKey)
	}
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/time_series?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("history: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrVendor, resp.StatusCode)
	}

	var body timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("history: decode: %w", err)
	}
	if body.Status != "ok" || body.Values == nil {
		return nil, fmt.Errorf("%w: status %q: %s", ErrVendor, body.Status, body.Message)
	}

	// Values arrive newest first.
	out := make([]model.Candle, 0, len(body.Values))
	for i := len(body.Values) - 1; i >= 0; i-- {
		v := body.Values[i]
		ts, err := time.ParseInLocation(datetimeLayout, v.Datetime, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("history: parse datetime %q: %w", v.Datetime, err)
		}
		c := model.Candle{Time: ts.UnixMilli(), Closed: true}
		for _, f := range []struct {
			dst *float64
			src string
		}{{&c.Open, v.Open}, {&c.High, v.High}, {&c.Low, v.Low}, {&c.Close, v.Close}} {
			if *f.dst, err = strconv.ParseFloat(f.src, 64); err != nil {
				return nil, fmt.Errorf("history: parse price %q: %w", f.src, err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
