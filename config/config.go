package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Instrument
	Symbol string
	Market string
	FastTF model.Timeframe
	SlowTF model.Timeframe

	// Upstream price stream
	FeedURL        string
	FeedAPIKey     string
	ReconnectDelay time.Duration

	// Historical candles
	HistoryURL        string
	HistoryAPIKey     string
	HistoryOutput     int
	HistoryPause      time.Duration
	HistorySQLitePath string // optional read-only archive

	// Infrastructure
	HTTPAddr      string
	MetricsAddr   string
	RedisAddr     string // empty disables the Redis sink
	RedisPassword string
	RedisChannel  string
	WebhookURL    string
	LogLevel      slog.Level

	// Signal parameters (env defaults, optionally overlaid by SignalFile)
	SignalFile string
	Signal     Signal
}

// Load reads configuration from environment variables with sensible defaults.
// When SIGNAL_CONFIG names a YAML file its values override the defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Symbol: getEnv("SYMBOL", "EUR/USD"),
		Market: getEnv("MARKET", "FOREX"),

		FeedURL:        getEnv("FEED_URL", "ws://localhost:9001/ws"),
		FeedAPIKey:     getEnv("FEED_API_KEY", ""),
		ReconnectDelay: getDuration("RECONNECT_DELAY", 5*time.Second),

		HistoryURL:        getEnv("HISTORY_URL", "http://localhost:9001"),
		HistoryAPIKey:     getEnv("HISTORY_API_KEY", ""),
		HistoryOutput:     getInt("HISTORY_OUTPUT", 500),
		HistoryPause:      getDuration("HISTORY_PAUSE", 2*time.Second),
		HistorySQLitePath: getEnv("HISTORY_SQLITE_PATH", ""),

		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisChannel:  getEnv("REDIS_CHANNEL", "elasticity:snapshots"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		LogLevel:      ParseLevel(getEnv("LOG_LEVEL", "info")),

		SignalFile: getEnv("SIGNAL_CONFIG", ""),
		Signal:     DefaultSignal(),
	}

	var err error
	if cfg.FastTF, err = model.ParseTimeframe(getEnv("FAST_TF", "M5")); err != nil {
		return nil, fmt.Errorf("%w: FAST_TF: %v", ErrInvalid, err)
	}
	if cfg.SlowTF, err = model.ParseTimeframe(getEnv("SLOW_TF", "M15")); err != nil {
		return nil, fmt.Errorf("%w: SLOW_TF: %v", ErrInvalid, err)
	}
	if cfg.SlowTF.Period() <= cfg.FastTF.Period() {
		return nil, fmt.Errorf("%w: slow timeframe %s must be longer than fast %s", ErrInvalid, cfg.SlowTF, cfg.FastTF)
	}

	if cfg.SignalFile != "" {
		if cfg.Signal, err = LoadSignalFile(cfg.SignalFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Signal.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Timeframes returns the tracked timeframes, fast first.
func (c *Config) Timeframes() []model.Timeframe {
	return []model.Timeframe{c.FastTF, c.SlowTF}
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("config: ignoring invalid integer", "key", key, "value", v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		slog.Warn("config: ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
