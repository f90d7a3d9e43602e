// Package redis publishes snapshot and status messages to a Redis Pub/Sub
// channel behind a circuit breaker.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/bus"
)

const (
	defaultChannel        = "elasticity:snapshots"
	defaultPublishTimeout = 2 * time.Second
)

// Config configures the Redis sink.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Channel  string
}

// Publisher forwards bus messages to a Redis channel.
type Publisher struct {
	client  *goredis.Client
	channel string
	breaker *CircuitBreaker
	log     *slog.Logger

	// OnPublish is called with the latency of every successful PUBLISH.
	OnPublish func(time.Duration)
}

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis: connected", "addr", cfg.Addr, "channel", cfg.Channel)
	return NewWithClient(client, cfg.Channel), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, channel string) *Publisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &Publisher{
		client:  client,
		channel: channel,
		breaker: NewCircuitBreaker(5, 10*time.Second),
		log:     logger.Component("redis"),
	}
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Breaker returns the circuit breaker guarding PUBLISH.
func (p *Publisher) Breaker() *CircuitBreaker { return p.breaker }

// Channel returns the Pub/Sub channel name.
func (p *Publisher) Channel() string { return p.channel }

// Send publishes one payload through the circuit breaker.
func (p *Publisher) Send(ctx context.Context, data []byte) error {
	return p.breaker.Execute(func() error {
		start := time.Now()
		if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", p.channel, err)
		}
		if p.OnPublish != nil {
			p.OnPublish(time.Since(start))
		}
		return nil
	})
}

// Run forwards messages from in until ctx is cancelled or in is closed.
// Failures are logged and never stop the loop.
func (p *Publisher) Run(ctx context.Context, in <-chan bus.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			pctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
			err := p.Send(pctx, msg.Data)
			cancel()
			switch {
			case err == nil:
			case errors.Is(err, ErrCircuitOpen):
				p.log.Debug("publish skipped, breaker open", "type", msg.Type)
			default:
				p.log.Warn("publish failed", "type", msg.Type, "err", err)
			}
		}
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
