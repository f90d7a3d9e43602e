package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
)

// Dispatcher queues alerts and sends them from its own goroutine so callers
// never wait on the network. A full queue drops the alert.
type Dispatcher struct {
	notifiers []Notifier
	queue     chan Alert
	timeout   time.Duration
	log       *slog.Logger

	// OnError is called for every failed delivery.
	OnError func(err error)
}

// NewDispatcher creates a Dispatcher delivering to every notifier in order.
func NewDispatcher(queueSize int, notifiers ...Notifier) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		notifiers: notifiers,
		queue:     make(chan Alert, queueSize),
		timeout:   10 * time.Second,
		log:       logger.Component("notify"),
	}
}

// Notify enqueues alert without blocking. It reports false when dropped.
func (d *Dispatcher) Notify(alert Alert) bool {
	select {
	case d.queue <- alert:
		return true
	default:
		d.log.Warn("alert queue full, dropping", "title", alert.Title)
		return false
	}
}

// Run delivers queued alerts until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case alert := <-d.queue:
			for _, n := range d.notifiers {
				sctx, cancel := context.WithTimeout(ctx, d.timeout)
				err := n.Send(sctx, alert)
				cancel()
				if err != nil {
					d.log.Warn("alert delivery failed", "title", alert.Title, "err", err)
					if d.OnError != nil {
						d.OnError(err)
					}
				}
			}
		}
	}
}
