package bus

import (
	"context"
	"log/slog"
	"sync"
)

// Message is one encoded downstream message.
type Message struct {
	Type string
	Data []byte
}

type output struct {
	name string
	ch   chan Message
}

// FanOut broadcasts published messages to N named output channels.
// If an output channel is full, the message is dropped for that consumer to
// prevent a slow consumer from blocking the pipeline.
type FanOut struct {
	mu      sync.RWMutex
	outputs []output
	bufSize int
	closed  bool

	// OnDrop is called when a message is dropped for a subscriber.
	OnDrop func(subscriber string)
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	if outputBufferSize < 1 {
		outputBufferSize = 1
	}
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new named output channel.
func (f *FanOut) Subscribe(name string) <-chan Message {
	ch := make(chan Message, f.bufSize)
	f.mu.Lock()
	if f.closed {
		close(ch)
	} else {
		f.outputs = append(f.outputs, output{name: name, ch: ch})
	}
	f.mu.Unlock()
	return ch
}

// Publish delivers a message to every subscriber without blocking.
func (f *FanOut) Publish(msgType string, data []byte) {
	msg := Message{Type: msgType, Data: data}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for _, o := range f.outputs {
		select {
		case o.ch <- msg:
		default:
			if f.OnDrop != nil {
				f.OnDrop(o.name)
			} else {
				slog.Warn("bus: output channel full, dropping message", "subscriber", o.name, "type", msgType)
			}
		}
	}
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed, then closes all outputs.
func (f *FanOut) Run(ctx context.Context, input <-chan Message) {
	defer f.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-input:
			if !ok {
				return
			}
			f.Publish(msg.Type, msg.Data)
		}
	}
}

// Close closes every output channel. Later publishes are discarded.
func (f *FanOut) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, o := range f.outputs {
		close(o.ch)
	}
}

// ChannelStat reports (length, capacity) of one subscriber channel.
// Used for reporting channel saturation percentage.
type ChannelStat struct {
	Name string
	Len  int
	Cap  int
}

func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, o := range f.outputs {
		stats[i] = ChannelStat{Name: o.name, Len: len(o.ch), Cap: cap(o.ch)}
	}
	return stats
}
