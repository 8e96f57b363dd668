package notification

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// DefaultBufferSize is the default buffer of the in-memory channel notifier.
const DefaultBufferSize = 100

// Notifier delivers events to subscribers. Implementations decide the
// transport; delivery failures are returned so callers can leave events
// unprocessed for a later retry.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// ChannelNotifierOption configures a ChannelNotifier.
type ChannelNotifierOption func(*ChannelNotifier)

// WithBufferSize sets the event channel buffer. Default is 100.
func WithBufferSize(size int) ChannelNotifierOption {
	return func(n *ChannelNotifier) {
		if size > 0 {
			n.ch = make(chan Event, size)
		}
	}
}

// WithChannelLogger configures structured logging for the notifier.
func WithChannelLogger(log *slog.Logger) ChannelNotifierOption {
	return func(n *ChannelNotifier) {
		if log != nil {
			n.logger = log
		}
	}
}

// ChannelNotifier is an in-memory Notifier backed by a buffered channel,
// suitable for single-instance deployments where a consumer goroutine drains
// Events and fans out to mail, chat or webhooks.
type ChannelNotifier struct {
	ch     chan Event
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

// NewChannelNotifier creates an in-memory channel-backed notifier.
func NewChannelNotifier(opts ...ChannelNotifierOption) *ChannelNotifier {
	n := &ChannelNotifier{
		ch:     make(chan Event, DefaultBufferSize),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify publishes the event to the channel, blocking when the buffer is
// full until a consumer drains it or ctx is done.
func (n *ChannelNotifier) Notify(ctx context.Context, event Event) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrNotifierClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case n.ch <- event:
		n.logger.DebugContext(ctx, "notification published",
			slog.String("event_type", event.EventType()))
		return nil
	}
}

// Events returns the read side of the notifier.
func (n *ChannelNotifier) Events() <-chan Event {
	return n.ch
}

// Close shuts the notifier down. Subsequent Notify calls fail with
// ErrNotifierClosed.
func (n *ChannelNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNotifierClosed
	}
	n.closed = true
	close(n.ch)
	return nil
}
