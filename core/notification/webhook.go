package notification

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// WebhookSender posts a JSON payload to a URL. Satisfied by webhook.Sender.
type WebhookSender interface {
	Send(ctx context.Context, url string, payload any) error
}

// WebhookNotifierOption configures a WebhookNotifier.
type WebhookNotifierOption func(*WebhookNotifier)

// WithWebhookLogger configures structured logging for the notifier.
func WithWebhookLogger(log *slog.Logger) WebhookNotifierOption {
	return func(n *WebhookNotifier) {
		if log != nil {
			n.logger = log
		}
	}
}

// WebhookNotifier delivers events to an HTTP endpoint as JSON envelopes.
type WebhookNotifier struct {
	sender WebhookSender
	url    string
	logger *slog.Logger
}

// webhookEnvelope is the wire format of a delivered event.
type webhookEnvelope struct {
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	Data      Event     `json:"data"`
	SentAt    time.Time `json:"sent_at"`
}

// NewWebhookNotifier creates a notifier posting to the given URL.
func NewWebhookNotifier(sender WebhookSender, url string, opts ...WebhookNotifierOption) *WebhookNotifier {
	n := &WebhookNotifier{
		sender: sender,
		url:    url,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify delivers the event. Delivery errors are returned so producers can
// retry later.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	envelope := webhookEnvelope{
		EventType: event.EventType(),
		Message:   event.Message(),
		Data:      event,
		SentAt:    time.Now().UTC(),
	}
	if err := n.sender.Send(ctx, n.url, envelope); err != nil {
		return err
	}
	n.logger.DebugContext(ctx, "webhook notification delivered",
		slog.String("event_type", event.EventType()))
	return nil
}
