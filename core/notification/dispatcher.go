package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/core/scanner"
)

// ChangeEventStore provides access to recorded certificate changes awaiting
// notification.
type ChangeEventStore interface {
	// UnprocessedChangeEvents returns events whose ProcessedAt is unset,
	// oldest first.
	UnprocessedChangeEvents(ctx context.Context) ([]*scanner.ChangeEvent, error)

	// MarkChangeEventProcessed records that the event has been dispatched.
	MarkChangeEventProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
}

// ChangeDispatcherOption configures a ChangeDispatcher.
type ChangeDispatcherOption func(*ChangeDispatcher)

// WithDispatcherLogger configures structured logging for the dispatcher.
func WithDispatcherLogger(log *slog.Logger) ChangeDispatcherOption {
	return func(d *ChangeDispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// ChangeDispatcher drains unprocessed change events from the store and emits
// CertificateChanged notifications. Events are marked processed only after a
// successful Notify, so a failed delivery is retried on the next run.
type ChangeDispatcher struct {
	store    ChangeEventStore
	notifier Notifier
	logger   *slog.Logger
}

// NewChangeDispatcher creates a dispatcher over the given store and notifier.
func NewChangeDispatcher(store ChangeEventStore, notifier Notifier, opts ...ChangeDispatcherOption) *ChangeDispatcher {
	d := &ChangeDispatcher{
		store:    store,
		notifier: notifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch processes every pending change event, returning how many were
// dispatched. Stops at the first failure, leaving the remaining events
// unprocessed.
func (d *ChangeDispatcher) Dispatch(ctx context.Context) (int, error) {
	events, err := d.store.UnprocessedChangeEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("notification: load change events: %w", err)
	}

	dispatched := 0
	for _, ev := range events {
		if ev == nil || ev.Previous == nil || ev.New == nil {
			continue
		}

		notification := CertificateChanged{
			Domain:             ev.Domain,
			PreviousThumbprint: ev.Previous.Thumbprint,
			NewThumbprint:      ev.New.Thumbprint,
			PreviousNotAfter:   ev.Previous.NotAfter,
			NewNotAfter:        ev.New.NotAfter,
			OccurredAt:         ev.CreatedAt,
		}
		if err := d.notifier.Notify(ctx, notification); err != nil {
			return dispatched, fmt.Errorf("notification: dispatch change for %s: %w", ev.Domain, err)
		}
		if err := d.store.MarkChangeEventProcessed(ctx, ev.ID, time.Now().UTC()); err != nil {
			return dispatched, fmt.Errorf("notification: mark change processed for %s: %w", ev.Domain, err)
		}
		dispatched++
		d.logger.InfoContext(ctx, "change notification dispatched",
			logger.Domain(ev.Domain), logger.Thumbprint(ev.New.Thumbprint))
	}
	return dispatched, nil
}
