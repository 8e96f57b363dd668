package notification

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/pkg/certinfo"
)

// DefaultThresholds are the expiry warning thresholds in days.
var DefaultThresholds = []int{30, 14, 7, 3, 1}

// CertificateSource lists the certificates whose expiry should be watched.
type CertificateSource interface {
	Certificates(ctx context.Context) ([]*certinfo.Certificate, error)
}

// ExpiryCheckerOption configures an ExpiryChecker.
type ExpiryCheckerOption func(*ExpiryChecker)

// WithThresholds overrides the warning thresholds in days.
func WithThresholds(days ...int) ExpiryCheckerOption {
	return func(c *ExpiryChecker) {
		if len(days) > 0 {
			c.thresholds = slices.Clone(days)
		}
	}
}

// WithExpiryLogger configures structured logging for the checker.
func WithExpiryLogger(log *slog.Logger) ExpiryCheckerOption {
	return func(c *ExpiryChecker) {
		if log != nil {
			c.logger = log
		}
	}
}

// ExpiryChecker emits CertificateExpiring events as certificates cross the
// configured day thresholds, at most once per threshold per certificate for
// the checker's lifetime.
type ExpiryChecker struct {
	source     CertificateSource
	notifier   Notifier
	thresholds []int
	logger     *slog.Logger

	mu   sync.Mutex
	sent map[string]int // thumbprint → tightest threshold already notified
}

// NewExpiryChecker creates a checker over the given certificate source and
// notifier.
func NewExpiryChecker(source CertificateSource, notifier Notifier, opts ...ExpiryCheckerOption) *ExpiryChecker {
	c := &ExpiryChecker{
		source:     source,
		notifier:   notifier,
		thresholds: slices.Clone(DefaultThresholds),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		sent:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Tightest threshold first so the first match is the most urgent one.
	slices.Sort(c.thresholds)
	return c
}

// Check runs one pass over the source, emitting an event for every
// certificate that crossed a threshold it has not been notified for yet.
func (c *ExpiryChecker) Check(ctx context.Context) error {
	certs, err := c.source.Certificates(ctx)
	if err != nil {
		return err
	}

	for _, cert := range certs {
		if cert == nil {
			continue
		}
		threshold, ok := c.matchThreshold(cert)
		if !ok {
			continue
		}

		c.mu.Lock()
		prev, notified := c.sent[cert.Thumbprint]
		if notified && prev <= threshold {
			c.mu.Unlock()
			continue
		}
		c.sent[cert.Thumbprint] = threshold
		c.mu.Unlock()

		days := int(time.Until(cert.NotAfter).Hours() / 24)
		event := CertificateExpiring{
			Subject:       cert.Subject,
			Thumbprint:    cert.Thumbprint,
			NotAfter:      cert.NotAfter,
			DaysRemaining: days,
			Threshold:     threshold,
		}
		if err := c.notifier.Notify(ctx, event); err != nil {
			// Allow a later pass to retry this threshold.
			c.mu.Lock()
			if notified {
				c.sent[cert.Thumbprint] = prev
			} else {
				delete(c.sent, cert.Thumbprint)
			}
			c.mu.Unlock()
			return err
		}
		c.logger.InfoContext(ctx, "expiry notification sent",
			logger.Subject(cert.Subject),
			logger.Thumbprint(cert.Thumbprint),
			slog.Int("threshold_days", threshold))
	}
	return nil
}

// matchThreshold returns the tightest threshold the certificate falls under.
func (c *ExpiryChecker) matchThreshold(cert *certinfo.Certificate) (int, bool) {
	for _, t := range c.thresholds {
		if cert.ExpiresWithinDays(t) {
			return t, true
		}
	}
	return 0, false
}
