package dnscheck

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/certkit/core/logger"
)

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierLogger configures structured logging for the verifier.
func WithVerifierLogger(log *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		if log != nil {
			v.logger = log
		}
	}
}

// WithRetrySchedule overrides the poll budget and spacing. Primarily useful
// for tests to avoid long delays.
func WithRetrySchedule(attempts int, interval time.Duration) VerifierOption {
	return func(v *Verifier) {
		if attempts > 0 {
			v.attempts = attempts
		}
		if interval > 0 {
			v.interval = interval
		}
	}
}

// Verifier polls authoritative nameservers until an expected TXT value has
// propagated or the retry budget is exhausted.
type Verifier struct {
	resolver *Resolver
	attempts int
	interval time.Duration
	logger   *slog.Logger
}

// NewVerifier creates a Verifier over the given resolver using the
// configured propagation schedule.
func NewVerifier(resolver *Resolver, cfg Config, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		resolver: resolver,
		attempts: cfg.PropagationAttempts,
		interval: cfg.PropagationInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if v.attempts <= 0 {
		v.attempts = DefaultConfig().PropagationAttempts
	}
	if v.interval <= 0 {
		v.interval = DefaultConfig().PropagationInterval
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// PreValidate polls every authoritative nameserver for record until each one
// returns a TXT set containing value. An attempt succeeds only when all
// servers agree. Exhausting the budget reports false but is advisory: the
// caller proceeds to ACME validation regardless, since the ACME server's own
// check is authoritative.
func (v *Verifier) PreValidate(ctx context.Context, record, value string) bool {
	attempt := 0

	err := retry.Do(ctx, retry.WithMaxRetries(uint64(v.attempts-1), retry.NewConstant(v.interval)), func(ctx context.Context) error {
		ok := v.check(ctx, record, value, attempt)
		attempt++
		if ok {
			return nil
		}
		v.logger.InfoContext(ctx, "propagation check failed, will retry",
			logger.Domain(record), logger.Attempt(attempt), logger.Duration(v.interval))
		return retry.RetryableError(errNotPropagated)
	})
	if err != nil {
		v.logger.InfoContext(ctx, "dns propagation self-check failed", logger.Domain(record))
		return false
	}

	v.logger.InfoContext(ctx, "dns propagation confirmed", logger.Domain(record))
	return true
}

func (v *Verifier) check(ctx context.Context, record, value string, attempt int) bool {
	servers := v.resolver.AuthoritativeServers(ctx, record)
	for _, server := range servers {
		values, err := v.resolver.TextRecords(ctx, server, record, attempt)
		if err != nil {
			v.logger.WarnContext(ctx, "propagation check query failed",
				logger.Nameserver(server), logger.Domain(record), logger.Error(err))
			return false
		}
		if !slices.Contains(values, value) {
			v.logger.WarnContext(ctx, "expected TXT value not found",
				logger.Nameserver(server), logger.Domain(record))
			return false
		}
		v.logger.DebugContext(ctx, "nameserver has expected TXT value",
			logger.Nameserver(server), logger.Domain(record))
	}
	return true
}
