package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/certkit/core/acme"
	"github.com/dmitrymomot/certkit/core/acquirer"
	"github.com/dmitrymomot/certkit/core/logger"
)

// RenewalItem pairs an account with the certificate request to re-acquire.
type RenewalItem struct {
	Account acme.Account
	Request acme.Request
}

// RenewalSource lists certificates due for renewal.
type RenewalSource interface {
	// DueRenewals returns items whose certificate expires within the given
	// number of days.
	DueRenewals(ctx context.Context, withinDays int) ([]RenewalItem, error)
}

// CertificateAcquirer runs one acquisition. Satisfied by acquirer.Acquirer.
type CertificateAcquirer interface {
	Acquire(ctx context.Context, account acme.Account, req acme.Request, opts ...acquirer.AcquireOption) (*acme.Order, error)
}

// RenewalServiceOption configures a RenewalService.
type RenewalServiceOption func(*RenewalService)

// WithRenewalLogger configures structured logging for the renewal service.
func WithRenewalLogger(log *slog.Logger) RenewalServiceOption {
	return func(s *RenewalService) {
		if log != nil {
			s.logger = log
		}
	}
}

// RenewalService re-acquires certificates approaching expiry. One pass per
// check interval, renewing everything inside the renewal window.
type RenewalService struct {
	source        RenewalSource
	acquirer      CertificateAcquirer
	windowDays    int
	checkInterval time.Duration
	logger        *slog.Logger
}

// NewRenewalService creates the background renewal service.
func NewRenewalService(source RenewalSource, acq CertificateAcquirer, cfg Config, opts ...RenewalServiceOption) (*RenewalService, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if acq == nil {
		return nil, ErrWorkerRequired
	}

	s := &RenewalService{
		source:        source,
		acquirer:      acq,
		windowDays:    cfg.RenewalWindowDays,
		checkInterval: cfg.RenewalCheckInterval,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if s.windowDays <= 0 {
		s.windowDays = DefaultConfig().RenewalWindowDays
	}
	if s.checkInterval <= 0 {
		s.checkInterval = DefaultConfig().RenewalCheckInterval
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunOnce performs a single renewal pass. Per-item acquisition failures are
// logged and do not stop the pass: the acquirer already notifies on terminal
// failures.
func (s *RenewalService) RunOnce(ctx context.Context) error {
	items, err := s.source.DueRenewals(ctx, s.windowDays)
	if err != nil {
		return err
	}

	for _, item := range items {
		order, err := s.acquirer.Acquire(ctx, item.Account, item.Request)
		if err != nil {
			s.logger.ErrorContext(ctx, "renewal failed",
				logger.Subject(item.Request.Subject), logger.Error(err))
			continue
		}
		s.logger.InfoContext(ctx, "renewal finished",
			logger.Subject(item.Request.Subject),
			logger.OrderStatus(string(order.Status)))
	}
	return nil
}

// Start runs the service until ctx is cancelled, with an immediate first
// pass. Blocking; use Run for errgroup composition.
func (s *RenewalService) Start(ctx context.Context) error {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "renewal pass failed", logger.Error(err))
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "renewal pass failed", logger.Error(err))
			}
		}
	}
}

// Run provides errgroup compatibility: context cancellation is a normal
// shutdown, not an error.
func (s *RenewalService) Run(ctx context.Context) func() error {
	return func() error {
		err := s.Start(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}
