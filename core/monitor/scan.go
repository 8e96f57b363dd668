package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/core/scanner"
)

// DomainSource lists tracked domains that are due for a scan.
type DomainSource interface {
	// DomainsDueForScan returns domains whose last scan happened before the
	// cutoff (or that were never scanned).
	DomainsDueForScan(ctx context.Context, cutoff time.Time) ([]string, error)
}

// DomainScanner runs scans over a set of domains. Satisfied by
// scanner.Scanner.
type DomainScanner interface {
	ScanAll(ctx context.Context, domains []string) ([]*scanner.Scan, error)
}

// ScanServiceOption configures a ScanService.
type ScanServiceOption func(*ScanService)

// WithScanLogger configures structured logging for the scan service.
func WithScanLogger(log *slog.Logger) ScanServiceOption {
	return func(s *ScanService) {
		if log != nil {
			s.logger = log
		}
	}
}

// ScanService periodically rescans tracked domains whose last scan has grown
// older than the configured interval.
type ScanService struct {
	source        DomainSource
	scanner       DomainScanner
	scanInterval  time.Duration
	checkInterval time.Duration
	logger        *slog.Logger
}

// NewScanService creates the background scan service.
func NewScanService(source DomainSource, scn DomainScanner, cfg Config, opts ...ScanServiceOption) (*ScanService, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if scn == nil {
		return nil, ErrWorkerRequired
	}

	s := &ScanService{
		source:        source,
		scanner:       scn,
		scanInterval:  cfg.ScanInterval,
		checkInterval: cfg.ScanCheckInterval,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if s.scanInterval <= 0 {
		s.scanInterval = DefaultConfig().ScanInterval
	}
	if s.checkInterval <= 0 {
		s.checkInterval = DefaultConfig().ScanCheckInterval
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunOnce performs a single pass: fetch due domains and scan them. Scan
// failures of individual domains are logged, not returned.
func (s *ScanService) RunOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.scanInterval)
	domains, err := s.source.DomainsDueForScan(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		return nil
	}

	s.logger.InfoContext(ctx, "scanning due domains", slog.Int("count", len(domains)))
	if _, err := s.scanner.ScanAll(ctx, domains); err != nil {
		s.logger.WarnContext(ctx, "some scans failed", logger.Error(err))
	}
	return nil
}

// Start runs the service until ctx is cancelled, with an immediate first
// pass. Blocking; use Run for errgroup composition.
func (s *ScanService) Start(ctx context.Context) error {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "scan pass failed", logger.Error(err))
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "scan pass failed", logger.Error(err))
			}
		}
	}
}

// Run provides errgroup compatibility: context cancellation is a normal
// shutdown, not an error.
func (s *ScanService) Run(ctx context.Context) func() error {
	return func() error {
		err := s.Start(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}
