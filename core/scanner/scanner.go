package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/pkg/certinfo"
	"github.com/dmitrymomot/certkit/pkg/domainutil"
	"github.com/dmitrymomot/certkit/pkg/namedlock"
	"github.com/dmitrymomot/certkit/pkg/tlsprobe"
)

const (
	defaultPort      = 443
	defaultBatchSize = 4
)

// Prober captures the TLS certificate presented at an endpoint. Satisfied by
// tlsprobe.Prober.
type Prober interface {
	Probe(ctx context.Context, host string, ip net.IP, port int) *tlsprobe.Result
}

// LookupHostFunc resolves a hostname to addresses. Defaults to the system
// resolver.
type LookupHostFunc func(ctx context.Context, host string) ([]string, error)

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger configures structured logging for the scanner.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scanner) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithPort overrides the TLS port probed (default 443).
func WithPort(port int) Option {
	return func(s *Scanner) {
		if port > 0 {
			s.port = port
		}
	}
}

// WithBatchSize overrides how many domains ScanAll probes in parallel
// (default 4).
func WithBatchSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLookupHost overrides hostname resolution. Primarily useful for tests.
func WithLookupHost(fn LookupHostFunc) Option {
	return func(s *Scanner) {
		if fn != nil {
			s.lookupHost = fn
		}
	}
}

// Scanner probes tracked domains and detects certificate changes against the
// last successful scan. Concurrent scans of the same domain are serialized by
// a per-domain lock; different domains proceed in parallel.
type Scanner struct {
	store      ScanStore
	prober     Prober
	locks      *namedlock.Registry
	lookupHost LookupHostFunc
	port       int
	batchSize  int
	logger     *slog.Logger
}

// New creates a Scanner over the given store and prober.
func New(store ScanStore, prober Prober, opts ...Option) (*Scanner, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if prober == nil {
		return nil, ErrProberRequired
	}

	s := &Scanner{
		store:      store,
		prober:     prober,
		locks:      namedlock.New(),
		lookupHost: net.DefaultResolver.LookupHost,
		port:       defaultPort,
		batchSize:  defaultBatchSize,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan probes one domain and records the outcome. The baseline for change
// detection is the last successful scan: failed scans are returned but never
// persisted and never move the baseline. A first-ever success or a thumbprint
// change is persisted; a change additionally records a ChangeEvent. An
// identical reconfirmation is computed and discarded.
func (s *Scanner) Scan(ctx context.Context, domain string) (*Scan, error) {
	domain = domainutil.Normalize(domain)

	s.locks.Lock(domain)
	defer s.locks.Unlock(domain)

	scan := &Scan{
		ID:        uuid.New(),
		Domain:    domain,
		Timestamp: time.Now().UTC(),
	}

	addrs, err := s.lookupHost(ctx, domain)
	if err != nil || len(addrs) == 0 {
		scan.Status = string(tlsprobe.StatusError)
		scan.Messages = append(scan.Messages, fmt.Sprintf("could not resolve %s: %v", domain, err))
		s.logger.WarnContext(ctx, "domain resolution failed", logger.Domain(domain), logger.Error(err))
		return scan, nil
	}

	ip := net.ParseIP(addrs[0])
	if ip == nil {
		scan.Status = string(tlsprobe.StatusError)
		scan.Messages = append(scan.Messages, fmt.Sprintf("unusable address %q for %s", addrs[0], domain))
		return scan, nil
	}

	result := s.prober.Probe(ctx, domain, ip, s.port)
	scan.Status = string(result.Status)
	scan.Messages = append(scan.Messages, result.Messages...)
	scan.Success = result.Status == tlsprobe.StatusOK && result.Certificate != nil
	scan.Certificate = certinfo.FromX509(result.Certificate, certinfo.SourceTrackedDomain)

	if !scan.Success {
		s.logger.WarnContext(ctx, "scan failed", logger.Domain(domain), slog.String("status", scan.Status))
		return scan, nil
	}

	baseline, err := s.store.LastSuccessfulScan(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("scanner: load baseline for %s: %w", domain, err)
	}

	switch {
	case baseline == nil || baseline.Certificate == nil:
		if err := s.store.SaveScan(ctx, scan); err != nil {
			return nil, fmt.Errorf("scanner: save scan for %s: %w", domain, err)
		}
		s.logger.InfoContext(ctx, "first certificate observed",
			logger.Domain(domain), logger.Thumbprint(scan.Certificate.Thumbprint))

	case baseline.Certificate.Thumbprint != scan.Certificate.Thumbprint:
		if err := s.store.SaveScan(ctx, scan); err != nil {
			return nil, fmt.Errorf("scanner: save scan for %s: %w", domain, err)
		}
		event := &ChangeEvent{
			ID:        uuid.New(),
			Domain:    domain,
			Previous:  baseline.Certificate,
			New:       scan.Certificate,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.SaveChangeEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("scanner: save change event for %s: %w", domain, err)
		}
		s.logger.InfoContext(ctx, "certificate change detected",
			logger.Domain(domain),
			slog.String("previous_thumbprint", baseline.Certificate.Thumbprint),
			logger.Thumbprint(scan.Certificate.Thumbprint))

	default:
		// Same certificate reconfirmed; nothing to persist.
		s.logger.DebugContext(ctx, "certificate unchanged", logger.Domain(domain))
	}

	return scan, nil
}

// ScanAll scans every domain, at most batchSize in parallel. Per-domain
// failures are collected rather than aborting the batch; the returned scans
// hold an entry for every domain that produced one.
func (s *Scanner) ScanAll(ctx context.Context, domains []string) ([]*Scan, error) {
	scans := make([]*Scan, len(domains))
	errs := make([]error, len(domains))

	var g errgroup.Group
	g.SetLimit(s.batchSize)
	for i, domain := range domains {
		g.Go(func() error {
			scan, err := s.Scan(ctx, domain)
			if err != nil {
				errs[i] = err
				return nil
			}
			scans[i] = scan
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*Scan, 0, len(scans))
	for _, scan := range scans {
		if scan != nil {
			out = append(out, scan)
		}
	}
	return out, errors.Join(errs...)
}
