package acquirer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/certkit/core/acme"
	"github.com/dmitrymomot/certkit/core/dnscheck"
	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/core/notification"
	"github.com/dmitrymomot/certkit/pkg/scriptrunner"
)

// OrderProvider is the slice of the ACME provider the acquirer drives.
// Satisfied by acme.Provider.
type OrderProvider interface {
	Initialize(account acme.Account, req acme.Request) error
	BeginOrder(ctx context.Context) (*acme.Order, error)
	Validate(ctx context.Context) (*acme.Order, error)
	Complete(ctx context.Context) (*acme.Order, error)
	SetDNSRecords(ctx context.Context, runner *scriptrunner.Runner, scripts acme.DNSScripts) error
	CleanupDNSRecords(ctx context.Context, runner *scriptrunner.Runner, scripts acme.DNSScripts) error
	PreValidateDNSRecords(ctx context.Context, verifier *dnscheck.Verifier)
	ClearChallenges()
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithLogger configures structured logging for the acquirer.
func WithLogger(log *slog.Logger) Option {
	return func(a *Acquirer) {
		if log != nil {
			a.logger = log
		}
	}
}

// WithOrderStore persists finished orders and provides the previous valid
// order for failure notifications.
func WithOrderStore(store OrderStore) Option {
	return func(a *Acquirer) {
		a.store = store
	}
}

// WithNotifier emits AcquisitionFailed events for unattended failures.
func WithNotifier(notifier notification.Notifier) Option {
	return func(a *Acquirer) {
		a.notifier = notifier
	}
}

// WithDNSScripts configures the external scripts publishing dns-01 records.
func WithDNSScripts(scripts acme.DNSScripts) Option {
	return func(a *Acquirer) {
		a.scripts = scripts
	}
}

// WithVerifier enables the advisory DNS propagation check between record
// publication and challenge validation.
func WithVerifier(verifier *dnscheck.Verifier) Option {
	return func(a *Acquirer) {
		a.verifier = verifier
	}
}

// WithScriptRunner overrides the runner executing DNS scripts.
func WithScriptRunner(runner *scriptrunner.Runner) Option {
	return func(a *Acquirer) {
		if runner != nil {
			a.runner = runner
		}
	}
}

// WithProviderFactory overrides how per-acquisition providers are built.
// Primarily useful for tests.
func WithProviderFactory(factory func() OrderProvider) Option {
	return func(a *Acquirer) {
		if factory != nil {
			a.newProvider = factory
		}
	}
}

// AcquireOption adjusts a single acquisition.
type AcquireOption func(*acquireOptions)

type acquireOptions struct {
	userRequested bool
}

// UserRequested marks the acquisition as interactively triggered: failures
// are visible to the caller, so no AcquisitionFailed event is emitted.
func UserRequested() AcquireOption {
	return func(o *acquireOptions) {
		o.userRequested = true
	}
}

// Acquirer runs complete certificate acquisitions: order creation, dns-01
// record handling, validation, completion and bookkeeping. Each acquisition
// gets its own provider instance, so an Acquirer is safe for concurrent use.
type Acquirer struct {
	store       OrderStore
	notifier    notification.Notifier
	verifier    *dnscheck.Verifier
	runner      *scriptrunner.Runner
	scripts     acme.DNSScripts
	newProvider func() OrderProvider
	logger      *slog.Logger
}

// New creates an Acquirer.
func New(opts ...Option) *Acquirer {
	a := &Acquirer{
		runner: scriptrunner.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		newProvider: func() OrderProvider {
			return acme.NewProvider()
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire runs one acquisition end to end and returns the resulting order.
// dns-01 record cleanup and challenge clearing run on every exit path,
// including unexpected errors, which propagate after cleanup. A terminal
// non-completed order is returned without a Go error; unattended failures
// additionally emit an AcquisitionFailed notification carrying the previous
// valid certificate's details.
func (a *Acquirer) Acquire(ctx context.Context, account acme.Account, req acme.Request, opts ...AcquireOption) (*acme.Order, error) {
	var options acquireOptions
	for _, opt := range opts {
		opt(&options)
	}

	provider := a.newProvider()
	if err := provider.Initialize(account, req); err != nil {
		return nil, fmt.Errorf("acquirer: initialize: %w", err)
	}

	order, err := provider.BeginOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquirer: begin order: %w", err)
	}
	defer provider.ClearChallenges()

	usesDNS := req.ChallengeType == acme.ChallengeTypeDNS01 && a.scripts.SetScript != ""
	if usesDNS && order.Status == acme.OrderStatusChallenging {
		if a.scripts.CleanupScript != "" {
			defer func() {
				// Best-effort: stale TXT records are a nuisance, not a failure.
				if err := provider.CleanupDNSRecords(context.WithoutCancel(ctx), a.runner, a.scripts); err != nil {
					a.logger.WarnContext(ctx, "dns record cleanup failed",
						logger.Subject(req.Subject), logger.Error(err))
				}
			}()
		}
		if err := provider.SetDNSRecords(ctx, a.runner, a.scripts); err != nil {
			return nil, fmt.Errorf("acquirer: set dns records: %w", err)
		}
		provider.PreValidateDNSRecords(ctx, a.verifier)
	}

	if order.Status == acme.OrderStatusChallenging {
		if order, err = provider.Validate(ctx); err != nil {
			return nil, fmt.Errorf("acquirer: validate: %w", err)
		}
	}
	if order.Status == acme.OrderStatusValidating {
		if order, err = provider.Complete(ctx); err != nil {
			return nil, fmt.Errorf("acquirer: complete: %w", err)
		}
	}

	if a.store != nil {
		if err := a.store.SaveOrder(ctx, req.Subject, order); err != nil {
			return order, fmt.Errorf("acquirer: save order: %w", err)
		}
	}

	if order.Status != acme.OrderStatusCompleted && !options.userRequested {
		a.notifyFailure(ctx, req.Subject, order)
	}

	a.logger.InfoContext(ctx, "acquisition finished",
		logger.Subject(req.Subject),
		logger.OrderID(order.ID.String()),
		logger.OrderStatus(string(order.Status)))
	return order, nil
}

// notifyFailure emits an AcquisitionFailed event enriched with the previous
// valid order, so receivers can judge the remaining runway.
func (a *Acquirer) notifyFailure(ctx context.Context, subject string, order *acme.Order) {
	if a.notifier == nil {
		return
	}

	event := notification.AcquisitionFailed{
		Subject: subject,
		Errors:  order.Errors,
	}
	if a.store != nil {
		if prev, err := a.store.LastValidOrder(ctx, subject); err != nil {
			a.logger.WarnContext(ctx, "previous valid order lookup failed",
				logger.Subject(subject), logger.Error(err))
		} else if prev != nil && prev.Certificate != nil {
			event.PreviousThumbprint = prev.Certificate.Thumbprint
			event.PreviousNotBefore = prev.Certificate.NotBefore
			event.PreviousNotAfter = prev.Certificate.NotAfter
			acquired := prev.CreatedAt
			event.LastAcquired = &acquired
		}
	}

	if err := a.notifier.Notify(ctx, event); err != nil {
		a.logger.WarnContext(ctx, "acquisition failure notification failed",
			logger.Subject(subject), logger.Error(err))
	}
}
