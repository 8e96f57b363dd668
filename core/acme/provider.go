package acme

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	legoacme "github.com/go-acme/lego/v4/acme"
	"github.com/go-acme/lego/v4/acme/api"
	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/pkg/certinfo"
)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger configures structured logging for the provider.
func WithLogger(log *slog.Logger) Option {
	return func(p *Provider) {
		if log != nil {
			p.logger = log
		}
	}
}

// WithHTTPClient overrides the HTTP client used for ACME requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent sent on ACME requests.
func WithUserAgent(ua string) Option {
	return func(p *Provider) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithPollSchedule overrides the authorization poll budget and spacing.
// Primarily useful for tests to avoid long delays.
func WithPollSchedule(attempts int, interval time.Duration) Option {
	return func(p *Provider) {
		if attempts > 0 {
			p.pollAttempts = attempts
		}
		if interval > 0 {
			p.pollInterval = interval
		}
	}
}

// Provider drives a single certificate order through the ACME protocol. It is
// stateful and not safe for concurrent use: create one provider per
// acquisition and serialize operations on it.
type Provider struct {
	httpClient   *http.Client
	userAgent    string
	logger       *slog.Logger
	pollAttempts int
	pollInterval time.Duration

	core       *api.Core
	account    Account
	request    Request
	certKey    crypto.Signer
	order      *Order
	challenges []AuthorizationChallenge
}

// NewProvider creates an uninitialized provider. Initialize must be called
// before any order operation.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    "certkit",
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollAttempts: 5,
		pollInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize binds the provider to an account and a certificate request. The
// account key must already exist; the certificate key is generated when the
// request does not carry one.
func (p *Provider) Initialize(account Account, req Request) error {
	if len(account.KeyPEM) == 0 {
		return ErrAccountKeyRequired
	}
	if req.ChallengeType != ChallengeTypeDNS01 && req.ChallengeType != ChallengeTypeHTTP01 {
		return fmt.Errorf("%w: %q", ErrUnsupportedChallengeType, req.ChallengeType)
	}

	accountKey, err := certcrypto.ParsePEMPrivateKey(account.KeyPEM)
	if err != nil {
		return fmt.Errorf("acme: parse account key: %w", err)
	}

	if len(req.KeyPEM) == 0 {
		key, err := certcrypto.GeneratePrivateKey(certcrypto.EC256)
		if err != nil {
			return fmt.Errorf("acme: generate certificate key: %w", err)
		}
		req.KeyPEM = certcrypto.PEMEncode(key)
	}
	certKey, err := certcrypto.ParsePEMPrivateKey(req.KeyPEM)
	if err != nil {
		return fmt.Errorf("acme: parse certificate key: %w", err)
	}
	signer, ok := certKey.(crypto.Signer)
	if !ok {
		return fmt.Errorf("acme: certificate key does not implement crypto.Signer")
	}

	core, err := api.New(p.httpClient, p.userAgent, account.DirectoryURL, account.KID, accountKey)
	if err != nil {
		return fmt.Errorf("acme: connect directory: %w", err)
	}

	p.core = core
	p.account = account
	p.request = req
	p.certKey = signer
	p.order = nil
	p.challenges = nil
	return nil
}

// Request returns the request bound at Initialize, including a generated
// certificate key if the caller did not supply one.
func (p *Provider) Request() Request {
	return p.request
}

// Order returns the active order, nil before BeginOrder.
func (p *Provider) Order() *Order {
	return p.order
}

// PendingChallenges returns a copy of the transient challenge material for
// the active order.
func (p *Provider) PendingChallenges() []AuthorizationChallenge {
	out := make([]AuthorizationChallenge, len(p.challenges))
	copy(out, p.challenges)
	return out
}

// ClearChallenges discards transient challenge material. Called once the
// order reaches a terminal status.
func (p *Provider) ClearChallenges() {
	p.challenges = nil
}

// BeginOrder creates a new order for the request's domains, fetches every
// authorization concurrently and records the challenge material for the
// configured challenge type. Protocol failures move the order to Error with
// a recorded message instead of returning a Go error; partial challenge
// progress is discarded on failure.
func (p *Provider) BeginOrder(ctx context.Context) (*Order, error) {
	if p.core == nil {
		return nil, ErrNotInitialized
	}

	order := &Order{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Status:    OrderStatusCreated,
	}
	p.order = order
	p.challenges = nil

	domains := p.request.Domains()
	if len(domains) == 0 {
		order.fail("no domains to order")
		return order, nil
	}
	p.logger.InfoContext(ctx, "creating acme order",
		logger.Subject(p.request.Subject), logger.OrderID(order.ID.String()))

	ext, err := p.core.Orders.New(domains)
	if err != nil {
		order.fail(problemMessage(err))
		return order, nil
	}
	order.Location = ext.Location
	order.FinalizeURL = ext.Finalize

	challenges := make([]AuthorizationChallenge, len(ext.Authorizations))
	errs := make([]error, len(ext.Authorizations))
	var g errgroup.Group
	for i, authzURL := range ext.Authorizations {
		g.Go(func() error {
			ch, err := p.challengeFor(authzURL)
			if err != nil {
				errs[i] = err
				return nil
			}
			challenges[i] = ch
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		order.fail(err.Error())
		return order, nil
	}

	p.challenges = challenges
	order.Status = OrderStatusChallenging
	return order, nil
}

// challengeFor fetches one authorization and extracts the challenge matching
// the request's challenge type.
func (p *Provider) challengeFor(authzURL string) (AuthorizationChallenge, error) {
	authz, err := p.core.Authorizations.Get(authzURL)
	if err != nil {
		return AuthorizationChallenge{}, fmt.Errorf("authorization %s: %s", authzURL, problemMessage(err))
	}

	domain := authz.Identifier.Value
	if authz.Wildcard {
		domain = "*." + domain
	}

	for _, c := range authz.Challenges {
		if c.Type != p.request.ChallengeType {
			continue
		}
		keyAuth, err := p.core.GetKeyAuthorization(c.Token)
		if err != nil {
			return AuthorizationChallenge{}, fmt.Errorf("%s: key authorization: %w", domain, err)
		}
		ch := AuthorizationChallenge{
			Domain:           domain,
			AuthorizationURL: authzURL,
			ChallengeURL:     c.URL,
			Token:            c.Token,
			KeyAuthorization: keyAuth,
		}
		if p.request.ChallengeType == ChallengeTypeDNS01 {
			ch.DNSRecordValue = dnsRecordValue(keyAuth)
		}
		return ch, nil
	}
	return AuthorizationChallenge{}, fmt.Errorf("%s: no %s challenge offered", domain, p.request.ChallengeType)
}

// dnsRecordValue derives the dns-01 TXT value from a key authorization.
func dnsRecordValue(keyAuth string) string {
	sum := sha256.Sum256([]byte(keyAuth))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Validate asks the server to validate every pending challenge. No-op unless
// the order is exactly in Challenging. Protocol failures move the order to
// Error instead of returning a Go error.
func (p *Provider) Validate(ctx context.Context) (*Order, error) {
	if p.core == nil {
		return nil, ErrNotInitialized
	}
	if p.order == nil {
		return nil, ErrNoOrder
	}
	order := p.order
	if order.Status != OrderStatusChallenging {
		return order, nil
	}
	p.logger.InfoContext(ctx, "triggering challenge validation",
		logger.Subject(p.request.Subject), logger.OrderID(order.ID.String()))

	errs := make([]error, len(p.challenges))
	var g errgroup.Group
	for i, ch := range p.challenges {
		g.Go(func() error {
			if _, err := p.core.Challenges.New(ch.ChallengeURL); err != nil {
				errs[i] = fmt.Errorf("%s: %s", ch.Domain, problemMessage(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		order.fail(err.Error())
		return order, nil
	}

	order.Status = OrderStatusValidating
	return order, nil
}

// Complete polls the order's authorizations until each reaches a terminal
// status or the poll budget is exhausted, then finalizes the order with a CSR
// and downloads the issued chain. No-op unless the order is exactly in
// Validating. Failed authorizations move the order to Invalid with the
// server's problem details recorded; protocol failures move it to Error.
func (p *Provider) Complete(ctx context.Context) (*Order, error) {
	if p.core == nil {
		return nil, ErrNotInitialized
	}
	if p.order == nil {
		return nil, ErrNoOrder
	}
	order := p.order
	if order.Status != OrderStatusValidating {
		return order, nil
	}

	pending := make(map[string]string, len(p.challenges)) // authz URL → domain
	for _, ch := range p.challenges {
		pending[ch.AuthorizationURL] = ch.Domain
	}

	var failures []string
	invalid := 0
	for round := 0; round < p.pollAttempts && len(pending) > 0; round++ {
		if round > 0 {
			select {
			case <-ctx.Done():
				order.fail(ctx.Err().Error())
				return order, nil
			case <-time.After(p.pollInterval):
			}
		}

		for authzURL, domain := range pending {
			authz, err := p.core.Authorizations.Get(authzURL)
			order.RequestCount++
			if err != nil {
				order.fail(fmt.Sprintf("%s: %s", domain, problemMessage(err)))
				return order, nil
			}

			switch authz.Status {
			case legoacme.StatusValid:
				delete(pending, authzURL)
			case legoacme.StatusInvalid, legoacme.StatusDeactivated, legoacme.StatusExpired, legoacme.StatusRevoked:
				delete(pending, authzURL)
				invalid++
				failures = append(failures, authzFailures(domain, authz)...)
			}
		}
	}

	for _, domain := range pending {
		failures = append(failures, fmt.Sprintf("%s: authorization still pending after %d attempts", domain, p.pollAttempts))
	}

	if len(failures) > 0 {
		order.Status = OrderStatusInvalid
		order.InvalidResponseCount = invalid
		order.Errors = append(order.Errors, failures...)
		return order, nil
	}

	if err := p.finalize(ctx, order); err != nil {
		order.fail(problemMessage(err))
	}
	return order, nil
}

// authzFailures formats the challenge problems of a failed authorization.
func authzFailures(domain string, authz legoacme.Authorization) []string {
	var out []string
	for _, c := range authz.Challenges {
		if c.Error == nil {
			continue
		}
		out = append(out, fmt.Sprintf("%s %s %s", c.Status, c.Error.Type, c.Error.Detail))
	}
	if len(out) == 0 {
		out = append(out, fmt.Sprintf("%s: authorization %s", domain, authz.Status))
	}
	return out
}

// finalize submits the CSR, waits for issuance and stores the chain and the
// leaf snapshot on the order.
func (p *Provider) finalize(ctx context.Context, order *Order) error {
	csr, err := p.buildCSR()
	if err != nil {
		return err
	}

	resp, err := p.core.Orders.UpdateForCSR(order.FinalizeURL, csr)
	if err != nil {
		return err
	}

	certURL := resp.Certificate
	for round := 0; certURL == "" && round < p.pollAttempts; round++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
		current, err := p.core.Orders.Get(order.Location)
		if err != nil {
			return err
		}
		if current.Status == legoacme.StatusInvalid {
			return fmt.Errorf("order %s became invalid during finalization", order.Location)
		}
		certURL = current.Certificate
	}
	if certURL == "" {
		return fmt.Errorf("order %s: no certificate issued after %d attempts", order.Location, p.pollAttempts)
	}

	chain, _, err := p.core.Certificates.Get(certURL, true)
	if err != nil {
		return err
	}

	snapshot, err := certinfo.ParseChainPEM(chain, certinfo.SourceACME)
	if err != nil {
		return fmt.Errorf("parse issued chain: %w", err)
	}

	order.RawChainPEM = string(chain)
	order.Certificate = snapshot
	order.Status = OrderStatusCompleted
	p.logger.InfoContext(ctx, "order completed",
		logger.Subject(p.request.Subject),
		logger.OrderID(order.ID.String()),
		logger.Thumbprint(snapshot.Thumbprint))
	return nil
}

// buildCSR creates a certificate request from the stored subject fields,
// omitting empty ones, signed with the certificate key.
func (p *Provider) buildCSR() ([]byte, error) {
	name := pkix.Name{CommonName: p.request.Subject}
	if p.request.Organization != "" {
		name.Organization = []string{p.request.Organization}
	}
	if p.request.OrganizationalUnit != "" {
		name.OrganizationalUnit = []string{p.request.OrganizationalUnit}
	}
	if p.request.Country != "" {
		name.Country = []string{p.request.Country}
	}
	if p.request.State != "" {
		name.Province = []string{p.request.State}
	}
	if p.request.Locality != "" {
		name.Locality = []string{p.request.Locality}
	}

	tmpl := &x509.CertificateRequest{
		Subject:  name,
		DNSNames: p.request.Domains(),
	}
	return x509.CreateCertificateRequest(rand.Reader, tmpl, p.certKey)
}

// Revoke revokes a certificate in the account's context. Revocation is not
// part of the order state machine.
func (p *Provider) Revoke(ctx context.Context, der []byte, reason uint) error {
	if p.core == nil {
		return ErrNotInitialized
	}
	p.logger.InfoContext(ctx, "revoking certificate", logger.Thumbprint(certinfo.Thumbprint(der)))
	return p.core.Certificates.Revoke(legoacme.RevokeCertMessage{
		Certificate: base64.RawURLEncoding.EncodeToString(der),
		Reason:      &reason,
	})
}

// problemMessage renders an error for order records, expanding ACME problem
// documents into their type and detail.
func problemMessage(err error) string {
	var problem *legoacme.ProblemDetails
	if errors.As(err, &problem) {
		return fmt.Sprintf("%s %s", problem.Type, problem.Detail)
	}
	return err.Error()
}
