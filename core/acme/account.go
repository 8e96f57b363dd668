package acme

import (
	"context"
	"errors"
	"fmt"
	"strings"

	legoacme "github.com/go-acme/lego/v4/acme"
	"github.com/go-acme/lego/v4/acme/api"
	"github.com/go-acme/lego/v4/certcrypto"

	"github.com/dmitrymomot/certkit/core/logger"
)

// NewAccountKey generates a fresh EC P-256 account key in PEM form.
func NewAccountKey() ([]byte, error) {
	key, err := certcrypto.GeneratePrivateKey(certcrypto.EC256)
	if err != nil {
		return nil, fmt.Errorf("acme: generate account key: %w", err)
	}
	return certcrypto.PEMEncode(key), nil
}

// CreateAccount registers the account's key with its directory, agreeing to
// the terms of service, and returns the account with the server-assigned key
// identifier filled in. Registering an already-known key returns the existing
// account.
func (p *Provider) CreateAccount(ctx context.Context, account Account) (Account, error) {
	if len(account.KeyPEM) == 0 {
		return account, ErrAccountKeyRequired
	}

	key, err := certcrypto.ParsePEMPrivateKey(account.KeyPEM)
	if err != nil {
		return account, fmt.Errorf("acme: parse account key: %w", err)
	}

	core, err := api.New(p.httpClient, p.userAgent, account.DirectoryURL, "", key)
	if err != nil {
		return account, fmt.Errorf("acme: connect directory: %w", err)
	}

	msg := legoacme.Account{TermsOfServiceAgreed: true}
	if email := strings.TrimSpace(account.Email); email != "" {
		msg.Contact = []string{"mailto:" + email}
	}

	created, err := core.Accounts.New(msg)
	if err != nil {
		return account, fmt.Errorf("acme: create account: %w", err)
	}

	account.KID = created.Location
	p.logger.InfoContext(ctx, "acme account registered", logger.Email(account.Email))
	return account, nil
}

// AccountExists reports whether the account's key is already registered with
// its directory.
func (p *Provider) AccountExists(ctx context.Context, account Account) (bool, error) {
	if len(account.KeyPEM) == 0 {
		return false, ErrAccountKeyRequired
	}

	key, err := certcrypto.ParsePEMPrivateKey(account.KeyPEM)
	if err != nil {
		return false, fmt.Errorf("acme: parse account key: %w", err)
	}

	core, err := api.New(p.httpClient, p.userAgent, account.DirectoryURL, "", key)
	if err != nil {
		return false, fmt.Errorf("acme: connect directory: %w", err)
	}

	_, err = core.Accounts.New(legoacme.Account{OnlyReturnExisting: true})
	if err != nil {
		var problem *legoacme.ProblemDetails
		if errors.As(err, &problem) && strings.HasSuffix(problem.Type, "accountDoesNotExist") {
			return false, nil
		}
		return false, fmt.Errorf("acme: account lookup: %w", err)
	}
	p.logger.DebugContext(ctx, "acme account found", logger.Email(account.Email))
	return true, nil
}
