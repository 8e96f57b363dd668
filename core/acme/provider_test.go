package acme_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkit/core/acme"
	"github.com/dmitrymomot/certkit/pkg/certinfo"
	"github.com/dmitrymomot/certkit/pkg/scriptrunner"
)

func newTestProvider(t *testing.T, f *fakeACME, req acme.Request) *acme.Provider {
	t.Helper()

	provider := acme.NewProvider(acme.WithPollSchedule(3, 10*time.Millisecond))

	keyPEM, err := acme.NewAccountKey()
	require.NoError(t, err)

	account, err := provider.CreateAccount(context.Background(), acme.Account{
		Email:        "admin@example.com",
		KeyPEM:       keyPEM,
		DirectoryURL: f.directoryURL(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, account.KID)

	require.NoError(t, provider.Initialize(account, req))
	return provider
}

func TestOrderLifecycleHTTP01(t *testing.T) {
	f := newFakeACME(t, "valid")
	provider := newTestProvider(t, f, acme.Request{
		Subject:       "Example.COM",
		SANs:          []string{"www.example.com", "EXAMPLE.com", "www.example.com"},
		ChallengeType: acme.ChallengeTypeHTTP01,
	})
	ctx := context.Background()

	order, err := provider.BeginOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, acme.OrderStatusChallenging, order.Status)
	assert.NotEmpty(t, order.Location)
	assert.NotEmpty(t, order.FinalizeURL)

	// Case-folded, order-preserving dedup: subject first, then new SANs.
	assert.Equal(t, []string{"example.com", "www.example.com"}, f.domains)

	challenges := provider.PendingChallenges()
	require.Len(t, challenges, 2)
	for _, ch := range challenges {
		assert.NotEmpty(t, ch.Token)
		assert.NotEmpty(t, ch.KeyAuthorization)
		assert.Empty(t, ch.DNSRecordValue, "http-01 must not carry a TXT value")
	}

	order, err = provider.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, acme.OrderStatusValidating, order.Status)

	order, err = provider.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, acme.OrderStatusCompleted, order.Status)
	assert.Empty(t, order.Errors)
	assert.Equal(t, 2, order.RequestCount)
	assert.Zero(t, order.InvalidResponseCount)

	require.NotNil(t, order.Certificate)
	assert.Equal(t, certinfo.SourceACME, order.Certificate.Source)
	assert.Equal(t, "example.com", order.Certificate.Subject)
	assert.NotEmpty(t, order.Certificate.Thumbprint)
	assert.ElementsMatch(t, []string{"example.com", "www.example.com"}, order.Certificate.SANs())
	assert.True(t, strings.HasPrefix(order.RawChainPEM, "-----BEGIN CERTIFICATE-----"))
}

func TestCompleteInvalidAuthorization(t *testing.T) {
	f := newFakeACME(t, "invalid")
	provider := newTestProvider(t, f, acme.Request{
		Subject:       "example.com",
		ChallengeType: acme.ChallengeTypeHTTP01,
	})
	ctx := context.Background()

	_, err := provider.BeginOrder(ctx)
	require.NoError(t, err)
	_, err = provider.Validate(ctx)
	require.NoError(t, err)

	order, err := provider.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, acme.OrderStatusInvalid, order.Status)
	assert.Equal(t, 1, order.InvalidResponseCount)
	require.NotEmpty(t, order.Errors)
	assert.Contains(t, order.Errors[0], "urn:ietf:params:acme:error:unauthorized")
	assert.Nil(t, order.Certificate)
}

func TestStateMachineGuards(t *testing.T) {
	t.Run("uninitialized", func(t *testing.T) {
		provider := acme.NewProvider()
		_, err := provider.BeginOrder(context.Background())
		assert.ErrorIs(t, err, acme.ErrNotInitialized)
	})

	t.Run("no order", func(t *testing.T) {
		f := newFakeACME(t, "valid")
		provider := newTestProvider(t, f, acme.Request{
			Subject:       "example.com",
			ChallengeType: acme.ChallengeTypeHTTP01,
		})
		_, err := provider.Validate(context.Background())
		assert.ErrorIs(t, err, acme.ErrNoOrder)
		_, err = provider.Complete(context.Background())
		assert.ErrorIs(t, err, acme.ErrNoOrder)
	})

	t.Run("complete before validate is a no-op", func(t *testing.T) {
		f := newFakeACME(t, "valid")
		provider := newTestProvider(t, f, acme.Request{
			Subject:       "example.com",
			ChallengeType: acme.ChallengeTypeHTTP01,
		})
		ctx := context.Background()

		order, err := provider.BeginOrder(ctx)
		require.NoError(t, err)
		require.Equal(t, acme.OrderStatusChallenging, order.Status)

		order, err = provider.Complete(ctx)
		require.NoError(t, err)
		assert.Equal(t, acme.OrderStatusChallenging, order.Status)
		assert.False(t, f.finalized)
	})

	t.Run("validate twice is a no-op", func(t *testing.T) {
		f := newFakeACME(t, "valid")
		provider := newTestProvider(t, f, acme.Request{
			Subject:       "example.com",
			ChallengeType: acme.ChallengeTypeHTTP01,
		})
		ctx := context.Background()

		_, err := provider.BeginOrder(ctx)
		require.NoError(t, err)
		_, err = provider.Validate(ctx)
		require.NoError(t, err)

		f.mu.Lock()
		queriesBefore := f.authzQueries
		f.mu.Unlock()

		order, err := provider.Validate(ctx)
		require.NoError(t, err)
		assert.Equal(t, acme.OrderStatusValidating, order.Status)

		f.mu.Lock()
		assert.Equal(t, queriesBefore, f.authzQueries, "repeated validate must not hit the server")
		f.mu.Unlock()
	})
}

func TestBeginOrderDNS01RecordValues(t *testing.T) {
	f := newFakeACME(t, "valid")
	provider := newTestProvider(t, f, acme.Request{
		Subject:       "example.com",
		SANs:          []string{"www.example.com"},
		ChallengeType: acme.ChallengeTypeDNS01,
	})

	_, err := provider.BeginOrder(context.Background())
	require.NoError(t, err)

	challenges := provider.PendingChallenges()
	require.Len(t, challenges, 2)
	for _, ch := range challenges {
		sum := sha256.Sum256([]byte(ch.KeyAuthorization))
		assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), ch.DNSRecordValue)
	}

	provider.ClearChallenges()
	assert.Empty(t, provider.PendingChallenges())
}

func TestSetAndCleanupDNSRecords(t *testing.T) {
	f := newFakeACME(t, "valid")
	provider := newTestProvider(t, f, acme.Request{
		Subject:       "www.example.com",
		ChallengeType: acme.ChallengeTypeDNS01,
	})
	ctx := context.Background()

	_, err := provider.BeginOrder(ctx)
	require.NoError(t, err)
	challenges := provider.PendingChallenges()
	require.Len(t, challenges, 1)

	dir := t.TempDir()
	logFile := filepath.Join(dir, "calls.log")
	script := filepath.Join(dir, "dns.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" >> "+logFile+"\n"), 0o755))

	scripts := acme.DNSScripts{
		SetScript:        script,
		SetArguments:     "set {{FullRecord}} {{Value}}",
		CleanupScript:    script,
		CleanupArguments: "cleanup {{Record}} {{Domain}}",
	}
	runner := scriptrunner.New()

	require.NoError(t, provider.SetDNSRecords(ctx, runner, scripts))
	require.NoError(t, provider.CleanupDNSRecords(ctx, runner, scripts))

	out, err := os.ReadFile(logFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "set _acme-challenge.www.example.com "+challenges[0].DNSRecordValue, lines[0])
	assert.Equal(t, "cleanup _acme-challenge.www example.com", lines[1])
}

func TestAccountExists(t *testing.T) {
	f := newFakeACME(t, "valid")
	provider := acme.NewProvider()

	keyPEM, err := acme.NewAccountKey()
	require.NoError(t, err)
	account := acme.Account{
		Email:        "admin@example.com",
		KeyPEM:       keyPEM,
		DirectoryURL: f.directoryURL(),
	}

	exists, err := provider.AccountExists(context.Background(), account)
	require.NoError(t, err)
	assert.False(t, exists)

	account, err = provider.CreateAccount(context.Background(), account)
	require.NoError(t, err)

	exists, err = provider.AccountExists(context.Background(), account)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRevoke(t *testing.T) {
	f := newFakeACME(t, "valid")
	provider := newTestProvider(t, f, acme.Request{
		Subject:       "example.com",
		ChallengeType: acme.ChallengeTypeHTTP01,
	})
	ctx := context.Background()

	_, err := provider.BeginOrder(ctx)
	require.NoError(t, err)
	_, err = provider.Validate(ctx)
	require.NoError(t, err)
	order, err := provider.Complete(ctx)
	require.NoError(t, err)
	require.Equal(t, acme.OrderStatusCompleted, order.Status)

	leaf, err := order.Certificate.X509()
	require.NoError(t, err)
	require.NoError(t, provider.Revoke(ctx, leaf.Raw, 0))

	f.mu.Lock()
	assert.True(t, f.revoked)
	f.mu.Unlock()
}

func TestRequestDomains(t *testing.T) {
	req := acme.Request{
		Subject: "Example.com",
		SANs:    []string{"WWW.Example.com", "example.COM", "", "api.example.com"},
	}
	assert.Equal(t, []string{"example.com", "www.example.com", "api.example.com"}, req.Domains())
}
