// Package acme drives certificate orders through the ACME protocol (RFC
// 8555) with an explicit, observable state machine. Unlike autocert-style
// clients the workflow is split into discrete steps so callers can inject
// DNS record publication, propagation checks and persistence between them.
//
// # Order lifecycle
//
//	Created → Challenging → Validating → Completed
//	                                   ↘ Invalid
//	any non-terminal state → Error
//
// Transitions only move forward. Validate and Complete are no-ops unless the
// order is exactly one step behind them, which makes the workflow safe to
// re-drive.
//
// # Types
//
//   - Provider: stateful order workflow bound to one account and request
//   - Account: ACME account (email, key PEM, directory, key identifier)
//   - Request: certificate subject, SANs, challenge type, CSR fields
//   - Order: durable record of one acquisition attempt
//   - AuthorizationChallenge: transient per-domain challenge material
//   - DNSScripts: external scripts publishing dns-01 TXT records
//
// # Errors
//
// Protocol failures are recorded on the order (Status Error or Invalid with
// messages) rather than returned as Go errors; the sentinel errors
// (ErrNotInitialized, ErrNoOrder, ErrAccountKeyRequired,
// ErrUnsupportedChallengeType, ErrNoScripts) signal caller misuse only.
//
// # Basic Usage
//
//	provider := acme.NewProvider()
//
//	keyPEM, err := acme.NewAccountKey()
//	if err != nil {
//		log.Fatal(err)
//	}
//	account, err := provider.CreateAccount(ctx, acme.Account{
//		Email:        "admin@example.com",
//		KeyPEM:       keyPEM,
//		DirectoryURL: acme.LetsEncryptStagingDir,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := provider.Initialize(account, acme.Request{
//		Subject:       "example.com",
//		SANs:          []string{"www.example.com"},
//		ChallengeType: acme.ChallengeTypeDNS01,
//	}); err != nil {
//		log.Fatal(err)
//	}
//
//	order, _ := provider.BeginOrder(ctx)
//	// publish TXT records for provider.PendingChallenges(), then:
//	order, _ = provider.Validate(ctx)
//	order, _ = provider.Complete(ctx)
//	if order.Status == acme.OrderStatusCompleted {
//		fmt.Println(order.Certificate.Thumbprint)
//	}
//
// A Provider carries one order at a time and is not safe for concurrent use;
// create one per acquisition.
package acme
