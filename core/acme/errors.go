package acme

import "errors"

var (
	// ErrNotInitialized is returned when an order operation is invoked
	// before Initialize.
	ErrNotInitialized = errors.New("acme: provider not initialized")

	// ErrNoOrder is returned when Validate or Complete is called before
	// BeginOrder.
	ErrNoOrder = errors.New("acme: no active order")

	// ErrAccountKeyRequired is returned when an account operation is given
	// an account without a private key.
	ErrAccountKeyRequired = errors.New("acme: account key required")

	// ErrUnsupportedChallengeType is returned for challenge types other
	// than dns-01 and http-01.
	ErrUnsupportedChallengeType = errors.New("acme: unsupported challenge type")

	// ErrNoScripts is returned when DNS record operations are requested
	// without configured scripts.
	ErrNoScripts = errors.New("acme: no dns scripts configured")
)
