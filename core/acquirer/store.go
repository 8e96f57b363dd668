package acquirer

import (
	"context"

	"github.com/dmitrymomot/certkit/core/acme"
)

// OrderStore persists finished orders. Implementations decide the backing
// storage; the acquirer only needs the most recent completed order per
// subject to enrich failure notifications.
type OrderStore interface {
	// SaveOrder persists the outcome of an acquisition.
	SaveOrder(ctx context.Context, subject string, order *acme.Order) error

	// LastValidOrder returns the most recent completed order for the
	// subject, or nil when none exists.
	LastValidOrder(ctx context.Context, subject string) (*acme.Order, error)
}
