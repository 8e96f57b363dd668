package scanner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/certkit/pkg/certinfo"
)

// Scan records one observation of a domain's TLS endpoint. Scans are
// append-only: a new observation never rewrites an older one.
type Scan struct {
	ID      uuid.UUID
	Domain  string
	Success bool

	// Status and Messages carry the probe diagnostics.
	Status   string
	Messages []string

	// Certificate is the captured leaf snapshot, nil for failed scans.
	Certificate *certinfo.Certificate

	Timestamp time.Time
}

// ChangeEvent records a certificate change between two successful scans of
// the same domain. ProcessedAt stays nil until a dispatcher has notified
// subscribers.
type ChangeEvent struct {
	ID          uuid.UUID
	Domain      string
	Previous    *certinfo.Certificate
	New         *certinfo.Certificate
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ScanStore persists scans and change events. Implementations decide the
// backing storage; the scanner only requires the last successful scan per
// domain to be retrievable.
type ScanStore interface {
	// LastSuccessfulScan returns the most recent successful scan for the
	// domain, or nil when the domain has never been scanned successfully.
	LastSuccessfulScan(ctx context.Context, domain string) (*Scan, error)

	// SaveScan persists a scan.
	SaveScan(ctx context.Context, scan *Scan) error

	// SaveChangeEvent persists a detected certificate change.
	SaveChangeEvent(ctx context.Context, event *ChangeEvent) error
}
