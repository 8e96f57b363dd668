package notification

import (
	"fmt"
	"strings"
	"time"
)

// Event is a notification payload. Implementations are plain structs with
// fixed fields; Message renders a human-readable summary by simple
// interpolation, leaving formatting to delivery channels.
type Event interface {
	EventType() string
	Message() string
}

// CertificateChanged reports that a tracked domain started presenting a
// different certificate.
type CertificateChanged struct {
	Domain             string
	PreviousThumbprint string
	NewThumbprint      string
	PreviousNotAfter   time.Time
	NewNotAfter        time.Time
	OccurredAt         time.Time
}

func (CertificateChanged) EventType() string { return "certificate.changed" }

func (e CertificateChanged) Message() string {
	return fmt.Sprintf("certificate for %s changed from %s to %s, new certificate valid until %s",
		e.Domain, e.PreviousThumbprint, e.NewThumbprint, e.NewNotAfter.Format(time.RFC3339))
}

// CertificateExpiring reports that a stored certificate crossed an expiry
// threshold.
type CertificateExpiring struct {
	Subject       string
	Thumbprint    string
	NotAfter      time.Time
	DaysRemaining int
	Threshold     int
}

func (CertificateExpiring) EventType() string { return "certificate.expiring" }

func (e CertificateExpiring) Message() string {
	if e.DaysRemaining < 0 {
		return fmt.Sprintf("certificate for %s expired on %s", e.Subject, e.NotAfter.Format(time.RFC3339))
	}
	return fmt.Sprintf("certificate for %s expires in %d days on %s",
		e.Subject, e.DaysRemaining, e.NotAfter.Format(time.RFC3339))
}

// AcquisitionFailed reports a certificate acquisition that ended in a
// terminal non-completed status. The previous certificate details give the
// receiver the remaining runway.
type AcquisitionFailed struct {
	Subject            string
	Errors             []string
	PreviousThumbprint string
	PreviousNotBefore  time.Time
	PreviousNotAfter   time.Time
	LastAcquired       *time.Time
}

func (AcquisitionFailed) EventType() string { return "certificate.acquisition_failed" }

func (e AcquisitionFailed) Message() string {
	msg := fmt.Sprintf("certificate acquisition for %s failed: %s", e.Subject, strings.Join(e.Errors, "; "))
	if e.PreviousThumbprint != "" {
		msg += fmt.Sprintf(" (current certificate %s valid until %s)",
			e.PreviousThumbprint, e.PreviousNotAfter.Format(time.RFC3339))
	}
	return msg
}
