package acme

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/certkit/pkg/certinfo"
	"github.com/dmitrymomot/certkit/pkg/domainutil"
)

// Well-known ACME directory endpoints.
const (
	LetsEncryptProductionDir = "https://acme-v02.api.letsencrypt.org/directory"
	LetsEncryptStagingDir    = "https://acme-staging-v02.api.letsencrypt.org/directory"
)

// Challenge types supported by the order workflow.
const (
	ChallengeTypeDNS01  = "dns-01"
	ChallengeTypeHTTP01 = "http-01"
)

// OrderStatus tracks an order through its lifecycle. Transitions only move
// forward: Created → Challenging → Validating → {Completed | Invalid}, with
// Error reachable from any non-terminal state.
type OrderStatus string

const (
	OrderStatusCreated     OrderStatus = "created"
	OrderStatusChallenging OrderStatus = "challenging"
	OrderStatusValidating  OrderStatus = "validating"
	OrderStatusInvalid     OrderStatus = "invalid"
	OrderStatusError       OrderStatus = "error"
	OrderStatusCompleted   OrderStatus = "completed"
)

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusInvalid, OrderStatusError, OrderStatusCompleted:
		return true
	}
	return false
}

// Account identifies an ACME account: the contact email, the account key in
// PEM form, the directory it was registered against and the key identifier
// (account URL) assigned by the server.
type Account struct {
	Email        string
	KeyPEM       []byte
	DirectoryURL string
	KID          string
}

// Request describes the certificate being ordered. Subject and SANs together
// form the identifier list; the remaining subject fields flow into the CSR
// when non-empty. KeyPEM holds the certificate private key; when empty a
// fresh EC key is generated during Initialize.
type Request struct {
	Subject            string
	SANs               []string
	ChallengeType      string
	Organization       string
	OrganizationalUnit string
	Country            string
	State              string
	Locality           string
	KeyPEM             []byte
}

// Domains returns the normalized, order-preserving deduplicated identifier
// list: the subject first, then each SAN not already present.
func (r Request) Domains() []string {
	seen := make(map[string]struct{}, len(r.SANs)+1)
	out := make([]string, 0, len(r.SANs)+1)
	for _, raw := range append([]string{r.Subject}, r.SANs...) {
		d := domainutil.Normalize(raw)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// AuthorizationChallenge captures the per-domain challenge material issued by
// the server. It is transient workflow state: once an order reaches a
// terminal status the slice is cleared.
type AuthorizationChallenge struct {
	Domain           string
	AuthorizationURL string
	ChallengeURL     string
	Token            string
	KeyAuthorization string

	// DNSRecordValue is the TXT value for dns-01 challenges, empty otherwise.
	DNSRecordValue string
}

// Order is the durable record of one acquisition attempt.
type Order struct {
	ID        uuid.UUID
	CreatedAt time.Time

	Status OrderStatus
	Errors []string

	// RequestCount counts authorization status queries issued while polling;
	// InvalidResponseCount counts authorizations that ended invalid.
	RequestCount         int
	InvalidResponseCount int

	// Location and FinalizeURL are the server-assigned order resources.
	Location    string
	FinalizeURL string

	// RawChainPEM and Certificate are populated on completion.
	RawChainPEM string
	Certificate *certinfo.Certificate
}

// fail moves the order to Error with a message. No-op on terminal orders.
func (o *Order) fail(msg string) {
	if o.Status.Terminal() {
		return
	}
	o.Status = OrderStatusError
	o.Errors = append(o.Errors, msg)
}
