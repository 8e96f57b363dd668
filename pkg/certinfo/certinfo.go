package certinfo

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"strings"
	"time"

	"github.com/dmitrymomot/certkit/pkg/domainutil"
)

// Source identifies how a certificate snapshot entered the system.
type Source string

const (
	// SourceTrackedDomain marks certificates observed by scanning a domain.
	SourceTrackedDomain Source = "tracked_domain"

	// SourceUploaded marks certificates uploaded by a user.
	SourceUploaded Source = "uploaded"

	// SourceACME marks certificates issued through the ACME orchestrator.
	SourceACME Source = "acme"
)

// Certificate is an immutable snapshot of an X.509 certificate. Never mutated
// after creation; many scans may reference the same snapshot.
type Certificate struct {
	// RawData holds the base64-encoded DER bytes of the certificate.
	RawData string

	// Thumbprint is the lowercase hex SHA-256 digest of the DER encoding.
	Thumbprint string

	SerialNumber      string
	NotBefore         time.Time
	NotAfter          time.Time
	Subject           string
	Issuer            string
	RegistrableDomain string
	Source            Source
	CreatedAt         time.Time
}

// Thumbprint computes the lowercase hex SHA-256 digest of DER-encoded
// certificate bytes.
func Thumbprint(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

// FromX509 builds a snapshot from a parsed certificate. Returns nil for a nil
// certificate so callers can pass through a failed capture unchanged.
func FromX509(cert *x509.Certificate, source Source) *Certificate {
	if cert == nil {
		return nil
	}

	subject := cert.Subject.CommonName
	if len(cert.DNSNames) > 0 {
		subject = cert.DNSNames[0]
	}

	issuer := cert.Issuer.CommonName
	if issuer == "" {
		issuer = cert.Issuer.String()
	}

	return &Certificate{
		RawData:           base64.StdEncoding.EncodeToString(cert.Raw),
		Thumbprint:        Thumbprint(cert.Raw),
		SerialNumber:      cert.SerialNumber.Text(16),
		NotBefore:         cert.NotBefore,
		NotAfter:          cert.NotAfter,
		Subject:           subject,
		Issuer:            issuer,
		RegistrableDomain: domainutil.Registrable(subject),
		Source:            source,
		CreatedAt:         time.Now().UTC(),
	}
}

// ParseChainPEM builds a snapshot of the leaf certificate from a PEM-encoded
// chain. The first CERTIFICATE block is treated as the leaf.
func ParseChainPEM(chain []byte, source Source) (*Certificate, error) {
	rest := chain
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, ErrNoCertificate
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		return FromX509(cert, source), nil
	}
}

// X509 parses the snapshot back into an x509.Certificate.
func (c *Certificate) X509() (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(c.RawData)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}

// ExpiresWithinDays reports whether the certificate expires within the given
// number of days from now (or has already expired).
func (c *Certificate) ExpiresWithinDays(days int) bool {
	return !time.Now().Before(c.NotAfter.AddDate(0, 0, -days))
}

// SANs returns the DNS subject alternative names of the snapshot.
func (c *Certificate) SANs() []string {
	cert, err := c.X509()
	if err != nil {
		return nil
	}

	sans := make([]string, 0, len(cert.DNSNames))
	for _, name := range cert.DNSNames {
		if name = strings.TrimSpace(name); name != "" {
			sans = append(sans, name)
		}
	}
	return sans
}
