package certinfo

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

func testCert(t *testing.T, cn string, dnsNames []string, notAfter time.Time) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: cn},
		DNSNames:     dnsNames,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

func TestFromX509(t *testing.T) {
	cert := testCert(t, "example.com", []string{"www.example.com", "example.com"}, time.Now().Add(90*24*time.Hour))

	snap := FromX509(cert, SourceTrackedDomain)
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if snap.Subject != "www.example.com" {
		t.Errorf("subject = %q, want first DNS name", snap.Subject)
	}
	if snap.RegistrableDomain != "example.com" {
		t.Errorf("registrable domain = %q, want example.com", snap.RegistrableDomain)
	}
	if snap.Thumbprint != Thumbprint(cert.Raw) {
		t.Error("thumbprint does not match raw DER digest")
	}
	if snap.Source != SourceTrackedDomain {
		t.Errorf("source = %q", snap.Source)
	}

	roundTrip, err := snap.X509()
	if err != nil {
		t.Fatalf("X509: %v", err)
	}
	if Thumbprint(roundTrip.Raw) != snap.Thumbprint {
		t.Error("round-tripped certificate has different thumbprint")
	}
}

func TestFromX509Nil(t *testing.T) {
	if FromX509(nil, SourceACME) != nil {
		t.Fatal("expected nil snapshot for nil certificate")
	}
}

func TestThumbprintDeterministic(t *testing.T) {
	cert := testCert(t, "a.com", nil, time.Now().Add(time.Hour))
	if Thumbprint(cert.Raw) != Thumbprint(cert.Raw) {
		t.Fatal("thumbprint is not deterministic")
	}

	other := testCert(t, "a.com", nil, time.Now().Add(time.Hour))
	if Thumbprint(cert.Raw) == Thumbprint(other.Raw) {
		t.Fatal("distinct certificates share a thumbprint")
	}
}

func TestParseChainPEM(t *testing.T) {
	leaf := testCert(t, "leaf.example.com", []string{"leaf.example.com"}, time.Now().Add(time.Hour))
	issuer := testCert(t, "Fake CA", nil, time.Now().Add(time.Hour))

	chain := append(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leaf.Raw}),
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: issuer.Raw})...,
	)

	snap, err := ParseChainPEM(chain, SourceACME)
	if err != nil {
		t.Fatalf("ParseChainPEM: %v", err)
	}
	if snap.Subject != "leaf.example.com" {
		t.Errorf("leaf subject = %q", snap.Subject)
	}
	if snap.Thumbprint != Thumbprint(leaf.Raw) {
		t.Error("snapshot does not reference the first certificate in the chain")
	}

	if _, err := ParseChainPEM([]byte("not pem"), SourceACME); err != ErrNoCertificate {
		t.Errorf("err = %v, want ErrNoCertificate", err)
	}
}

func TestExpiresWithinDays(t *testing.T) {
	soon := FromX509(testCert(t, "a.com", nil, time.Now().Add(48*time.Hour)), SourceACME)
	if !soon.ExpiresWithinDays(7) {
		t.Error("certificate expiring in 2 days should match a 7-day window")
	}
	if soon.ExpiresWithinDays(1) {
		t.Error("certificate expiring in 2 days should not match a 1-day window")
	}
}

func TestSANs(t *testing.T) {
	snap := FromX509(testCert(t, "a.com", []string{"a.com", "b.com"}, time.Now().Add(time.Hour)), SourceUploaded)
	sans := snap.SANs()
	if len(sans) != 2 || sans[0] != "a.com" || sans[1] != "b.com" {
		t.Errorf("SANs = %v", sans)
	}
}
