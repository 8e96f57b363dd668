package acme_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeACME is an in-process ACME server implementing just enough of RFC 8555
// for the order workflow: directory, nonces, account registration, orders,
// authorizations, challenges, finalization and certificate download. JWS
// bodies are decoded but signatures are not verified.
type fakeACME struct {
	t   *testing.T
	srv *httptest.Server

	// challengeOutcome is the authorization status set once its challenge
	// has been triggered: "valid" or "invalid".
	challengeOutcome string

	mu           sync.Mutex
	nonceSeq     int
	registered   bool
	authzs       []fakeAuthz
	domains      []string
	finalized    bool
	revoked      bool
	chainPEM     []byte
	authzQueries int
}

type fakeAuthz struct {
	domain   string
	wildcard bool
	status   string
}

func newFakeACME(t *testing.T, challengeOutcome string) *fakeACME {
	t.Helper()

	f := &fakeACME{t: t, challengeOutcome: challengeOutcome}

	mux := http.NewServeMux()
	mux.HandleFunc("/dir", f.handleDirectory)
	mux.HandleFunc("/nonce", f.handleNonce)
	mux.HandleFunc("/acct", f.handleNewAccount)
	mux.HandleFunc("/order", f.handleNewOrder)
	mux.HandleFunc("/order/1", f.handleGetOrder)
	mux.HandleFunc("/finalize/1", f.handleFinalize)
	mux.HandleFunc("/authz/", f.handleAuthz)
	mux.HandleFunc("/chall/", f.handleChallenge)
	mux.HandleFunc("/cert/1", f.handleCertificate)
	mux.HandleFunc("/revoke", f.handleRevoke)

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.nonceSeq++
		nonce := fmt.Sprintf("nonce-%04d", f.nonceSeq)
		f.mu.Unlock()
		w.Header().Set("Replay-Nonce", nonce)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeACME) directoryURL() string { return f.srv.URL + "/dir" }

func (f *fakeACME) handleDirectory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"newNonce":   f.srv.URL + "/nonce",
		"newAccount": f.srv.URL + "/acct",
		"newOrder":   f.srv.URL + "/order",
		"newAuthz":   f.srv.URL + "/authz",
		"revokeCert": f.srv.URL + "/revoke",
		"keyChange":  f.srv.URL + "/keychange",
	})
}

func (f *fakeACME) handleNonce(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeACME) handleNewAccount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OnlyReturnExisting bool `json:"onlyReturnExisting"`
	}
	f.decodePayload(r, &payload)

	f.mu.Lock()
	defer f.mu.Unlock()

	if payload.OnlyReturnExisting && !f.registered {
		writeProblem(w, http.StatusBadRequest, "urn:ietf:params:acme:error:accountDoesNotExist", "account not found")
		return
	}

	f.registered = true
	w.Header().Set("Location", f.srv.URL+"/acct/1")
	writeJSON(w, http.StatusCreated, map[string]any{"status": "valid"})
}

func (f *fakeACME) handleNewOrder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Identifiers []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"identifiers"`
	}
	f.decodePayload(r, &payload)

	f.mu.Lock()
	f.authzs = f.authzs[:0]
	f.domains = f.domains[:0]
	var authzURLs []string
	for i, ident := range payload.Identifiers {
		domain := ident.Value
		wildcard := strings.HasPrefix(domain, "*.")
		f.authzs = append(f.authzs, fakeAuthz{
			domain:   strings.TrimPrefix(domain, "*."),
			wildcard: wildcard,
			status:   "pending",
		})
		f.domains = append(f.domains, domain)
		authzURLs = append(authzURLs, fmt.Sprintf("%s/authz/%d", f.srv.URL, i))
	}
	f.mu.Unlock()

	w.Header().Set("Location", f.srv.URL+"/order/1")
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":         "pending",
		"expires":        time.Now().Add(time.Hour).Format(time.RFC3339),
		"finalize":       f.srv.URL + "/finalize/1",
		"authorizations": authzURLs,
	})
}

func (f *fakeACME) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	finalized := f.finalized
	f.mu.Unlock()

	body := map[string]any{
		"status":   "pending",
		"finalize": f.srv.URL + "/finalize/1",
	}
	if finalized {
		body["status"] = "valid"
		body["certificate"] = f.srv.URL + "/cert/1"
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *fakeACME) handleAuthz(w http.ResponseWriter, r *http.Request) {
	i := f.pathIndex(r.URL.Path, "/authz/")

	f.mu.Lock()
	f.authzQueries++
	authz := f.authzs[i]
	f.mu.Unlock()

	challenge := map[string]any{
		"type":   "http-01",
		"url":    fmt.Sprintf("%s/chall/%d", f.srv.URL, i),
		"status": authz.status,
		"token":  fmt.Sprintf("token-%d", i),
	}
	if authz.status == "invalid" {
		challenge["error"] = map[string]any{
			"type":   "urn:ietf:params:acme:error:unauthorized",
			"detail": "challenge response did not match",
			"status": http.StatusForbidden,
		}
	}

	// Offer both challenge types so either workflow finds its match.
	dnsChallenge := map[string]any{
		"type":   "dns-01",
		"url":    fmt.Sprintf("%s/chall/%d", f.srv.URL, i),
		"status": authz.status,
		"token":  fmt.Sprintf("token-%d", i),
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     authz.status,
		"identifier": map[string]string{"type": "dns", "value": authz.domain},
		"wildcard":   authz.wildcard,
		"challenges": []any{challenge, dnsChallenge},
	})
}

func (f *fakeACME) handleChallenge(w http.ResponseWriter, r *http.Request) {
	i := f.pathIndex(r.URL.Path, "/chall/")

	f.mu.Lock()
	f.authzs[i].status = f.challengeOutcome
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"type":   "http-01",
		"url":    fmt.Sprintf("%s/chall/%d", f.srv.URL, i),
		"status": "processing",
		"token":  fmt.Sprintf("token-%d", i),
	})
}

func (f *fakeACME) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CSR string `json:"csr"`
	}
	f.decodePayload(r, &payload)
	require.NotEmpty(f.t, payload.CSR, "finalize must carry a CSR")

	csrDER, err := base64.RawURLEncoding.DecodeString(payload.CSR)
	require.NoError(f.t, err)
	csr, err := x509.ParseCertificateRequest(csrDER)
	require.NoError(f.t, err)

	f.mu.Lock()
	f.finalized = true
	f.chainPEM = issueChain(f.t, csr)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "valid",
		"finalize":    f.srv.URL + "/finalize/1",
		"certificate": f.srv.URL + "/cert/1",
	})
}

func (f *fakeACME) handleCertificate(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	chain := f.chainPEM
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/pem-certificate-chain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(chain)
}

func (f *fakeACME) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Certificate string `json:"certificate"`
	}
	f.decodePayload(r, &payload)
	require.NotEmpty(f.t, payload.Certificate)

	f.mu.Lock()
	f.revoked = true
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{})
}

// decodePayload extracts the inner JWS payload. Empty payloads (POST-as-GET)
// leave v untouched.
func (f *fakeACME) decodePayload(r *http.Request, v any) {
	var body struct {
		Payload string `json:"payload"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	if body.Payload == "" {
		return
	}
	raw, err := base64.RawURLEncoding.DecodeString(body.Payload)
	require.NoError(f.t, err)
	require.NoError(f.t, json.Unmarshal(raw, v))
}

func (f *fakeACME) pathIndex(path, prefix string) int {
	i, err := strconv.Atoi(strings.TrimPrefix(path, prefix))
	require.NoError(f.t, err)
	require.Less(f.t, i, len(f.authzs))
	return i
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeProblem(w http.ResponseWriter, status int, typ, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   typ,
		"detail": detail,
		"status": status,
	})
}

// issueChain signs a certificate for the CSR with a throwaway root and
// returns the PEM chain, leaf first.
func issueChain(t *testing.T, csr *x509.CertificateRequest) []byte {
	t.Helper()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "certkit test root"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      csr.Subject,
		DNSNames:     csr.DNSNames,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(90 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, caCert, csr.PublicKey, caKey)
	require.NoError(t, err)

	var out []byte
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leafDER})...)
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})...)
	return out
}
