package tlsprobe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

// Status tags the outcome of a probe.
type Status string

const (
	// StatusOK means a handshake completed and a certificate was captured.
	StatusOK Status = "ok"

	// StatusTimeout means the TCP connection timed out.
	StatusTimeout Status = "connection timeout"

	// StatusError means the connection or handshake failed.
	StatusError Status = "error"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultAttempts       = 3
)

// Result holds the captured certificate and per-step diagnostics of a probe.
type Result struct {
	// Certificate is the leaf presented by the server, nil when every
	// attempt failed.
	Certificate *x509.Certificate

	// Status reflects the last attempt's outcome.
	Status Status

	// Messages records one diagnostic line per significant step.
	Messages []string
}

// Log joins the diagnostic messages into a single result log.
func (r *Result) Log() string {
	return strings.Join(r.Messages, "\n")
}

// Option configures a Prober.
type Option func(*Prober)

// WithConnectTimeout overrides the per-attempt TCP connect timeout
// (default 5s).
func WithConnectTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.connectTimeout = d
		}
	}
}

// WithAttempts overrides the number of connection attempts (default 3).
func WithAttempts(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithLogger configures structured logging for the prober.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOCSPCheck enables a best-effort OCSP revocation lookup for captured
// certificates. Failures only add a diagnostic line.
func WithOCSPCheck() Option {
	return func(p *Prober) {
		p.checkOCSP = true
	}
}

// Prober performs TLS certificate capture probes.
type Prober struct {
	connectTimeout time.Duration
	attempts       int
	checkOCSP      bool
	logger         *slog.Logger
}

// New creates a Prober with the given options.
func New(opts ...Option) *Prober {
	p := &Prober{
		connectTimeout: defaultConnectTimeout,
		attempts:       defaultAttempts,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe connects to ip:port, handshakes as a TLS client for host and captures
// the presented leaf certificate. It retries failed attempts up to the
// configured budget and never returns an error: exhaustion yields a Result
// with a nil Certificate and a non-ok Status.
func (p *Prober) Probe(ctx context.Context, host string, ip net.IP, port int) *Result {
	res := &Result{}
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(port))

	for attempt := 1; attempt <= p.attempts; attempt++ {
		if p.probeOnce(ctx, host, addr, res) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return res
}

func (p *Prober) probeOnce(ctx context.Context, host, addr string, res *Result) bool {
	dialer := &net.Dialer{Timeout: p.connectTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			res.Status = StatusTimeout
			res.Messages = append(res.Messages, fmt.Sprintf("TLS connection timeout to %s (%s)", host, addr))
		} else {
			res.Status = StatusError
			res.Messages = append(res.Messages, fmt.Sprintf("error establishing TLS connection to %s (%s): %v", host, addr, err))
		}
		p.logger.DebugContext(ctx, "tls probe connect failed", slog.String("host", host), slog.String("addr", addr), slog.Any("error", err))
		return false
	}
	defer conn.Close()

	var captured *x509.Certificate
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName: host,
		// Capture, not trust decision: every presented certificate is
		// accepted so the handshake succeeds regardless of the chain.
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return nil
			}
			cert, err := x509.ParseCertificate(rawCerts[0])
			if err != nil {
				return nil
			}
			captured = cert
			return nil
		},
	})

	hsCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(hsCtx); err != nil {
		res.Status = StatusError
		res.Messages = append(res.Messages, fmt.Sprintf("error establishing TLS connection to %s (%s): %v", host, addr, err))
		p.logger.DebugContext(ctx, "tls handshake failed", slog.String("host", host), slog.String("addr", addr), slog.Any("error", err))
		return false
	}

	state := tlsConn.ConnectionState()
	if captured == nil && len(state.PeerCertificates) > 0 {
		captured = state.PeerCertificates[0]
	}

	res.Certificate = captured
	res.Status = StatusOK
	res.Messages = append(res.Messages, fmt.Sprintf("TLS connection established to %s (%s)", host, addr))
	if captured != nil {
		res.Messages = append(res.Messages, fmt.Sprintf("%s: subject %s, valid %s to %s, issued by %s",
			host,
			captured.Subject.CommonName,
			captured.NotBefore.Format(time.RFC3339),
			captured.NotAfter.Format(time.RFC3339),
			captured.Issuer.CommonName))
	}

	if p.checkOCSP && captured != nil {
		var issuer *x509.Certificate
		if len(state.PeerCertificates) > 1 {
			issuer = state.PeerCertificates[1]
		}
		res.Messages = append(res.Messages, p.ocspStatus(ctx, captured, issuer))
	}
	return true
}
