package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond

	// SignatureHeader carries the hex HMAC-SHA256 of the request body.
	SignatureHeader = "X-Webhook-Signature"
)

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout overrides the per-attempt request timeout (default 10s).
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxRetries overrides how many times a failed delivery is retried
// (default 3).
func WithMaxRetries(n int) Option {
	return func(s *Sender) {
		if n >= 0 {
			s.maxRetries = uint64(n)
		}
	}
}

// WithInitialBackoff overrides the first retry delay; subsequent delays grow
// exponentially.
func WithInitialBackoff(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.initialBackoff = d
		}
	}
}

// WithSecret enables HMAC-SHA256 request signing. Receivers recompute the
// digest over the raw body and compare it to the signature header.
func WithSecret(secret string) Option {
	return func(s *Sender) {
		s.secret = secret
	}
}

// WithLogger configures structured logging for the sender.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Sender delivers JSON webhooks with bounded retries. Responses in the 2xx
// range count as delivered; 429 and 5xx responses and transport errors are
// retried with exponential backoff; other statuses fail immediately.
type Sender struct {
	client         *http.Client
	timeout        time.Duration
	maxRetries     uint64
	initialBackoff time.Duration
	secret         string
	logger         *slog.Logger
}

// New creates a Sender with the given options.
func New(opts ...Option) *Sender {
	s := &Sender{
		client:         &http.Client{},
		timeout:        defaultTimeout,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send marshals payload to JSON and posts it to url, retrying retryable
// failures until delivered or the budget is exhausted.
func (s *Sender) Send(ctx context.Context, url string, payload any) error {
	if url == "" {
		return ErrURLRequired
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.initialBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.attempt(ctx, url, body); err != nil {
			s.logger.DebugContext(ctx, "webhook attempt failed",
				slog.String("url", url), slog.Any("error", err))
			return err
		}
		return nil
	})
}

func (s *Sender) attempt(ctx context.Context, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set(SignatureHeader, sign(s.secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode))
	default:
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
}

// sign computes the hex HMAC-SHA256 of body under secret.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over body and compares it to the received
// header value in constant time. Intended for webhook receivers.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(sign(secret, body)), []byte(signature))
}
