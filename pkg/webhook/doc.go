// Package webhook delivers JSON payloads to HTTP endpoints with HMAC
// signing and bounded exponential-backoff retries. It is the outbound
// transport behind webhook notification channels.
//
//	sender := webhook.New(
//		webhook.WithSecret("shared-secret"),
//		webhook.WithMaxRetries(3),
//	)
//
//	err := sender.Send(ctx, "https://ops.example.com/hooks/certs", map[string]any{
//		"event_type": "certificate.expiring",
//		"subject":    "example.com",
//	})
//
// 2xx responses count as delivered. Transport errors, 429 and 5xx responses
// are retried; any other status fails immediately. Receivers can validate
// the X-Webhook-Signature header with Verify.
package webhook
