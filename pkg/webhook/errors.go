package webhook

import "errors"

var (
	// ErrDeliveryFailed is returned when the endpoint rejected the webhook
	// or kept failing until the retry budget ran out.
	ErrDeliveryFailed = errors.New("webhook: delivery failed")

	// ErrURLRequired is returned when Send is called without a target URL.
	ErrURLRequired = errors.New("webhook: url is required")
)
