package webhook

import "errors"

var (
	// ErrMissingEndpoint is returned when no webhook endpoint is configured
	ErrMissingEndpoint = errors.New("webhook endpoint is required")
	// ErrDeliveryFailed is returned when a webhook request fails
	ErrDeliveryFailed = errors.New("webhook delivery failed")
	// ErrUnexpectedStatus is returned when the endpoint returns a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected webhook response status")
)
