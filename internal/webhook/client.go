// Package webhook delivers domain event notifications to owner-configured
// endpoints. Delivery is fire-and-forget; callers log failures and move on.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/theopenlane/httpsling"
)

// defaultRequestTimeout is the default timeout for webhook requests
const defaultRequestTimeout = 10 * time.Second

// Client posts event payloads to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for webhook delivery.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a webhook client.
func New(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Send posts an event to the given endpoint as JSON.
func (c *Client) Send(ctx context.Context, endpoint string, event Event) error {
	if endpoint == "" {
		return ErrMissingEndpoint
	}

	requester := httpsling.MustNew(
		httpsling.URL(endpoint),
		httpsling.Post(),
		httpsling.JSONBody(event),
		httpsling.WithHTTPClient(c.httpClient),
	)

	resp, err := requester.SendWithContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is non-critical

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return nil
}
