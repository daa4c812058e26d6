package verifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// defaultFetchTimeout bounds the whole policy fetch, connect and read.
	defaultFetchTimeout = 10 * time.Second
	// maxPolicyBodySize bounds how much of a policy file is read.
	maxPolicyBodySize = 64 * 1024
	// policyURLFormat is the well-known policy location per RFC 8461.
	policyURLFormat = "https://mta-sts.%s/.well-known/mta-sts.txt"
)

var (
	// policyModePattern matches a valid mode line in a policy body.
	policyModePattern = regexp.MustCompile(`mode:\s*(testing|enforce|none)`)
	// policyMaxAgePattern matches a valid max_age line in a policy body.
	policyMaxAgePattern = regexp.MustCompile(`max_age:\s*\d+`)
)

// FetchResult reports whether the policy file was fetched and validated,
// with a diagnostic on failure.
type FetchResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PolicyFetcher retrieves and validates MTA-STS policy files over HTTPS
// with server certificate verification.
type PolicyFetcher struct {
	client *http.Client
}

// FetcherOption configures the PolicyFetcher.
type FetcherOption func(*PolicyFetcher)

// WithHTTPClient sets a custom HTTP client for policy fetches.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *PolicyFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithFetchTimeout overrides the policy fetch timeout.
func WithFetchTimeout(timeout time.Duration) FetcherOption {
	return func(f *PolicyFetcher) {
		if timeout > 0 {
			f.client.Timeout = timeout
		}
	}
}

// NewPolicyFetcher creates a policy fetcher.
func NewPolicyFetcher(opts ...FetcherOption) *PolicyFetcher {
	f := &PolicyFetcher{
		client: &http.Client{Timeout: defaultFetchTimeout},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves the policy file from the domain's well-known URL and
// validates transport, status, and body grammar. Validation stops at the
// first failing check.
func (f *PolicyFetcher) Fetch(ctx context.Context, domainName string) FetchResult {
	return f.fetchURL(ctx, fmt.Sprintf(policyURLFormat, domainName))
}

func (f *PolicyFetcher) fetchURL(ctx context.Context, policyURL string) FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, policyURL, nil)
	if err != nil {
		return FetchResult{Error: fmt.Sprintf("Error fetching policy file from %s: %v", policyURL, err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{Error: classifyFetchError(policyURL, err)}
	}

	defer resp.Body.Close() //nolint:errcheck // response body close error is non-critical

	if resp.StatusCode != http.StatusOK {
		return FetchResult{Error: statusError(policyURL, resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPolicyBodySize))
	if err != nil {
		return FetchResult{Error: classifyFetchError(policyURL, err)}
	}

	return validatePolicyBody(policyURL, string(body))
}

// classifyFetchError maps transport failures to their user-facing class:
// certificate problems, timeouts, and everything else.
func classifyFetchError(policyURL string, err error) string {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return fmt.Sprintf("SSL certificate error for %s: %v", policyURL, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Sprintf("Timeout while fetching policy file from %s: %v", policyURL, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Timeout while fetching policy file from %s: %v", policyURL, err)
	}

	return fmt.Sprintf("Error fetching policy file from %s: %v", policyURL, err)
}

// statusError formats a non-200 response, appending an actionable hint for
// the common misconfiguration classes.
func statusError(policyURL string, status int) string {
	msg := fmt.Sprintf("Policy file returned HTTP %d. Expected 200. URL: %s", status, policyURL)

	switch {
	case status == http.StatusForbidden:
		msg += "\n\nThis usually means the endpoint is protected by HTTP authentication or firewall rules. " +
			"Make sure /.well-known/mta-sts.txt is publicly accessible without authentication."
	case status == http.StatusNotFound:
		msg += "\n\nThe policy file was not found. Verify that your web server is correctly routing requests to the application."
	case status >= http.StatusInternalServerError:
		msg += "\n\nThe server encountered an error. Check your application logs for more details."
	}

	return msg
}

// validatePolicyBody checks the policy grammar: version, mode, and
// max_age, in that order.
func validatePolicyBody(policyURL, body string) FetchResult {
	if !strings.Contains(body, "version: STSv1") {
		return FetchResult{Error: fmt.Sprintf("Policy file doesn't contain 'version: STSv1'. URL: %s", policyURL)}
	}

	if !policyModePattern.MatchString(body) {
		return FetchResult{Error: fmt.Sprintf("Policy file doesn't contain a valid mode (testing, enforce, or none). URL: %s", policyURL)}
	}

	if !policyMaxAgePattern.MatchString(body) {
		return FetchResult{Error: fmt.Sprintf("Policy file doesn't contain a valid max_age value. URL: %s", policyURL)}
	}

	return FetchResult{Success: true}
}
