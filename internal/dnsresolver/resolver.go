// Package dnsresolver provides the DNS lookups the mechanism checkers
// depend on, either against a fixed resolver or against a domain's own
// authoritative servers.
package dnsresolver

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultServer is the resolver used when none is configured.
	defaultServer = "8.8.8.8:53"
	// defaultTimeout is the per-query timeout for DNS lookups.
	defaultTimeout = 5 * time.Second
	// nsWalkLimit bounds the upward label walk when locating a zone's
	// authoritative servers.
	nsWalkLimit = 5
)

// MX is a single mail exchanger record.
type MX struct {
	// Priority is the MX preference value.
	Priority uint16 `json:"priority"`
	// Host is the exchange hostname without a trailing dot.
	Host string `json:"host"`
}

// Resolver answers the record lookups the checkers need. Implementations
// return an empty slice when no records exist.
type Resolver interface {
	TXT(ctx context.Context, name string) ([]string, error)
	CNAME(ctx context.Context, name string) ([]string, error)
	MX(ctx context.Context, name string) ([]MX, error)
}

// AuthoritativeLookuper is implemented by resolvers that can derive a
// resolver bound to a domain's own authoritative nameservers.
type AuthoritativeLookuper interface {
	ForDomain(ctx context.Context, name string) Resolver
}

// Client performs DNS lookups against a single server.
type Client struct {
	client *dns.Client
	server string
}

// Option configures the Client.
type Option func(*Client)

// WithServer overrides the DNS server used for lookups.
func WithServer(server string) Option {
	return func(c *Client) {
		if server != "" {
			c.server = server
		}
	}
}

// WithTimeout overrides the per-query timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// New creates a resolver client.
func New(opts ...Option) *Client {
	c := &Client{
		client: &dns.Client{
			Timeout: defaultTimeout,
		},
		server: defaultServer,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TXT returns the TXT records at name. Multi-part strings are joined.
func (c *Client) TXT(ctx context.Context, name string) ([]string, error) {
	answers, err := c.query(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}

	var records []string

	for _, rr := range answers {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}

		records = append(records, strings.Join(txt.Txt, ""))
	}

	return records, nil
}

// CNAME returns the CNAME targets at name without trailing dots.
func (c *Client) CNAME(ctx context.Context, name string) ([]string, error) {
	answers, err := c.query(ctx, name, dns.TypeCNAME)
	if err != nil {
		return nil, err
	}

	var records []string

	for _, rr := range answers {
		cname, ok := rr.(*dns.CNAME)
		if !ok {
			continue
		}

		records = append(records, strings.TrimSuffix(cname.Target, "."))
	}

	return records, nil
}

// MX returns the MX records at name with lowercased hostnames.
func (c *Client) MX(ctx context.Context, name string) ([]MX, error) {
	answers, err := c.query(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}

	var records []MX

	for _, rr := range answers {
		mx, ok := rr.(*dns.MX)
		if !ok {
			continue
		}

		records = append(records, MX{
			Priority: mx.Preference,
			Host:     strings.ToLower(strings.TrimSuffix(mx.Mx, ".")),
		})
	}

	return records, nil
}

// ForDomain returns a resolver pointed at the first authoritative
// nameserver found for name, walking up the label tree when the name
// itself has no NS records. Falls back to the fixed resolver when no
// nameserver can be located.
func (c *Client) ForDomain(ctx context.Context, name string) Resolver {
	zone := name

	for range nsWalkLimit {
		answers, err := c.query(ctx, zone, dns.TypeNS)
		if err == nil {
			for _, rr := range answers {
				ns, ok := rr.(*dns.NS)
				if !ok {
					continue
				}

				return &Client{
					client: c.client,
					server: strings.TrimSuffix(ns.Ns, ".") + ":53",
				}
			}
		}

		idx := strings.Index(zone, ".")
		if idx < 0 || !strings.Contains(zone[idx+1:], ".") {
			break
		}

		zone = zone[idx+1:]
	}

	return c
}

// query performs a single DNS exchange and returns the answer section.
func (c *Client) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	resp, _, err := c.client.ExchangeContext(ctx, msg, c.server)
	if err != nil {
		return nil, err
	}

	if resp == nil {
		return nil, ErrNoResponse
	}

	return resp.Answer, nil
}
