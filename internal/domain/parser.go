package domain

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// mtaSTSHostPrefix is the label receivers prepend when fetching a policy.
const mtaSTSHostPrefix = "mta-sts."

// ParseName normalizes and validates a domain name. The name must be a
// registrable domain under a known public suffix.
func ParseName(input string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(input))
	name = strings.TrimSuffix(name, ".")

	if name == "" || !strings.Contains(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomainFormat, input)
	}

	if _, err := publicsuffix.EffectiveTLDPlusOne(name); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomainFormat, err)
	}

	return name, nil
}

// ParsePolicyHost extracts the domain a policy request is for from the
// request host, stripping any port and the optional leading mta-sts. label.
func ParsePolicyHost(host string) (string, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, mtaSTSHostPrefix)

	return ParseName(host)
}
