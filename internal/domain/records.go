package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// RecordConfig carries the system-wide DNS settings that expected record
// values are derived from.
type RecordConfig struct {
	// SPFInclude is the hostname domains must include in their SPF record.
	SPFInclude string
	// MXRecords are the mail server hostnames domains must point MX at.
	MXRecords []string
	// ReturnPathPrefix is the label prepended to the domain to form its
	// custom return path name.
	ReturnPathPrefix string
	// ReturnPathDomain is the canonical CNAME target for return path records.
	ReturnPathDomain string
	// DKIMIdentifier is the system-wide portion of the DKIM selector.
	DKIMIdentifier string
	// DMARCPreferredEntry is the exact DMARC record expected, empty to skip
	// DMARC checking entirely.
	DMARCPreferredEntry string
}

// SPFRecord returns the SPF TXT value the domain should publish.
func (d *Domain) SPFRecord(cfg RecordConfig) string {
	return fmt.Sprintf("v=spf1 a mx include:%s ~all", cfg.SPFInclude)
}

// DKIMRecord returns the DKIM TXT value the domain should publish, built
// from the stored public key with PEM armor and newlines removed. Empty
// when the domain has no key material.
func (d *Domain) DKIMRecord() string {
	if d.DKIMPublicKey == "" {
		return ""
	}

	var b strings.Builder

	for _, line := range strings.Split(d.DKIMPublicKey, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}

		b.WriteString(line)
	}

	return fmt.Sprintf("v=DKIM1; t=s; h=sha256; p=%s;", b.String())
}

// DKIMIdentifier returns the full DKIM selector for the domain.
func (d *Domain) DKIMIdentifier(cfg RecordConfig) string {
	if d.DKIMIdentifierString == "" {
		return ""
	}

	return fmt.Sprintf("%s-%s", cfg.DKIMIdentifier, d.DKIMIdentifierString)
}

// DKIMRecordName returns the owner name, relative to the domain, at which
// the DKIM record must be published.
func (d *Domain) DKIMRecordName(cfg RecordConfig) string {
	identifier := d.DKIMIdentifier(cfg)
	if identifier == "" {
		return ""
	}

	return identifier + "._domainkey"
}

// ReturnPathDomain returns the bounce-handling subdomain for the domain.
func (d *Domain) ReturnPathDomain(cfg RecordConfig) string {
	return fmt.Sprintf("%s.%s", cfg.ReturnPathPrefix, d.Name)
}

// MTASTSRecordName returns the name of the MTA-STS discovery TXT record.
func (d *Domain) MTASTSRecordName() string {
	return "_mta-sts." + d.Name
}

// MTASTSRecordValue returns the MTA-STS discovery TXT value.
func (d *Domain) MTASTSRecordValue() string {
	return fmt.Sprintf("v=STSv1; id=%s;", d.MTASTSPolicyID())
}

// mtaSTSPolicyIDLength is the number of hex digits kept from the digest.
const mtaSTSPolicyIDLength = 20

// MTASTSPolicyID derives the policy id from the policy-relevant fields and
// the update timestamp, so receivers see a new id whenever the policy
// changes. Deterministic for a fixed input.
func (d *Domain) MTASTSPolicyID() string {
	data := fmt.Sprintf("%s:%d:%s:%d",
		d.MTASTSMode, d.MTASTSMaxAge, strings.Join(d.MTASTSMXPatterns, "\n"), d.UpdatedAt.Unix())
	sum := sha256.Sum256([]byte(data))

	return hex.EncodeToString(sum[:])[:mtaSTSPolicyIDLength]
}

// MTASTSPolicyContent returns the exact policy file body served at the
// well-known URL, or empty when MTA-STS is disabled for the domain.
func (d *Domain) MTASTSPolicyContent(cfg RecordConfig) string {
	if !d.MTASTSEnabled {
		return ""
	}

	patterns := lo.FilterMap(d.MTASTSMXPatterns, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
	if len(patterns) == 0 {
		patterns = d.DefaultMTASTSMXPatterns(cfg)
	}

	maxAge := d.MTASTSMaxAge
	if maxAge <= 0 {
		maxAge = DefaultMTASTSMaxAge
	}

	lines := make([]string, 0, len(patterns)+3)
	lines = append(lines, "version: STSv1")
	lines = append(lines, fmt.Sprintf("mode: %s", d.MTASTSMode))

	for _, mx := range patterns {
		lines = append(lines, fmt.Sprintf("mx: %s", mx))
	}

	lines = append(lines, fmt.Sprintf("max_age: %d", maxAge))

	return strings.Join(lines, "\n") + "\n"
}

// DefaultMTASTSMXPatterns returns one wildcard pattern per configured mail
// server, used when the domain does not override the pattern list.
func (d *Domain) DefaultMTASTSMXPatterns(cfg RecordConfig) []string {
	return lo.Map(cfg.MXRecords, func(mx string, _ int) string {
		return "*." + mx
	})
}

// MTASTSPolicyURL returns the well-known URL receivers fetch the policy from.
func (d *Domain) MTASTSPolicyURL() string {
	return fmt.Sprintf("https://mta-sts.%s/.well-known/mta-sts.txt", d.Name)
}

// TLSRPTRecordName returns the name of the TLS-RPT TXT record.
func (d *Domain) TLSRPTRecordName() string {
	return "_smtp._tls." + d.Name
}

// TLSRPTRecordValue returns the TLS-RPT TXT value, or empty when TLS
// reporting is disabled for the domain.
func (d *Domain) TLSRPTRecordValue() string {
	if !d.TLSRPTEnabled {
		return ""
	}

	email := d.TLSRPTEmail
	if email == "" {
		email = d.DefaultTLSRPTEmail()
	}

	return fmt.Sprintf("v=TLSRPTv1; rua=mailto:%s", email)
}

// DefaultTLSRPTEmail returns the fallback TLS report address for the domain.
func (d *Domain) DefaultTLSRPTEmail() string {
	return "tls-reports@" + d.Name
}
