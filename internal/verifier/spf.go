package verifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/domain"
)

// spfPrefix anchors SPF record detection, case-sensitive per RFC 7208.
const spfPrefix = "v=spf1"

// checkSPF verifies that a TXT record at the domain root exists and
// includes the configured sending infrastructure.
func (v *Verifier) checkSPF(ctx context.Context, r dnsresolver.Resolver, d *domain.Domain) domain.Check {
	records := lookupTXT(ctx, r, d.Name)

	var spfRecords []string

	for _, record := range records {
		if strings.HasPrefix(record, spfPrefix) {
			spfRecords = append(spfRecords, record)
		}
	}

	if len(spfRecords) == 0 {
		return domain.Check{
			Status: domain.StatusMissing,
			Error:  "No SPF record exists for this domain",
		}
	}

	// tolerate optional whitespace after the include: mechanism name
	includePattern := regexp.MustCompile(`include:\s*` + regexp.QuoteMeta(v.cfg.SPFInclude))

	for _, record := range spfRecords {
		if includePattern.MatchString(record) {
			return domain.Check{Status: domain.StatusOK}
		}
	}

	return domain.Check{
		Status: domain.StatusInvalid,
		Error:  fmt.Sprintf("An SPF record exists but it doesn't include %s", v.cfg.SPFInclude),
	}
}
