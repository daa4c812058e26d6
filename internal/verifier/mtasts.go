package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/domain"
)

// mtaSTSRecordPrefix anchors MTA-STS discovery record detection.
const mtaSTSRecordPrefix = "v=STSv1; id="

// checkMTASTS verifies both halves of the MTA-STS mechanism: the
// discovery TXT record and the HTTPS-served policy file. Both must pass
// for the mechanism to be OK; any fetcher failure overrides the DNS
// result with Invalid.
func (v *Verifier) checkMTASTS(ctx context.Context, r dnsresolver.Resolver, d *domain.Domain) domain.Check {
	name := d.MTASTSRecordName()
	records := lookupTXT(ctx, r, name)

	if len(records) == 0 {
		return domain.Check{
			Status: domain.StatusMissing,
			Error:  fmt.Sprintf("No TXT record exists at %s", name),
		}
	}

	var matching []string

	for _, record := range records {
		if strings.HasPrefix(strings.TrimSpace(record), mtaSTSRecordPrefix) {
			matching = append(matching, record)
		}
	}

	switch {
	case len(matching) == 0:
		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  fmt.Sprintf("The TXT record at %s doesn't contain a valid MTA-STS policy", name),
		}
	case len(matching) > 1:
		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  fmt.Sprintf("Multiple MTA-STS records found at %s. There should only be one.", name),
		}
	}

	if result := v.fetcher.Fetch(ctx, d.Name); !result.Success {
		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  result.Error,
		}
	}

	return domain.Check{Status: domain.StatusOK}
}
