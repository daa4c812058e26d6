package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/domain"
)

// dkimMaxCNAMEHops bounds the CNAME chain walk so misconfigured or
// malicious DNS cannot loop the check.
const dkimMaxCNAMEHops = 10

// checkDKIM verifies the DKIM TXT record at the domain's selector name,
// following up to dkimMaxCNAMEHops single-target CNAME hops before giving
// up. The published record must match the generated record exactly after
// a trailing-semicolon normalization.
func (v *Verifier) checkDKIM(ctx context.Context, r dnsresolver.Resolver, d *domain.Domain) domain.Check {
	origin := fmt.Sprintf("%s.%s", d.DKIMRecordName(v.cfg), d.Name)
	name := origin

	for hop := 0; ; hop++ {
		records := lookupTXT(ctx, r, name)

		if len(records) == 0 {
			cnames := lookupCNAME(ctx, r, name)
			if len(cnames) == 1 && hop < dkimMaxCNAMEHops {
				name = cnames[0]
				continue
			}

			return domain.Check{
				Status: domain.StatusMissing,
				Error:  fmt.Sprintf("No TXT records were returned for %s", origin),
			}
		}

		if len(records) > 1 {
			return domain.Check{
				Status: domain.StatusInvalid,
				Error:  fmt.Sprintf("There are %d records at %s. There should only be one.", len(records), origin),
			}
		}

		record := strings.TrimSpace(records[0])
		if !strings.HasSuffix(record, ";") {
			record += ";"
		}

		if record != d.DKIMRecord() {
			return domain.Check{
				Status: domain.StatusInvalid,
				Error:  fmt.Sprintf("The DKIM record at %s does not match the record we have provided. Please check it has been copied correctly.", origin),
			}
		}

		return domain.Check{Status: domain.StatusOK}
	}
}
