package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/domain"
)

// tlsRPTRecordPrefix anchors TLS-RPT record detection.
const tlsRPTRecordPrefix = "v=TLSRPTv1;"

// checkTLSRPT verifies the TXT record at _smtp._tls.{domain}. The record
// must carry a rua= directive so receivers know where to send reports.
func (v *Verifier) checkTLSRPT(ctx context.Context, r dnsresolver.Resolver, d *domain.Domain) domain.Check {
	name := d.TLSRPTRecordName()
	records := lookupTXT(ctx, r, name)

	if len(records) == 0 {
		return domain.Check{
			Status: domain.StatusMissing,
			Error:  fmt.Sprintf("No TXT record exists at %s", name),
		}
	}

	var matching []string

	for _, record := range records {
		if strings.HasPrefix(strings.TrimSpace(record), tlsRPTRecordPrefix) {
			matching = append(matching, record)
		}
	}

	switch {
	case len(matching) == 0:
		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  fmt.Sprintf("The TXT record at %s doesn't contain a valid TLS-RPT policy", name),
		}
	case len(matching) > 1:
		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  fmt.Sprintf("Multiple TLS-RPT records found at %s. There should only be one.", name),
		}
	case !strings.Contains(matching[0], "rua="):
		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  "The TLS-RPT record must include a 'rua=' directive",
		}
	}

	return domain.Check{Status: domain.StatusOK}
}
