package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/domain"
)

// dmarcPrefix anchors DMARC record detection.
const dmarcPrefix = "v=DMARC1"

// checkDMARC verifies the TXT record at _dmarc.{domain} against the
// system-wide preferred entry. Without a preferred entry configured the
// mechanism is not checked at all and reports Missing with no error.
func (v *Verifier) checkDMARC(ctx context.Context, r dnsresolver.Resolver, d *domain.Domain) domain.Check {
	if v.cfg.DMARCPreferredEntry == "" {
		return domain.Check{Status: domain.StatusMissing}
	}

	name := "_dmarc." + d.Name
	records := lookupTXT(ctx, r, name)

	if len(records) == 0 {
		return domain.Check{
			Status: domain.StatusMissing,
			Error:  fmt.Sprintf("No DMARC record exists for this domain at %s", name),
		}
	}

	var dmarcRecords []string

	for _, record := range records {
		if strings.HasPrefix(record, dmarcPrefix) {
			dmarcRecords = append(dmarcRecords, record)
		}
	}

	if len(dmarcRecords) == 0 {
		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  fmt.Sprintf("A TXT record exists at %s but it doesn't contain a valid DMARC record (should start with %s)", name, dmarcPrefix),
		}
	}

	if strings.TrimSpace(dmarcRecords[0]) != strings.TrimSpace(v.cfg.DMARCPreferredEntry) {
		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  fmt.Sprintf("The DMARC record at %s does not match the preferred record. Please check it has been configured correctly.", name),
		}
	}

	return domain.Check{Status: domain.StatusOK}
}
