package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/domain"
)

// checkMX verifies that the domain's MX records cover every configured
// mail server hostname.
func (v *Verifier) checkMX(ctx context.Context, r dnsresolver.Resolver, d *domain.Domain) domain.Check {
	records, err := r.MX(ctx, d.Name)
	if err != nil {
		records = nil
	}

	hosts := lo.Map(records, func(mx dnsresolver.MX, _ int) string {
		return strings.ToLower(mx.Host)
	})

	if len(hosts) == 0 {
		return domain.Check{
			Status: domain.StatusMissing,
			Error:  fmt.Sprintf("There are no MX records for %s", d.Name),
		}
	}

	missing := lo.Filter(v.cfg.MXRecords, func(required string, _ int) bool {
		return !lo.Contains(hosts, strings.ToLower(required))
	})

	switch {
	case len(missing) == 0:
		return domain.Check{Status: domain.StatusOK}
	case len(missing) == len(v.cfg.MXRecords):
		return domain.Check{
			Status: domain.StatusMissing,
			Error:  "You have MX records but none of them point to us.",
		}
	default:
		noun := "records"
		if len(missing) == 1 {
			noun = "record"
		}

		return domain.Check{
			Status: domain.StatusInvalid,
			Error:  fmt.Sprintf("MX %s for %s are missing and are required.", noun, toSentence(missing)),
		}
	}
}

// toSentence joins items the way a person would write them out.
func toSentence(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
