package verifier

import (
	"context"
	"fmt"

	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/domain"
)

// checkReturnPath verifies that the domain's custom return path name is a
// CNAME pointing at the canonical bounce handler.
func (v *Verifier) checkReturnPath(ctx context.Context, r dnsresolver.Resolver, d *domain.Domain) domain.Check {
	returnPath := d.ReturnPathDomain(v.cfg)
	records := lookupCNAME(ctx, r, returnPath)

	if len(records) == 0 {
		return domain.Check{
			Status: domain.StatusMissing,
			Error:  fmt.Sprintf("There is no return path record at %s", returnPath),
		}
	}

	if len(records) == 1 && records[0] == v.cfg.ReturnPathDomain {
		return domain.Check{Status: domain.StatusOK}
	}

	return domain.Check{
		Status: domain.StatusInvalid,
		Error: fmt.Sprintf("There is a CNAME record at %s but it points to %s which is incorrect. It should point to %s.",
			returnPath, records[0], v.cfg.ReturnPathDomain),
	}
}
