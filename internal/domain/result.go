package domain

import "time"

// Check is the outcome of a single mechanism check.
type Check struct {
	// Status is OK, Missing, or Invalid.
	Status Status `json:"status"`
	// Error is the human-readable diagnostic, empty when the check passed
	// or was skipped.
	Error string `json:"error,omitempty"`
}

// OK reports whether the check passed.
func (c Check) OK() bool {
	return c.Status == StatusOK
}

// OKOrMissing reports whether the check passed or found nothing. An absent
// but not misconfigured record is tolerated for some mechanisms.
func (c Check) OKOrMissing() bool {
	return c.Status == StatusOK || c.Status == StatusMissing
}

// Result is the immutable snapshot produced by one verification run. All
// mechanism fields are populated together; MTA-STS and TLS-RPT stay empty
// when the domain has them disabled.
type Result struct {
	SPF        Check `json:"spf"`
	DKIM       Check `json:"dkim"`
	MX         Check `json:"mx"`
	ReturnPath Check `json:"return_path"`
	DMARC      Check `json:"dmarc"`
	MTASTS     Check `json:"mta_sts"`
	TLSRPT     Check `json:"tls_rpt"`

	// CheckedAt is stamped on every run regardless of outcome.
	CheckedAt time.Time `json:"checked_at"`
}

// DNSOk is the aggregate verdict. SPF and DKIM must be actively present
// and correct; MX, return path, and DMARC tolerate absence. Enabled
// MTA-STS and TLS-RPT mechanisms do not participate in the aggregate.
func (r Result) DNSOk() bool {
	return r.SPF.OK() && r.DKIM.OK() &&
		r.MX.OKOrMissing() && r.ReturnPath.OKOrMissing() && r.DMARC.OKOrMissing()
}
