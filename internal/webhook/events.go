package webhook

import (
	"time"

	"github.com/modalsource/postal/internal/domain"
)

// EventDomainDNSError is emitted when an automatic check finds a domain's
// DNS in a failing state.
const EventDomainDNSError = "DomainDNSError"

// Event is the envelope posted to webhook endpoints.
type Event struct {
	// Event names the event type.
	Event string `json:"event"`
	// Timestamp is seconds since epoch at emission time.
	Timestamp float64 `json:"timestamp"`
	// Payload is the event-specific body.
	Payload any `json:"payload"`
}

// DomainDNSErrorPayload carries the full mechanism snapshot of a failed
// check run.
type DomainDNSErrorPayload struct {
	Domain           string        `json:"domain"`
	UUID             string        `json:"uuid"`
	DNSCheckedAt     float64       `json:"dns_checked_at"`
	SPFStatus        domain.Status `json:"spf_status"`
	SPFError         string        `json:"spf_error,omitempty"`
	DKIMStatus       domain.Status `json:"dkim_status"`
	DKIMError        string        `json:"dkim_error,omitempty"`
	MXStatus         domain.Status `json:"mx_status"`
	MXError          string        `json:"mx_error,omitempty"`
	ReturnPathStatus domain.Status `json:"return_path_status"`
	ReturnPathError  string        `json:"return_path_error,omitempty"`
	DMARCStatus      domain.Status `json:"dmarc_status"`
	DMARCError       string        `json:"dmarc_error,omitempty"`
	MTASTSStatus     domain.Status `json:"mta_sts_status,omitempty"`
	MTASTSError      string        `json:"mta_sts_error,omitempty"`
	TLSRPTStatus     domain.Status `json:"tls_rpt_status,omitempty"`
	TLSRPTError      string        `json:"tls_rpt_error,omitempty"`
}

// NewDomainDNSError builds the event for a failed check run.
func NewDomainDNSError(d *domain.Domain, res domain.Result) Event {
	return Event{
		Event:     EventDomainDNSError,
		Timestamp: float64(time.Now().UTC().UnixMilli()) / 1000,
		Payload: DomainDNSErrorPayload{
			Domain:           d.Name,
			UUID:             d.UUID,
			DNSCheckedAt:     float64(res.CheckedAt.UnixMilli()) / 1000,
			SPFStatus:        res.SPF.Status,
			SPFError:         res.SPF.Error,
			DKIMStatus:       res.DKIM.Status,
			DKIMError:        res.DKIM.Error,
			MXStatus:         res.MX.Status,
			MXError:          res.MX.Error,
			ReturnPathStatus: res.ReturnPath.Status,
			ReturnPathError:  res.ReturnPath.Error,
			DMARCStatus:      res.DMARC.Status,
			DMARCError:       res.DMARC.Error,
			MTASTSStatus:     res.MTASTS.Status,
			MTASTSError:      res.MTASTS.Error,
			TLSRPTStatus:     res.TLSRPT.Status,
			TLSRPTError:      res.TLSRPT.Error,
		},
	}
}
