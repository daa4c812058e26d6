// Package domain holds the mail-sending domain model, its DNS check
// statuses, and the generators for the DNS records and MTA-STS policy
// content a domain is expected to publish.
package domain

import (
	"crypto/rand"
	"time"

	"gorm.io/gorm"
)

// Status classifies the outcome of a single mechanism check. The empty
// string means the mechanism has never been checked.
type Status string

const (
	// StatusOK means the record exists and matches what we expect.
	StatusOK Status = "OK"
	// StatusMissing means no record was found.
	StatusMissing Status = "Missing"
	// StatusInvalid means a record exists but is incorrect.
	StatusInvalid Status = "Invalid"
)

// MTASTSMode is the MTA-STS policy mode advertised to receiving servers.
type MTASTSMode string

const (
	MTASTSModeNone    MTASTSMode = "none"
	MTASTSModeTesting MTASTSMode = "testing"
	MTASTSModeEnforce MTASTSMode = "enforce"
)

// Valid reports whether the mode is one of the enumerated values.
func (m MTASTSMode) Valid() bool {
	switch m {
	case MTASTSModeNone, MTASTSModeTesting, MTASTSModeEnforce:
		return true
	}

	return false
}

const (
	// DefaultMTASTSMaxAge is the policy lifetime advertised when a domain
	// does not configure one (seconds).
	DefaultMTASTSMaxAge = 86400
	// dkimIdentifierLength is the length of the per-domain DKIM selector suffix.
	dkimIdentifierLength = 6
)

// Domain is a mail-sending domain and the state of its DNS checks.
type Domain struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	UUID string `gorm:"uniqueIndex" json:"uuid"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`

	// WebhookURL, when set, receives DomainDNSError events for failed
	// automatic checks.
	WebhookURL string `json:"webhook_url,omitempty"`

	// VerifiedAt is stamped by the ownership verification flow. Only
	// verified domains are served MTA-STS policy content.
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// DKIMIdentifierString is the random per-domain suffix appended to the
	// system DKIM identifier to form the selector.
	DKIMIdentifierString string `gorm:"column:dkim_identifier_string" json:"dkim_identifier_string"`
	// DKIMPublicKey is the PEM-encoded public key published in the DKIM record.
	DKIMPublicKey string `gorm:"column:dkim_public_key;type:text" json:"-"`

	SPFStatus        Status `gorm:"column:spf_status" json:"spf_status,omitempty"`
	SPFError         string `gorm:"column:spf_error" json:"spf_error,omitempty"`
	DKIMStatus       Status `gorm:"column:dkim_status" json:"dkim_status,omitempty"`
	DKIMError        string `gorm:"column:dkim_error" json:"dkim_error,omitempty"`
	MXStatus         Status `gorm:"column:mx_status" json:"mx_status,omitempty"`
	MXError          string `gorm:"column:mx_error" json:"mx_error,omitempty"`
	ReturnPathStatus Status `gorm:"column:return_path_status" json:"return_path_status,omitempty"`
	ReturnPathError  string `gorm:"column:return_path_error" json:"return_path_error,omitempty"`
	DMARCStatus      Status `gorm:"column:dmarc_status" json:"dmarc_status,omitempty"`
	DMARCError       string `gorm:"column:dmarc_error" json:"dmarc_error,omitempty"`
	MTASTSStatus     Status `gorm:"column:mta_sts_status" json:"mta_sts_status,omitempty"`
	MTASTSError      string `gorm:"column:mta_sts_error" json:"mta_sts_error,omitempty"`
	TLSRPTStatus     Status `gorm:"column:tls_rpt_status" json:"tls_rpt_status,omitempty"`
	TLSRPTError      string `gorm:"column:tls_rpt_error" json:"tls_rpt_error,omitempty"`

	DNSCheckedAt *time.Time `gorm:"column:dns_checked_at" json:"dns_checked_at,omitempty"`

	MTASTSEnabled    bool       `gorm:"column:mta_sts_enabled" json:"mta_sts_enabled"`
	MTASTSMode       MTASTSMode `gorm:"column:mta_sts_mode;size:20" json:"mta_sts_mode"`
	MTASTSMaxAge     int        `gorm:"column:mta_sts_max_age" json:"mta_sts_max_age"`
	MTASTSMXPatterns []string   `gorm:"column:mta_sts_mx_patterns;serializer:json" json:"mta_sts_mx_patterns,omitempty"`

	TLSRPTEnabled bool   `gorm:"column:tls_rpt_enabled" json:"tls_rpt_enabled"`
	TLSRPTEmail   string `gorm:"column:tls_rpt_email" json:"tls_rpt_email,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Verified reports whether the domain has passed ownership verification.
func (d *Domain) Verified() bool {
	return d.VerifiedAt != nil
}

// Validate checks the MTA-STS and TLS-RPT configuration invariants.
func (d *Domain) Validate() error {
	if d.Name == "" {
		return ErrNameRequired
	}

	if d.MTASTSMode != "" && !d.MTASTSMode.Valid() {
		return ErrInvalidMTASTSMode
	}

	if d.MTASTSMaxAge < 0 {
		return ErrInvalidMTASTSMaxAge
	}

	return nil
}

// ApplyResult overwrites every mechanism status field from a check run.
// Statuses are never cleared individually; each run replaces the full set.
func (d *Domain) ApplyResult(res Result) {
	d.SPFStatus, d.SPFError = res.SPF.Status, res.SPF.Error
	d.DKIMStatus, d.DKIMError = res.DKIM.Status, res.DKIM.Error
	d.MXStatus, d.MXError = res.MX.Status, res.MX.Error
	d.ReturnPathStatus, d.ReturnPathError = res.ReturnPath.Status, res.ReturnPath.Error
	d.DMARCStatus, d.DMARCError = res.DMARC.Status, res.DMARC.Error
	d.MTASTSStatus, d.MTASTSError = res.MTASTS.Status, res.MTASTS.Error
	d.TLSRPTStatus, d.TLSRPTError = res.TLSRPT.Status, res.TLSRPT.Error
	checkedAt := res.CheckedAt
	d.DNSCheckedAt = &checkedAt
}

// dkimIdentifierAlphabet matches the uppercase-only random selector suffix
// the onboarding flow assigns.
const dkimIdentifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewDKIMIdentifierString returns a random uppercase selector suffix.
func NewDKIMIdentifierString() string {
	buf := make([]byte, dkimIdentifierLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand read failures are not recoverable here
		panic(err)
	}

	for i, b := range buf {
		buf[i] = dkimIdentifierAlphabet[int(b)%len(dkimIdentifierAlphabet)]
	}

	return string(buf)
}
