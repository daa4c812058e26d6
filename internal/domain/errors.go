package domain

import "errors"

var (
	// ErrNameRequired is returned when a domain has no name
	ErrNameRequired = errors.New("domain name is required")
	// ErrInvalidMTASTSMode is returned when the MTA-STS mode is not none, testing, or enforce
	ErrInvalidMTASTSMode = errors.New("mta-sts mode must be none, testing, or enforce")
	// ErrInvalidMTASTSMaxAge is returned when the MTA-STS max age is not a positive integer
	ErrInvalidMTASTSMaxAge = errors.New("mta-sts max age must be a positive integer")
	// ErrInvalidDomainFormat is returned when a domain or host name cannot be parsed
	ErrInvalidDomainFormat = errors.New("invalid domain format")
)
