package config

import "errors"

var (
	// ErrConfigLoad is returned when a configuration source cannot be read
	ErrConfigLoad = errors.New("failed to load configuration")
	// ErrConfigUnmarshal is returned when config unmarshalling fails
	ErrConfigUnmarshal = errors.New("failed to unmarshal configuration")
	// ErrNoMXRecords is returned when no expected MX records are configured
	ErrNoMXRecords = errors.New("at least one expected MX record must be configured")
)
