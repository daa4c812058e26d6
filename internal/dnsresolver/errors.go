package dnsresolver

import "errors"

var (
	// ErrNoResponse is returned when the DNS exchange yields no message
	ErrNoResponse = errors.New("no response from DNS server")
)
