package store

import "errors"

var (
	// ErrNotFound is returned when no domain with the given name exists
	ErrNotFound = errors.New("domain not found")
	// ErrDuplicateName is returned when a domain with the same name already exists
	ErrDuplicateName = errors.New("domain name already exists")
)
