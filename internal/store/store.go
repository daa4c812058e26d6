// Package store persists Domain records. The gorm implementation backs
// the service; the memory implementation backs tests and ephemeral runs.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/modalsource/postal/internal/domain"
)

// Store is the durable home of Domain records. ApplyResult must commit a
// whole check run atomically so a reader never observes a half-applied run.
type Store interface {
	Create(ctx context.Context, d *domain.Domain) error
	Get(ctx context.Context, name string) (*domain.Domain, error)
	List(ctx context.Context) ([]*domain.Domain, error)
	// FindForPolicy returns the domain only when it is verified and has
	// MTA-STS enabled, the precondition for serving policy content.
	FindForPolicy(ctx context.Context, name string) (*domain.Domain, error)
	ApplyResult(ctx context.Context, name string, res domain.Result) error
}

// Memory is an in-memory Store guarded by a mutex.
type Memory struct {
	mu      sync.RWMutex
	domains map[string]*domain.Domain
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		domains: make(map[string]*domain.Domain),
	}
}

// prepare fills the generated fields of a new domain record.
func prepare(d *domain.Domain) error {
	if err := d.Validate(); err != nil {
		return err
	}

	d.Name = strings.ToLower(d.Name)

	if d.UUID == "" {
		d.UUID = ulid.Make().String()
	}

	if d.DKIMIdentifierString == "" {
		d.DKIMIdentifierString = domain.NewDKIMIdentifierString()
	}

	if d.MTASTSMode == "" {
		d.MTASTSMode = domain.MTASTSModeTesting
	}

	if d.MTASTSMaxAge == 0 {
		d.MTASTSMaxAge = domain.DefaultMTASTSMaxAge
	}

	return nil
}

// Create adds a domain, generating its UUID and DKIM selector suffix.
func (m *Memory) Create(_ context.Context, d *domain.Domain) error {
	if err := prepare(d); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.domains[d.Name]; exists {
		return ErrDuplicateName
	}

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	clone := *d
	m.domains[d.Name] = &clone

	return nil
}

// Get returns a copy of the named domain.
func (m *Memory) Get(_ context.Context, name string) (*domain.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.domains[strings.ToLower(name)]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *d

	return &clone, nil
}

// List returns copies of every stored domain.
func (m *Memory) List(_ context.Context) ([]*domain.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	domains := make([]*domain.Domain, 0, len(m.domains))

	for _, d := range m.domains {
		clone := *d
		domains = append(domains, &clone)
	}

	return domains, nil
}

// FindForPolicy returns the domain when it may be served policy content.
func (m *Memory) FindForPolicy(ctx context.Context, name string) (*domain.Domain, error) {
	d, err := m.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	if !d.Verified() || !d.MTASTSEnabled {
		return nil, ErrNotFound
	}

	return d, nil
}

// ApplyResult swaps in the full mechanism snapshot under the lock.
func (m *Memory) ApplyResult(_ context.Context, name string, res domain.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.domains[strings.ToLower(name)]
	if !ok {
		return ErrNotFound
	}

	d.ApplyResult(res)

	return nil
}
