package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/synqronlabs/domainauth"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	domains map[string]*domainauth.Domain
	now     func() time.Time
}

var _ domainauth.Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		domains: make(map[string]*domainauth.Domain),
		now:     time.Now,
	}
}

// Create registers a new active domain for ownerID.
func (m *Memory) Create(ctx context.Context, ownerID, hostname string) (*domainauth.Domain, error) {
	host, err := domainauth.NormalizeHostname(hostname)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.domains {
		if d.Hostname == host {
			return nil, ErrDuplicateHostname
		}
	}

	now := m.now()
	d := &domainauth.Domain{
		ID:        ulid.Make().String(),
		OwnerID:   ownerID,
		Hostname:  host,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.domains[d.ID] = d

	return m.load(d), nil
}

// Put stores a copy of d as is, replacing any domain with the same ID.
func (m *Memory) Put(d *domainauth.Domain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains[d.ID] = d.Clone()
}

// Get implements domainauth.Store.
func (m *Memory) Get(_ context.Context, id string) (*domainauth.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.domains[id]
	if !ok {
		return nil, domainauth.ErrDomainNotFound
	}
	return m.load(d), nil
}

// GetOwned implements domainauth.Store.
func (m *Memory) GetOwned(_ context.Context, ownerID, id string) (*domainauth.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.domains[id]
	if !ok || d.OwnerID != ownerID {
		return nil, domainauth.ErrDomainNotFound
	}
	return m.load(d), nil
}

// ListPending implements domainauth.Store.
func (m *Memory) ListPending(_ context.Context, f domainauth.Family, limit int) ([]*domainauth.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*domainauth.Domain
	for _, d := range m.domains {
		if d.Active && d.Timestamp(f) == nil {
			pending = append(pending, d)
		}
	}

	slices.SortFunc(pending, func(a, b *domainauth.Domain) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	out := make([]*domainauth.Domain, 0, len(pending))
	for _, d := range pending {
		out = append(out, m.load(d))
	}
	return out, nil
}

// MarkVerified implements domainauth.Store.
func (m *Memory) MarkVerified(_ context.Context, t domainauth.Transition) error {
	if !t.Family.Valid() {
		return ErrUnknownFamily
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.domains[t.DomainID]
	if !ok {
		return domainauth.ErrDomainNotFound
	}
	d.Apply(t)
	return nil
}

// load returns a copy of d with DomainCount set. Callers hold m.mu.
func (m *Memory) load(d *domainauth.Domain) *domainauth.Domain {
	c := d.Clone()
	c.DomainCount = 0
	for _, other := range m.domains {
		if other.OwnerID == d.OwnerID {
			c.DomainCount++
		}
	}
	return c
}
