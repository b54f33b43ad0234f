package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synqronlabs/domainauth"
)

func TestMemoryCreate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	d, err := m.Create(ctx, "owner-1", "  Example.COM. ")
	require.NoError(t, err)
	assert.Len(t, d.ID, 26)
	assert.Equal(t, "example.com", d.Hostname)
	assert.Equal(t, "owner-1", d.OwnerID)
	assert.True(t, d.Active)
	assert.Equal(t, 1, d.DomainCount)

	_, err = m.Create(ctx, "owner-2", "example.com")
	assert.ErrorIs(t, err, ErrDuplicateHostname)

	_, err = m.Create(ctx, "owner-1", "com")
	assert.ErrorIs(t, err, domainauth.ErrInvalidHostname)
}

func TestMemoryDomainCount(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, err := m.Create(ctx, "owner-1", "one.example")
	require.NoError(t, err)
	_, err = m.Create(ctx, "owner-1", "two.example")
	require.NoError(t, err)
	_, err = m.Create(ctx, "owner-2", "three.example")
	require.NoError(t, err)

	got, err := m.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.DomainCount, "count reflects the owner's domains at load time")
}

func TestMemoryGetOwned(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	d, err := m.Create(ctx, "owner-1", "example.com")
	require.NoError(t, err)

	_, err = m.GetOwned(ctx, "owner-2", d.ID)
	assert.ErrorIs(t, err, domainauth.ErrDomainNotFound)

	got, err := m.GetOwned(ctx, "owner-1", d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, domainauth.ErrDomainNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	d, err := m.Create(ctx, "owner-1", "example.com")
	require.NoError(t, err)

	now := time.Now()
	d.VerifiedAt = &now

	got, err := m.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.VerifiedAt, "mutating a loaded domain must not change the store")
}

func TestMemoryMarkVerified(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	d, err := m.Create(ctx, "owner-1", "example.com")
	require.NoError(t, err)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.MarkVerified(ctx, domainauth.Transition{DomainID: d.ID, Family: domainauth.FamilyMX, At: first}))

	later := first.Add(time.Hour)
	require.NoError(t, m.MarkVerified(ctx, domainauth.Transition{DomainID: d.ID, Family: domainauth.FamilyMX, At: later}))

	got, err := m.Get(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MXValidatedAt)
	assert.Equal(t, first, *got.MXValidatedAt, "the first timestamp is kept")
	assert.Nil(t, got.VerifiedAt)
	assert.Nil(t, got.SendingVerifiedAt)

	err = m.MarkVerified(ctx, domainauth.Transition{DomainID: "missing", Family: domainauth.FamilyMX, At: first})
	assert.ErrorIs(t, err, domainauth.ErrDomainNotFound)

	err = m.MarkVerified(ctx, domainauth.Transition{DomainID: d.ID, Family: "dkim", At: first})
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestMemoryListPending(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	verified := base

	m.Put(&domainauth.Domain{ID: "c", OwnerID: "o", Hostname: "c.example", Active: true, CreatedAt: base.Add(2 * time.Minute)})
	m.Put(&domainauth.Domain{ID: "a", OwnerID: "o", Hostname: "a.example", Active: true, CreatedAt: base})
	m.Put(&domainauth.Domain{ID: "b", OwnerID: "o", Hostname: "b.example", Active: true, CreatedAt: base.Add(time.Minute), VerifiedAt: &verified})
	m.Put(&domainauth.Domain{ID: "d", OwnerID: "o", Hostname: "d.example", Active: false, CreatedAt: base})

	pending, err := m.ListPending(ctx, domainauth.FamilyOwnership, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(pending))
	for _, d := range pending {
		ids = append(ids, d.ID)
		assert.Equal(t, 4, d.DomainCount)
	}
	assert.Equal(t, []string{"a", "c"}, ids)

	pending, err = m.ListPending(ctx, domainauth.FamilyMX, 2)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
