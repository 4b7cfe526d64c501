// internal/service/license/license_service_test.go
package license

import (
	"context"
	"testing"

	"licentra-service/internal/config"
	"licentra-service/internal/domain/license"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memLicenseStore struct {
	seq        int64
	byID       map[int64]*license.License
	activeRefs map[int64]int64
}

func newMemLicenseStore() *memLicenseStore {
	return &memLicenseStore{
		byID:       make(map[int64]*license.License),
		activeRefs: make(map[int64]int64),
	}
}

func (m *memLicenseStore) Create(_ context.Context, l *license.License) error {
	m.seq++
	l.ID = m.seq
	cp := *l
	m.byID[l.ID] = &cp
	return nil
}

func (m *memLicenseStore) FindByID(_ context.Context, id int64) (*license.License, error) {
	if l, ok := m.byID[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, xerrors.ErrNotFound
}

func (m *memLicenseStore) FindByKey(_ context.Context, key string) (*license.License, error) {
	for _, l := range m.byID {
		if l.Key == key {
			cp := *l
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *memLicenseStore) List(_ context.Context, activeOnly bool) ([]license.License, error) {
	var out []license.License
	for _, l := range m.byID {
		if activeOnly && !l.IsActive {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (m *memLicenseStore) Update(_ context.Context, l *license.License) error {
	if _, ok := m.byID[l.ID]; !ok {
		return xerrors.ErrNotFound
	}
	cp := *l
	m.byID[l.ID] = &cp
	return nil
}

func (m *memLicenseStore) SetActive(_ context.Context, id int64, active bool) error {
	l, ok := m.byID[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	l.IsActive = active
	return nil
}

func (m *memLicenseStore) CountActiveSubscriptions(_ context.Context, licenseID int64) (int64, error) {
	return m.activeRefs[licenseID], nil
}

type recordingCache struct {
	entries     map[string]*license.License
	invalidated []string
}

func (c *recordingCache) Get(_ context.Context, key string) (*license.License, bool) {
	if c.entries == nil {
		return nil, false
	}
	l, ok := c.entries[key]
	return l, ok
}

func (c *recordingCache) Set(_ context.Context, l *license.License) {
	if c.entries == nil {
		c.entries = make(map[string]*license.License)
	}
	c.entries[l.Key] = l
}

func (c *recordingCache) Invalidate(_ context.Context, key string) {
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
}

func newLicenseFixture(t *testing.T) (*LicenseService, *memLicenseStore, *recordingCache) {
	t.Helper()

	store := newMemLicenseStore()
	cache := &recordingCache{}
	cfg := config.EngineConfig{
		BasicLicenseKey:      "BASIC",
		ProtectedLicenseKeys: []string{"ADMIN", "PARTNER", "BASIC"},
	}
	return NewLicenseService(store, cache, cfg, zap.NewNop()), store, cache
}

func seedLicense(t *testing.T, store *memLicenseStore, key string, price float64) *license.License {
	t.Helper()
	l := &license.License{Key: key, Name: key, Price: price, DurationDays: 30, IsActive: true}
	require.NoError(t, store.Create(context.Background(), l))
	return l
}

func TestGetByKeyTagsProtected(t *testing.T) {
	svc, store, _ := newLicenseFixture(t)
	seedLicense(t, store, "PARTNER", 0)
	seedLicense(t, store, "PRO", 100)

	partner, err := svc.GetByKey(context.Background(), "PARTNER")
	require.NoError(t, err)
	assert.True(t, partner.IsProtected)

	pro, err := svc.GetByKey(context.Background(), "PRO")
	require.NoError(t, err)
	assert.False(t, pro.IsProtected)
}

func TestGetByKeyReadsThroughCache(t *testing.T) {
	svc, store, cache := newLicenseFixture(t)
	seedLicense(t, store, "PRO", 100)

	_, err := svc.GetByKey(context.Background(), "PRO")
	require.NoError(t, err)
	assert.Contains(t, cache.entries, "PRO")

	// Subsequent reads are served from cache even if the store changes.
	store.byID[1].Price = 999
	l, err := svc.GetByKey(context.Background(), "PRO")
	require.NoError(t, err)
	assert.Equal(t, 100.0, l.Price)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newLicenseFixture(t)

	_, err := svc.Create(context.Background(), &license.CreateLicenseRequest{Key: "X", Name: "X", Price: -1, DurationDays: 30})
	assert.True(t, xerrors.IsValidation(err))

	_, err = svc.Create(context.Background(), &license.CreateLicenseRequest{Key: "X", Name: "X", Price: 10, DurationDays: 0})
	assert.True(t, xerrors.IsValidation(err))
}

func TestUpdateProtectedPriceRejected(t *testing.T) {
	svc, store, _ := newLicenseFixture(t)
	partner := seedLicense(t, store, "PARTNER", 0)

	price := 50.0
	_, err := svc.Update(context.Background(), partner.ID, &license.UpdateLicenseRequest{Price: &price})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))

	// Non-pricing fields remain editable.
	name := "Partner Tier"
	updated, err := svc.Update(context.Background(), partner.ID, &license.UpdateLicenseRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Partner Tier", updated.Name)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	svc, store, cache := newLicenseFixture(t)
	pro := seedLicense(t, store, "PRO", 100)

	_, err := svc.GetByKey(context.Background(), "PRO")
	require.NoError(t, err)

	price := 120.0
	_, err = svc.Update(context.Background(), pro.ID, &license.UpdateLicenseRequest{Price: &price})
	require.NoError(t, err)

	assert.Contains(t, cache.invalidated, "PRO")
}

func TestDeactivateProtectedRejected(t *testing.T) {
	svc, store, _ := newLicenseFixture(t)
	basic := seedLicense(t, store, "BASIC", 0)

	err := svc.Deactivate(context.Background(), basic.ID)
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestDeactivateReferencedRejected(t *testing.T) {
	svc, store, _ := newLicenseFixture(t)
	pro := seedLicense(t, store, "PRO", 100)
	store.activeRefs[pro.ID] = 3

	err := svc.Deactivate(context.Background(), pro.ID)
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
	assert.True(t, store.byID[pro.ID].IsActive)
}

func TestDeactivateUnreferenced(t *testing.T) {
	svc, store, _ := newLicenseFixture(t)
	pro := seedLicense(t, store, "PRO", 100)

	require.NoError(t, svc.Deactivate(context.Background(), pro.ID))
	assert.False(t, store.byID[pro.ID].IsActive)

	require.NoError(t, svc.Activate(context.Background(), pro.ID))
	assert.True(t, store.byID[pro.ID].IsActive)
}
