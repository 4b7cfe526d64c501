// internal/service/license/license_service.go
package license

import (
	"context"
	"database/sql"
	"fmt"

	"licentra-service/internal/config"
	"licentra-service/internal/domain/license"
	xerrors "licentra-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, l *license.License) error
	FindByID(ctx context.Context, id int64) (*license.License, error)
	FindByKey(ctx context.Context, key string) (*license.License, error)
	List(ctx context.Context, activeOnly bool) ([]license.License, error)
	Update(ctx context.Context, l *license.License) error
	SetActive(ctx context.Context, id int64, active bool) error
	CountActiveSubscriptions(ctx context.Context, licenseID int64) (int64, error)
}

// Cache is the optional read cache in front of the store.
type Cache interface {
	Get(ctx context.Context, key string) (*license.License, bool)
	Set(ctx context.Context, l *license.License)
	Invalidate(ctx context.Context, key string)
}

// LicenseService is the catalog boundary. Protection is resolved here, once,
// from configuration; everything downstream trusts the IsProtected flag on
// the returned value.
type LicenseService struct {
	store  Store
	cache  Cache
	cfg    config.EngineConfig
	logger *zap.Logger
}

func NewLicenseService(store Store, cache Cache, cfg config.EngineConfig, logger *zap.Logger) *LicenseService {
	return &LicenseService{store: store, cache: cache, cfg: cfg, logger: logger}
}

func (s *LicenseService) tag(l *license.License) *license.License {
	l.IsProtected = s.cfg.IsProtectedKey(l.Key)
	return l
}

// GetByKey retrieves a license by key, serving cached copies when possible.
func (s *LicenseService) GetByKey(ctx context.Context, key string) (*license.License, error) {
	if s.cache != nil {
		if l, ok := s.cache.Get(ctx, key); ok {
			return s.tag(l), nil
		}
	}

	l, err := s.store.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, l)
	}

	return s.tag(l), nil
}

// GetByID retrieves a license by ID.
func (s *LicenseService) GetByID(ctx context.Context, id int64) (*license.License, error) {
	l, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.tag(l), nil
}

// List retrieves licenses, optionally restricted to active ones.
func (s *LicenseService) List(ctx context.Context, activeOnly bool) ([]license.License, error) {
	licenses, err := s.store.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}
	for i := range licenses {
		licenses[i].IsProtected = s.cfg.IsProtectedKey(licenses[i].Key)
	}
	return licenses, nil
}

// Create adds a new license to the catalog.
func (s *LicenseService) Create(ctx context.Context, req *license.CreateLicenseRequest) (*license.License, error) {
	if req.Price < 0 {
		return nil, xerrors.Validationf("license price cannot be negative")
	}
	if req.DurationDays <= 0 {
		return nil, xerrors.Validationf("license duration must be positive")
	}

	l := &license.License{
		Key:          req.Key,
		Name:         req.Name,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		FeatureKeys:  req.FeatureKeys,
		IsActive:     true,
	}
	if req.Description != "" {
		l.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.store.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create license: %w", err)
	}

	s.logger.Info("license created",
		zap.Int64("license_id", l.ID),
		zap.String("key", l.Key),
		zap.Float64("price", l.Price),
	)

	return s.tag(l), nil
}

// Update mutates catalog fields. Protected keys reject price and duration
// changes.
func (s *LicenseService) Update(ctx context.Context, id int64, req *license.UpdateLicenseRequest) (*license.License, error) {
	l, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.tag(l)

	if l.IsProtected && (req.Price != nil || req.DurationDays != nil) {
		return nil, xerrors.Validationf("cannot change price or duration of protected license %s", l.Key)
	}

	if req.Name != nil {
		l.Name = *req.Name
	}
	if req.Description != nil {
		l.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, xerrors.Validationf("license price cannot be negative")
		}
		l.Price = *req.Price
	}
	if req.DurationDays != nil {
		if *req.DurationDays <= 0 {
			return nil, xerrors.Validationf("license duration must be positive")
		}
		l.DurationDays = *req.DurationDays
	}
	if req.FeatureKeys != nil {
		l.FeatureKeys = *req.FeatureKeys
	}

	if err := s.store.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to update license: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, l.Key)
	}

	s.logger.Info("license updated", zap.Int64("license_id", l.ID), zap.String("key", l.Key))

	return l, nil
}

// Deactivate disables a license. Protected keys are rejected outright, and
// any license still referenced by active subscriptions is rejected to force
// an explicit migration path.
func (s *LicenseService) Deactivate(ctx context.Context, id int64) error {
	l, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	s.tag(l)

	if l.IsProtected {
		return xerrors.Validationf("cannot deactivate protected license %s", l.Key)
	}

	count, err := s.store.CountActiveSubscriptions(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("failed to check license references: %w", err)
	}
	if count > 0 {
		return xerrors.Validationf("cannot deactivate license %s: %d active subscriptions reference it", l.Key, count)
	}

	if err := s.store.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to deactivate license: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, l.Key)
	}

	s.logger.Info("license deactivated", zap.Int64("license_id", id), zap.String("key", l.Key))
	return nil
}

// Activate re-enables a license.
func (s *LicenseService) Activate(ctx context.Context, id int64) error {
	l, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.SetActive(ctx, id, true); err != nil {
		return fmt.Errorf("failed to activate license: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, l.Key)
	}

	s.logger.Info("license activated", zap.Int64("license_id", id), zap.String("key", l.Key))
	return nil
}
