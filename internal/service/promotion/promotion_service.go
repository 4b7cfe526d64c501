// internal/service/promotion/promotion_service.go
package promotion

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"licentra-service/internal/domain/promotion"
	xerrors "licentra-service/internal/pkg/errors"
	"licentra-service/internal/service/pricing"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, p *promotion.Promotion) error
	FindByCode(ctx context.Context, code string) (*promotion.Promotion, error)
	List(ctx context.Context, activeOnly bool) ([]promotion.Promotion, error)
	SetActive(ctx context.Context, id int64, active bool) error
	IncrementUsage(ctx context.Context, id int64) error
}

type PromotionService struct {
	store  Store
	logger *zap.Logger
}

func NewPromotionService(store Store, logger *zap.Logger) *PromotionService {
	return &PromotionService{store: store, logger: logger}
}

// Create registers a new promotion code.
func (s *PromotionService) Create(ctx context.Context, req *promotion.CreatePromotionRequest) (*promotion.Promotion, error) {
	if req.DiscountValue <= 0 {
		return nil, xerrors.Validationf("discount value must be positive")
	}
	if req.DiscountType != promotion.DiscountPercentage && req.DiscountType != promotion.DiscountFixed {
		return nil, xerrors.Validationf("unknown discount type %s", req.DiscountType)
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, xerrors.Validationf("promotion end date precedes start date")
	}

	p := &promotion.Promotion{
		PromotionCode:         strings.ToUpper(strings.TrimSpace(req.PromotionCode)),
		DiscountType:          req.DiscountType,
		DiscountValue:         req.DiscountValue,
		IsActive:              true,
		ApplicableLicenseKeys: req.ApplicableLicenseKeys,
	}
	if req.Description != "" {
		p.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if req.StartDate != nil {
		p.StartDate = sql.NullTime{Time: *req.StartDate, Valid: true}
	}
	if req.EndDate != nil {
		p.EndDate = sql.NullTime{Time: *req.EndDate, Valid: true}
	}
	if req.UsageLimit != nil {
		p.UsageLimit = sql.NullInt32{Int32: *req.UsageLimit, Valid: true}
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create promotion: %w", err)
	}

	s.logger.Info("promotion created",
		zap.Int64("promotion_id", p.ID),
		zap.String("promotion_code", p.PromotionCode),
	)

	return p, nil
}

// ValidateCode checks a code against an optional license key and returns the
// promotion when valid.
func (s *PromotionService) ValidateCode(ctx context.Context, code, licenseKey string) (*promotion.Promotion, error) {
	p, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Validationf("promotion code %s is not recognized", strings.ToUpper(code))
		}
		return nil, err
	}

	if err := pricing.ValidatePromotion(p, licenseKey, time.Now()); err != nil {
		return nil, err
	}

	return p, nil
}

// List retrieves promotions.
func (s *PromotionService) List(ctx context.Context, activeOnly bool) ([]promotion.Promotion, error) {
	return s.store.List(ctx, activeOnly)
}

// Deactivate disables a promotion code.
func (s *PromotionService) Deactivate(ctx context.Context, code string) error {
	p, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return err
	}

	if err := s.store.SetActive(ctx, p.ID, false); err != nil {
		return fmt.Errorf("failed to deactivate promotion: %w", err)
	}

	s.logger.Info("promotion deactivated", zap.String("promotion_code", p.PromotionCode))
	return nil
}
