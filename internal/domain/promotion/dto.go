// internal/domain/promotion/dto.go
package promotion

import "time"

type CreatePromotionRequest struct {
	PromotionCode         string       `json:"promotion_code" binding:"required"`
	Description           string       `json:"description"`
	DiscountType          DiscountType `json:"discount_type" binding:"required"`
	DiscountValue         float64      `json:"discount_value" binding:"required"`
	StartDate             *time.Time   `json:"start_date"`
	EndDate               *time.Time   `json:"end_date"`
	UsageLimit            *int32       `json:"usage_limit"`
	ApplicableLicenseKeys []string     `json:"applicable_license_keys"`
}

type ValidatePromotionRequest struct {
	Code       string `form:"code" binding:"required"`
	LicenseKey string `form:"license_key"`
}
