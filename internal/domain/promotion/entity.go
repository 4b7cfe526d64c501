// internal/domain/promotion/entity.go
package promotion

import (
	"database/sql"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED_AMOUNT"
)

// Promotion is a time/usage-bounded discount code. Codes are stored
// upper-cased; lookups normalize the same way.
type Promotion struct {
	ID            int64        `json:"id" db:"id"`
	PromotionCode string       `json:"promotion_code" db:"promotion_code"`
	Description   sql.NullString `json:"description,omitempty" db:"description"`
	DiscountType  DiscountType `json:"discount_type" db:"discount_type"`
	DiscountValue float64      `json:"discount_value" db:"discount_value"`
	IsActive      bool         `json:"is_active" db:"is_active"`

	StartDate sql.NullTime  `json:"start_date,omitempty" db:"start_date"`
	EndDate   sql.NullTime  `json:"end_date,omitempty" db:"end_date"`
	UsageLimit sql.NullInt32 `json:"usage_limit,omitempty" db:"usage_limit"`
	UsageCount int           `json:"usage_count" db:"usage_count"`

	// ApplicableLicenseKeys is an allow-list; empty means any license.
	ApplicableLicenseKeys []string `json:"applicable_license_keys,omitempty" db:"applicable_license_keys"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AppliesTo reports whether the promotion's allow-list admits the license key.
func (p *Promotion) AppliesTo(licenseKey string) bool {
	if len(p.ApplicableLicenseKeys) == 0 {
		return true
	}
	for _, k := range p.ApplicableLicenseKeys {
		if k == licenseKey {
			return true
		}
	}
	return false
}

// Exhausted reports whether the usage limit, if set, has been reached.
func (p *Promotion) Exhausted() bool {
	return p.UsageLimit.Valid && p.UsageCount >= int(p.UsageLimit.Int32)
}
