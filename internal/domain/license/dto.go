// internal/domain/license/dto.go
package license

type CreateLicenseRequest struct {
	Key          string   `json:"key" binding:"required"`
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	DurationDays int      `json:"duration_days" binding:"required"`
	FeatureKeys  []string `json:"feature_keys"`
}

// UpdateLicenseRequest carries partial updates; nil pointers leave the
// current value untouched.
type UpdateLicenseRequest struct {
	Name         *string   `json:"name"`
	Description  *string   `json:"description"`
	Price        *float64  `json:"price"`
	DurationDays *int      `json:"duration_days"`
	FeatureKeys  *[]string `json:"feature_keys"`
}
