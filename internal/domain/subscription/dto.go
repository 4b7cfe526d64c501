// internal/domain/subscription/dto.go
package subscription

import "time"

type ActivateSubscriptionRequest struct {
	SubscriptionID int64      `json:"subscription_id" binding:"required"`
	ExpiryOverride *time.Time `json:"expiry_override"`
}

type SubscriptionListFilters struct {
	UserID     int64  `form:"user_id"`
	ActiveOnly bool   `form:"active_only"`
	LicenseKey string `form:"license_key"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

type SubscriptionListResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
	TotalPages    int            `json:"total_pages"`
}
