// internal/domain/subscription/entity.go
package subscription

import "time"

// Subscription is a time-boxed instantiation of a License for one user.
// The license key is denormalized at creation time so lifecycle rules can be
// evaluated without a catalog round trip.
type Subscription struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	LicenseID  int64     `json:"license_id" db:"license_id"`
	LicenseKey string    `json:"license_key" db:"license_key"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	StartDate  time.Time `json:"start_date" db:"start_date"`
	ExpiryDate time.Time `json:"expiry_date" db:"expiry_date"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether the subscription has lapsed at the given instant.
func (s *Subscription) IsExpired(now time.Time) bool {
	return s.ExpiryDate.Before(now)
}
