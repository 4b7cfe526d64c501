// internal/domain/user/entity.go
package user

import (
	"database/sql"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleBroker = "broker"
)

// User is the slice of the account record this engine needs: roles for the
// self-service purchase rule, the referral code mirror, and the current
// subscription pointer.
type User struct {
	ID                    int64          `json:"id" db:"id"`
	Email                 string         `json:"email" db:"email"`
	FullName              string         `json:"full_name" db:"full_name"`
	Roles                 []string       `json:"roles" db:"roles"`
	ReferralCode          sql.NullString `json:"referral_code,omitempty" db:"referral_code"`
	CurrentSubscriptionID sql.NullInt64  `json:"current_subscription_id,omitempty" db:"current_subscription_id"`
	CreatedAt             time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the user holds an administrative or broker
// role and therefore cannot self-serve purchases.
func (u *User) IsPrivileged() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleBroker)
}
