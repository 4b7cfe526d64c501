// internal/domain/license/entity.go
package license

import (
	"database/sql"
	"time"
)

// License is a catalog entry: a named access level with a price and a
// default duration. IsProtected is not stored; the catalog boundary resolves
// it from configuration on every read.
type License struct {
	ID           int64          `json:"id" db:"id"`
	Key          string         `json:"key" db:"key"`
	Name         string         `json:"name" db:"name"`
	Description  sql.NullString `json:"description,omitempty" db:"description"`
	Price        float64        `json:"price" db:"price"`
	DurationDays int            `json:"duration_days" db:"duration_days"`
	FeatureKeys  []string       `json:"feature_keys" db:"feature_keys"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	IsProtected  bool           `json:"is_protected" db:"-"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}
