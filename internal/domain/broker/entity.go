// internal/domain/broker/entity.go
package broker

import "time"

// Broker is a referral partner record; one per user. The code is a generated
// 4-character uppercase alphanumeric identifier, unique across all brokers.
type Broker struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	BrokerCode string    `json:"broker_code" db:"broker_code"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
