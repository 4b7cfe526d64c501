// internal/domain/transaction/entity.go
package transaction

import (
	"database/sql"
	"time"
)

type TransactionType string

const (
	TypeNewPurchase TransactionType = "NEW_PURCHASE"
	TypeRenewal     TransactionType = "RENEWAL"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusSucceeded PaymentStatus = "SUCCEEDED"
	StatusCanceled  PaymentStatus = "CANCELED"
)

// Transaction is an auditable purchase/renewal record. Pricing fields are
// mutable only while the record is PENDING; SUCCEEDED and CANCELED are
// terminal.
type Transaction struct {
	ID                   int64           `json:"id" db:"id"`
	Reference            string          `json:"reference" db:"reference"`
	BuyerUserID          int64           `json:"buyer_user_id" db:"buyer_user_id"`
	LicenseID            int64           `json:"license_id" db:"license_id"`
	LicenseKey           string          `json:"license_key" db:"license_key"`
	TransactionType      TransactionType `json:"transaction_type" db:"transaction_type"`
	OriginalLicensePrice float64         `json:"original_license_price" db:"original_license_price"`
	PurchasedDurationDays int            `json:"purchased_duration_days" db:"purchased_duration_days"`

	PromotionID             sql.NullInt64  `json:"promotion_id,omitempty" db:"promotion_id"`
	PromotionCodeApplied    sql.NullString `json:"promotion_code_applied,omitempty" db:"promotion_code_applied"`
	PromotionDiscountAmount float64        `json:"promotion_discount_amount" db:"promotion_discount_amount"`
	BrokerCodeApplied       sql.NullString `json:"broker_code_applied,omitempty" db:"broker_code_applied"`
	BrokerDiscountAmount    float64        `json:"broker_discount_amount" db:"broker_discount_amount"`
	TotalDiscountAmount     float64        `json:"total_discount_amount" db:"total_discount_amount"`
	TransactionAmount       float64        `json:"transaction_amount" db:"transaction_amount"`

	PaymentStatus        PaymentStatus  `json:"payment_status" db:"payment_status"`
	TargetSubscriptionID sql.NullInt64  `json:"target_subscription_id,omitempty" db:"target_subscription_id"`
	Notes                sql.NullString `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type TransactionStats struct {
	TotalTransactions int64   `json:"total_transactions"`
	PendingCount      int64   `json:"pending_count"`
	SucceededCount    int64   `json:"succeeded_count"`
	CanceledCount     int64   `json:"canceled_count"`
	TotalRevenue      float64 `json:"total_revenue"`
	TotalDiscounted   float64 `json:"total_discounted"`
}
