// internal/domain/transaction/dto.go
package transaction

type CreateTransactionRequest struct {
	BuyerUserID    int64           `json:"buyer_user_id"`
	Type           TransactionType `json:"transaction_type" binding:"required"`
	LicenseKey     string          `json:"license_key"`
	SubscriptionID int64           `json:"subscription_id"`
	DurationDays   int             `json:"duration_days"`
	PromotionCode  string          `json:"promotion_code"`
	BrokerCode     string          `json:"broker_code"`
}

// UpdateTransactionRequest carries admin overrides for a PENDING record.
// Nil pointers leave the current value untouched; an empty string for the
// broker override clears the broker attribution entirely.
type UpdateTransactionRequest struct {
	DurationDays       *int    `json:"duration_days"`
	PromotionCode      *string `json:"promotion_code"`
	BrokerCodeOverride *string `json:"broker_code_override"`
	Notes              *string `json:"notes"`
}

type ConfirmTransactionRequest struct {
	AmountOverride   *float64 `json:"amount_override"`
	DurationOverride *int     `json:"duration_override"`
	AdminNotes       string   `json:"admin_notes"`
}

type TransactionListFilters struct {
	BuyerUserID int64         `form:"buyer_user_id"`
	Status      PaymentStatus `form:"status"`
	Page        int           `form:"page"`
	PageSize    int           `form:"page_size"`
}

type TransactionListResponse struct {
	Transactions []Transaction `json:"transactions"`
	Total        int64         `json:"total"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
	TotalPages   int           `json:"total_pages"`
}
