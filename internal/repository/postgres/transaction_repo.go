// internal/repository/postgres/transaction_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"licentra-service/internal/domain/transaction"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, reference, buyer_user_id, license_id, license_key, transaction_type,
	original_license_price, purchased_duration_days,
	promotion_id, promotion_code_applied, promotion_discount_amount,
	broker_code_applied, broker_discount_amount,
	total_discount_amount, transaction_amount,
	payment_status, target_subscription_id, notes, created_at, updated_at`

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	err := row.Scan(
		&t.ID, &t.Reference, &t.BuyerUserID, &t.LicenseID, &t.LicenseKey, &t.TransactionType,
		&t.OriginalLicensePrice, &t.PurchasedDurationDays,
		&t.PromotionID, &t.PromotionCodeApplied, &t.PromotionDiscountAmount,
		&t.BrokerCodeApplied, &t.BrokerDiscountAmount,
		&t.TotalDiscountAmount, &t.TransactionAmount,
		&t.PaymentStatus, &t.TargetSubscriptionID, &t.Notes, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

// Create inserts a new PENDING transaction record.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			reference, buyer_user_id, license_id, license_key, transaction_type,
			original_license_price, purchased_duration_days,
			promotion_id, promotion_code_applied, promotion_discount_amount,
			broker_code_applied, broker_discount_amount,
			total_discount_amount, transaction_amount,
			payment_status, target_subscription_id, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		t.Reference, t.BuyerUserID, t.LicenseID, t.LicenseKey, t.TransactionType,
		t.OriginalLicensePrice, t.PurchasedDurationDays,
		t.PromotionID, t.PromotionCodeApplied, t.PromotionDiscountAmount,
		t.BrokerCodeApplied, t.BrokerDiscountAmount,
		t.TotalDiscountAmount, t.TransactionAmount,
		t.PaymentStatus, t.TargetSubscriptionID, t.Notes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// FindByID retrieves a transaction by ID.
func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

// UpdatePricing rewrites the pricing and note fields of a PENDING record.
// The conditional status check makes the PENDING-only rule hold even under
// racing writers.
func (r *TransactionRepository) UpdatePricing(ctx context.Context, t *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET purchased_duration_days = $1,
		    promotion_id = $2, promotion_code_applied = $3, promotion_discount_amount = $4,
		    broker_code_applied = $5, broker_discount_amount = $6,
		    total_discount_amount = $7, transaction_amount = $8,
		    notes = $9, updated_at = $10
		WHERE id = $11 AND payment_status = $12
	`

	result, err := r.db.Exec(
		ctx, query,
		t.PurchasedDurationDays,
		t.PromotionID, t.PromotionCodeApplied, t.PromotionDiscountAmount,
		t.BrokerCodeApplied, t.BrokerDiscountAmount,
		t.TotalDiscountAmount, t.TransactionAmount,
		t.Notes, time.Now(),
		t.ID, transaction.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction pricing: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotPending
	}

	return nil
}

// MarkSucceeded finalizes a PENDING record: amount, duration, notes, target
// subscription, and the terminal status flip, all in one conditional update.
func (r *TransactionRepository) MarkSucceeded(ctx context.Context, t *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET transaction_amount = $1, purchased_duration_days = $2, notes = $3,
		    target_subscription_id = $4, payment_status = $5, updated_at = $6
		WHERE id = $7 AND payment_status = $8
	`

	result, err := r.db.Exec(
		ctx, query,
		t.TransactionAmount, t.PurchasedDurationDays, t.Notes,
		t.TargetSubscriptionID, transaction.StatusSucceeded, time.Now(),
		t.ID, transaction.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark transaction succeeded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotPending
	}

	return nil
}

// MarkCanceled flips a PENDING record to CANCELED.
func (r *TransactionRepository) MarkCanceled(ctx context.Context, id int64) error {
	query := `
		UPDATE transactions
		SET payment_status = $1, updated_at = $2
		WHERE id = $3 AND payment_status = $4
	`

	result, err := r.db.Exec(ctx, query, transaction.StatusCanceled, time.Now(), id, transaction.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark transaction canceled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotPending
	}

	return nil
}

// List retrieves transactions with filters and pagination.
func (r *TransactionRepository) List(ctx context.Context, filters *transaction.TransactionListFilters) ([]transaction.Transaction, int64, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argPos := 1

	if filters.BuyerUserID > 0 {
		conditions = append(conditions, fmt.Sprintf("buyer_user_id = $%d", argPos))
		args = append(args, filters.BuyerUserID)
		argPos++
	}
	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT `+transactionColumns+` FROM transactions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argPos, argPos+1,
	)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []transaction.Transaction
	for rows.Next() {
		var t transaction.Transaction
		if err := rows.Scan(
			&t.ID, &t.Reference, &t.BuyerUserID, &t.LicenseID, &t.LicenseKey, &t.TransactionType,
			&t.OriginalLicensePrice, &t.PurchasedDurationDays,
			&t.PromotionID, &t.PromotionCodeApplied, &t.PromotionDiscountAmount,
			&t.BrokerCodeApplied, &t.BrokerDiscountAmount,
			&t.TotalDiscountAmount, &t.TransactionAmount,
			&t.PaymentStatus, &t.TargetSubscriptionID, &t.Notes, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

// GetStats aggregates transaction counts and revenue.
func (r *TransactionRepository) GetStats(ctx context.Context) (*transaction.TransactionStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE payment_status = 'PENDING'),
			COUNT(*) FILTER (WHERE payment_status = 'SUCCEEDED'),
			COUNT(*) FILTER (WHERE payment_status = 'CANCELED'),
			COALESCE(SUM(transaction_amount) FILTER (WHERE payment_status = 'SUCCEEDED'), 0),
			COALESCE(SUM(total_discount_amount) FILTER (WHERE payment_status = 'SUCCEEDED'), 0)
		FROM transactions
	`

	var stats transaction.TransactionStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalTransactions, &stats.PendingCount, &stats.SucceededCount,
		&stats.CanceledCount, &stats.TotalRevenue, &stats.TotalDiscounted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction stats: %w", err)
	}

	return &stats, nil
}
