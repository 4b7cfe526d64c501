// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"licentra-service/internal/domain/subscription"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, license_id, license_key, is_active, start_date, expiry_date, created_at, updated_at`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := row.Scan(
		&s.ID, &s.UserID, &s.LicenseID, &s.LicenseKey, &s.IsActive,
		&s.StartDate, &s.ExpiryDate, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return &s, nil
}

func collectSubscriptions(rows pgx.Rows) ([]subscription.Subscription, error) {
	defer rows.Close()

	var subs []subscription.Subscription
	for rows.Next() {
		var s subscription.Subscription
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.LicenseID, &s.LicenseKey, &s.IsActive,
			&s.StartDate, &s.ExpiryDate, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}

	return subs, rows.Err()
}

// Create inserts a new subscription record.
func (r *SubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, license_id, license_key, is_active, start_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		s.UserID, s.LicenseID, s.LicenseKey, s.IsActive, s.StartDate, s.ExpiryDate,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// FindByID retrieves a subscription by ID.
func (r *SubscriptionRepository) FindByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

// FindActiveByUser retrieves all active subscriptions for a user, newest
// activation first.
func (r *SubscriptionRepository) FindActiveByUser(ctx context.Context, userID int64) ([]subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1 AND is_active = true
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find active subscriptions: %w", err)
	}

	return collectSubscriptions(rows)
}

// FindLatestByUserAndKey retrieves the most recent subscription a user holds
// for a given license key, regardless of status.
func (r *SubscriptionRepository) FindLatestByUserAndKey(ctx context.Context, userID int64, licenseKey string) (*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1 AND license_key = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanSubscription(r.db.QueryRow(ctx, query, userID, licenseKey))
}

// UpdateStatus flips the active flag.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id int64, active bool) error {
	query := `UPDATE subscriptions SET is_active = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// UpdateSchedule rewrites the validity window and status in one statement so
// activation is atomic relative to the record.
func (r *SubscriptionRepository) UpdateSchedule(ctx context.Context, id int64, start, expiry time.Time, active bool) error {
	query := `
		UPDATE subscriptions
		SET start_date = $1, expiry_date = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(ctx, query, start, expiry, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update subscription schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// FindExpiredActive retrieves active subscriptions whose expiry has passed,
// excluding the given license keys (protected keys and the fallback key).
func (r *SubscriptionRepository) FindExpiredActive(ctx context.Context, excludeKeys []string) ([]subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE is_active = true AND expiry_date < NOW() AND license_key != ALL($1)
		ORDER BY expiry_date
	`

	rows, err := r.db.Query(ctx, query, excludeKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired subscriptions: %w", err)
	}

	return collectSubscriptions(rows)
}

// FindExpiringBetween retrieves active subscriptions expiring inside the
// window, used for reminder dispatch.
func (r *SubscriptionRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE is_active = true AND expiry_date >= $1 AND expiry_date < $2
		ORDER BY expiry_date
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring subscriptions: %w", err)
	}

	return collectSubscriptions(rows)
}

// Delete removes a terminal subscription record (administrative use only).
func (r *SubscriptionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// List retrieves subscriptions with filters and pagination.
func (r *SubscriptionRepository) List(ctx context.Context, filters *subscription.SubscriptionListFilters) ([]subscription.Subscription, int64, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argPos := 1

	if filters.UserID > 0 {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, filters.UserID)
		argPos++
	}
	if filters.ActiveOnly {
		conditions = append(conditions, "is_active = true")
	}
	if filters.LicenseKey != "" {
		conditions = append(conditions, fmt.Sprintf("license_key = $%d", argPos))
		args = append(args, filters.LicenseKey)
		argPos++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM subscriptions WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argPos, argPos+1,
	)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	subs, err := collectSubscriptions(rows)
	if err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}
