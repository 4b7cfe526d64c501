// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"licentra-service/internal/domain/user"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves the engine-relevant slice of a user record.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT id, email, full_name, roles, referral_code, current_subscription_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u user.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.FullName, &u.Roles, &u.ReferralCode,
		&u.CurrentSubscriptionID, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &u, nil
}

// CurrentSubscriptionID returns the user's subscription pointer; the bool
// reports whether one is set.
func (r *UserRepository) CurrentSubscriptionID(ctx context.Context, userID int64) (int64, bool, error) {
	query := `SELECT current_subscription_id FROM users WHERE id = $1`

	var subscriptionID *int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&subscriptionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, xerrors.ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read current subscription pointer: %w", err)
	}
	if subscriptionID == nil {
		return 0, false, nil
	}

	return *subscriptionID, true, nil
}

// SetCurrentSubscription updates the user's current subscription pointer;
// nil clears it.
func (r *UserRepository) SetCurrentSubscription(ctx context.Context, userID int64, subscriptionID *int64) error {
	query := `UPDATE users SET current_subscription_id = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(ctx, query, subscriptionID, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update current subscription pointer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// UpdateReferralCode mirrors the user's active broker code; nil clears it.
func (r *UserRepository) UpdateReferralCode(ctx context.Context, userID int64, code *string) error {
	query := `UPDATE users SET referral_code = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(ctx, query, code, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update referral code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
