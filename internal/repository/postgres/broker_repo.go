// internal/repository/postgres/broker_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"licentra-service/internal/domain/broker"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BrokerRepository struct {
	db *pgxpool.Pool
}

func NewBrokerRepository(db *pgxpool.Pool) *BrokerRepository {
	return &BrokerRepository{db: db}
}

const brokerColumns = `id, user_id, broker_code, is_active, created_at, updated_at`

func scanBroker(row pgx.Row) (*broker.Broker, error) {
	var b broker.Broker
	err := row.Scan(&b.ID, &b.UserID, &b.BrokerCode, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan broker: %w", err)
	}
	return &b, nil
}

// Create inserts a new broker record.
func (r *BrokerRepository) Create(ctx context.Context, b *broker.Broker) error {
	query := `
		INSERT INTO brokers (user_id, broker_code, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, b.UserID, strings.ToUpper(b.BrokerCode), b.IsActive).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create broker: %w", err)
	}

	return nil
}

// FindByUserID retrieves a user's broker record, active or not.
func (r *BrokerRepository) FindByUserID(ctx context.Context, userID int64) (*broker.Broker, error) {
	query := `SELECT ` + brokerColumns + ` FROM brokers WHERE user_id = $1`
	return scanBroker(r.db.QueryRow(ctx, query, userID))
}

// FindByCode retrieves a broker by its referral code.
func (r *BrokerRepository) FindByCode(ctx context.Context, code string) (*broker.Broker, error) {
	query := `SELECT ` + brokerColumns + ` FROM brokers WHERE broker_code = $1`
	return scanBroker(r.db.QueryRow(ctx, query, strings.ToUpper(code)))
}

// CodeExists reports whether any broker already holds the code.
func (r *BrokerRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM brokers WHERE broker_code = $1)`
	if err := r.db.QueryRow(ctx, query, strings.ToUpper(code)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check broker code: %w", err)
	}
	return exists, nil
}

// SetActive toggles the active flag.
func (r *BrokerRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE brokers SET is_active = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set broker active flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
