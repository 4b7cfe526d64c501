// internal/repository/postgres/promotion_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"licentra-service/internal/domain/promotion"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PromotionRepository struct {
	db *pgxpool.Pool
}

func NewPromotionRepository(db *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{db: db}
}

const promotionColumns = `id, promotion_code, description, discount_type, discount_value, is_active,
	start_date, end_date, usage_limit, usage_count, applicable_license_keys, created_at, updated_at`

func scanPromotion(row pgx.Row) (*promotion.Promotion, error) {
	var p promotion.Promotion
	err := row.Scan(
		&p.ID, &p.PromotionCode, &p.Description, &p.DiscountType, &p.DiscountValue, &p.IsActive,
		&p.StartDate, &p.EndDate, &p.UsageLimit, &p.UsageCount, &p.ApplicableLicenseKeys,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan promotion: %w", err)
	}
	return &p, nil
}

// Create inserts a new promotion. The code is stored upper-cased.
func (r *PromotionRepository) Create(ctx context.Context, p *promotion.Promotion) error {
	p.PromotionCode = strings.ToUpper(p.PromotionCode)

	query := `
		INSERT INTO promotions (
			promotion_code, description, discount_type, discount_value, is_active,
			start_date, end_date, usage_limit, applicable_license_keys
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		p.PromotionCode, p.Description, p.DiscountType, p.DiscountValue, p.IsActive,
		p.StartDate, p.EndDate, p.UsageLimit, p.ApplicableLicenseKeys,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}

	return nil
}

// FindByCode retrieves a promotion by its case-normalized code.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE promotion_code = $1`
	return scanPromotion(r.db.QueryRow(ctx, query, strings.ToUpper(code)))
}

// FindByID retrieves a promotion by ID.
func (r *PromotionRepository) FindByID(ctx context.Context, id int64) (*promotion.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`
	return scanPromotion(r.db.QueryRow(ctx, query, id))
}

// IncrementUsage bumps the usage counter by one.
func (r *PromotionRepository) IncrementUsage(ctx context.Context, id int64) error {
	query := `UPDATE promotions SET usage_count = usage_count + 1, updated_at = $1 WHERE id = $2`

	result, err := r.db.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to increment promotion usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// List retrieves all promotions, optionally active only.
func (r *PromotionRepository) List(ctx context.Context, activeOnly bool) ([]promotion.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	defer rows.Close()

	var promos []promotion.Promotion
	for rows.Next() {
		var p promotion.Promotion
		if err := rows.Scan(
			&p.ID, &p.PromotionCode, &p.Description, &p.DiscountType, &p.DiscountValue, &p.IsActive,
			&p.StartDate, &p.EndDate, &p.UsageLimit, &p.UsageCount, &p.ApplicableLicenseKeys,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		promos = append(promos, p)
	}

	return promos, rows.Err()
}

// SetActive toggles the active flag.
func (r *PromotionRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE promotions SET is_active = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set promotion active flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
