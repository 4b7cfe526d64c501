// internal/repository/postgres/license_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"licentra-service/internal/domain/license"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LicenseRepository struct {
	db *pgxpool.Pool
}

func NewLicenseRepository(db *pgxpool.Pool) *LicenseRepository {
	return &LicenseRepository{db: db}
}

const licenseColumns = `id, key, name, description, price, duration_days, feature_keys, is_active, created_at, updated_at`

func scanLicense(row pgx.Row) (*license.License, error) {
	var l license.License
	err := row.Scan(
		&l.ID, &l.Key, &l.Name, &l.Description, &l.Price, &l.DurationDays,
		&l.FeatureKeys, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan license: %w", err)
	}
	return &l, nil
}

// Create inserts a new license.
func (r *LicenseRepository) Create(ctx context.Context, l *license.License) error {
	query := `
		INSERT INTO licenses (key, name, description, price, duration_days, feature_keys, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		l.Key, l.Name, l.Description, l.Price, l.DurationDays, l.FeatureKeys, l.IsActive,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}

	return nil
}

// FindByID retrieves a license by ID.
func (r *LicenseRepository) FindByID(ctx context.Context, id int64) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	return scanLicense(r.db.QueryRow(ctx, query, id))
}

// FindByKey retrieves a license by its unique key.
func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE key = $1`
	return scanLicense(r.db.QueryRow(ctx, query, key))
}

// List retrieves licenses, optionally restricted to active ones.
func (r *LicenseRepository) List(ctx context.Context, activeOnly bool) ([]license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY key`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}
	defer rows.Close()

	var licenses []license.License
	for rows.Next() {
		var l license.License
		if err := rows.Scan(
			&l.ID, &l.Key, &l.Name, &l.Description, &l.Price, &l.DurationDays,
			&l.FeatureKeys, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}
		licenses = append(licenses, l)
	}

	return licenses, rows.Err()
}

// Update persists mutable license fields. The key is immutable.
func (r *LicenseRepository) Update(ctx context.Context, l *license.License) error {
	query := `
		UPDATE licenses
		SET name = $1, description = $2, price = $3, duration_days = $4, feature_keys = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.db.Exec(ctx, query, l.Name, l.Description, l.Price, l.DurationDays, l.FeatureKeys, time.Now(), l.ID)
	if err != nil {
		return fmt.Errorf("failed to update license: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// SetActive toggles the active flag.
func (r *LicenseRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE licenses SET is_active = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set license active flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// CountActiveSubscriptions counts active subscriptions referencing a license,
// used to guard deactivation.
func (r *LicenseRepository) CountActiveSubscriptions(ctx context.Context, licenseID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM subscriptions WHERE license_id = $1 AND is_active = true`

	var count int64
	if err := r.db.QueryRow(ctx, query, licenseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}

	return count, nil
}
