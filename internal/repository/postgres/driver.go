package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

const driverColumns = `id, COALESCE(user_id, ''), name, contact, location_lng, location_lat, is_available, created_at, updated_at`

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, user_id, name, contact, location_lng, location_lat, is_available, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.UserID,
		driver.Name,
		driver.Contact,
		driver.Location.Lng(),
		driver.Location.Lat(),
		driver.IsAvailable,
		driver.CreatedAt,
		driver.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get driver %s: %w", id, err)
	}
	return driver, nil
}

// GetAvailableByIDs returns the available drivers among ids.
func (r *DriverRepository) GetAvailableByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = ANY($1) AND is_available = TRUE`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query available drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// UpdateLocation stores the driver's last reported position.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, location domain.GeoPoint) error {
	query := `UPDATE drivers SET location_lng = $1, location_lat = $2, updated_at = now() WHERE id = $3`
	return r.execOne(ctx, query, location.Lng(), location.Lat(), id)
}

// Reserve atomically flips is_available from true to false.
func (r *DriverRepository) Reserve(ctx context.Context, id string) error {
	query := `UPDATE drivers SET is_available = FALSE, updated_at = now() WHERE id = $1 AND is_available = TRUE`

	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reserve driver %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Either the driver is gone or someone else holds it.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrAlreadyReserved
	}

	return nil
}

// Release sets is_available to true. Idempotent.
func (r *DriverRepository) Release(ctx context.Context, id string) error {
	query := `UPDATE drivers SET is_available = TRUE, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *DriverRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var (
		driver   domain.Driver
		lng, lat float64
	)
	err := row.Scan(
		&driver.ID,
		&driver.UserID,
		&driver.Name,
		&driver.Contact,
		&lng,
		&lat,
		&driver.IsAvailable,
		&driver.CreatedAt,
		&driver.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	driver.Location = domain.GeoPoint{Type: domain.GeoPointType, Coordinates: []float64{lng, lat}}
	return &driver, nil
}

// Ensure DriverRepository implements repository.DriverRepository.
var _ repository.DriverRepository = (*DriverRepository)(nil)
