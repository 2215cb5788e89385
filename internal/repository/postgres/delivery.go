package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const deliveryColumns = `id, order_id, driver_id, status, pickup_lng, pickup_lat, dropoff_lng, dropoff_lat, assigned_at, updated_at`

// DeliveryRepository is a PostgreSQL implementation of repository.DeliveryRepository.
type DeliveryRepository struct {
	q Querier
}

// NewDeliveryRepository creates a new PostgreSQL delivery repository.
func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{q: db}
}

// Create persists a new delivery. The partial unique index on order_id
// rejects a second active delivery for the same order.
func (r *DeliveryRepository) Create(ctx context.Context, d *domain.Delivery) error {
	query := `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		d.ID,
		d.OrderID,
		d.DriverID,
		d.Status,
		d.PickupLocation.Lng(),
		d.PickupLocation.Lat(),
		d.DeliveryLocation.Lng(),
		d.DeliveryLocation.Lat(),
		d.AssignedAt,
		d.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateActiveDelivery
		}
		return fmt.Errorf("insert delivery: %w", err)
	}

	return nil
}

// GetByOrderID retrieves the most recently assigned delivery for an order.
func (r *DeliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE order_id = $1
		ORDER BY assigned_at DESC
		LIMIT 1
	`

	d, err := scanDelivery(r.q.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get delivery for order %q: %w", orderID, err)
	}

	return d, nil
}

// UpdateStatus advances the order's delivery with a compare-and-set on the
// committed status.
func (r *DeliveryRepository) UpdateStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, now time.Time) (*domain.Delivery, error) {
	current, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	previous := current.Status
	if err := current.Advance(status, now); err != nil {
		return nil, err
	}

	query := `
		UPDATE deliveries
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query, current.Status, current.UpdatedAt, current.ID, previous)
	if err != nil {
		return nil, fmt.Errorf("update delivery %s: %w", current.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		// A concurrent update committed first.
		return nil, fmt.Errorf("%w: %s changed concurrently", domain.ErrInvalidTransition, previous)
	}

	return current, nil
}

// ListActiveByDriverID returns the driver's non-Delivered deliveries.
func (r *DeliveryRepository) ListActiveByDriverID(ctx context.Context, driverID string) ([]*domain.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE driver_id = $1 AND status <> $2
		ORDER BY assigned_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, driverID, domain.DeliveryStatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("list deliveries for driver %s: %w", driverID, err)
	}
	defer rows.Close()

	deliveries := make([]*domain.Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, rows.Err()
}

func scanDelivery(row rowScanner) (*domain.Delivery, error) {
	var (
		d                      domain.Delivery
		pickupLng, pickupLat   float64
		dropoffLng, dropoffLat float64
	)
	err := row.Scan(
		&d.ID,
		&d.OrderID,
		&d.DriverID,
		&d.Status,
		&pickupLng,
		&pickupLat,
		&dropoffLng,
		&dropoffLat,
		&d.AssignedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.PickupLocation = domain.GeoPoint{Type: domain.GeoPointType, Coordinates: []float64{pickupLng, pickupLat}}
	d.DeliveryLocation = domain.GeoPoint{Type: domain.GeoPointType, Coordinates: []float64{dropoffLng, dropoffLat}}
	return &d, nil
}

// Ensure DeliveryRepository implements repository.DeliveryRepository.
var _ repository.DeliveryRepository = (*DeliveryRepository)(nil)
