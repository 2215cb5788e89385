package repository

import (
	"context"

	"delivery/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetAvailableByIDs returns the drivers among ids that are currently
	// available, in no particular order.
	GetAvailableByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error)

	// UpdateLocation stores the driver's last reported position.
	UpdateLocation(ctx context.Context, id string, location domain.GeoPoint) error

	// Reserve atomically flips is_available from true to false.
	// Returns ErrAlreadyReserved if the driver is not available.
	Reserve(ctx context.Context, id string) error

	// Release sets is_available to true. Idempotent.
	Release(ctx context.Context, id string) error
}
