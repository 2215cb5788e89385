package repository

import (
	"context"
	"time"

	"delivery/internal/domain"
)

// DeliveryRepository defines the persistence operations for deliveries.
type DeliveryRepository interface {
	// Create persists a new delivery.
	// Returns ErrDuplicateActiveDelivery if the order has an active delivery.
	Create(ctx context.Context, delivery *domain.Delivery) error

	// GetByOrderID retrieves the most recently assigned delivery for an order.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error)

	// UpdateStatus moves the order's delivery to status. The write only
	// succeeds if status immediately follows the committed status; otherwise
	// domain.ErrInvalidTransition is returned.
	UpdateStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, now time.Time) (*domain.Delivery, error)

	// ListActiveByDriverID returns the driver's non-Delivered deliveries,
	// most recently assigned first.
	ListActiveByDriverID(ctx context.Context, driverID string) ([]*domain.Delivery, error)
}
