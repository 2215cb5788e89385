package redis

import (
	"context"
	"time"

	"delivery/internal/domain"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, location domain.GeoPoint) error
	FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, count int) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (string, bool, error)
	ReleaseOrderLock(ctx context.Context, orderID, token string) error
}

// ResponseCacheInterface defines the interface for idempotent response storage.
type ResponseCacheInterface interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ ResponseCacheInterface = (*ResponseCacheStore)(nil)
)
