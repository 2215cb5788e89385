package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"delivery/internal/domain"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

// DriverRegistry combines the Redis geo index with the driver table, which
// is the source of truth for availability.
type DriverRegistry struct {
	locationStore redis.LocationStoreInterface
	driverRepo    repository.DriverRepository
	now           func() time.Time
}

// NewDriverRegistry creates a new DriverRegistry.
func NewDriverRegistry(
	locationStore redis.LocationStoreInterface,
	driverRepo repository.DriverRepository,
) *DriverRegistry {
	return &DriverRegistry{
		locationStore: locationStore,
		driverRepo:    driverRepo,
		now:           time.Now,
	}
}

// NearestQuery contains the parameters for a nearest-driver search.
type NearestQuery struct {
	Point             domain.GeoPoint
	MaxDistanceMeters float64
	Limit             int                 // 0 means 1
	Exclude           map[string]struct{} // Driver IDs to skip
	SearchCount       int                 // Geo hits to fetch before exclusion; 0 means unbounded
}

// FindNearestAvailable returns up to q.Limit available drivers within the
// radius, nearest first. An empty result is not an error.
func (r *DriverRegistry) FindNearestAvailable(ctx context.Context, q NearestQuery) ([]*domain.Driver, error) {
	if err := q.Point.Validate(); err != nil {
		return nil, err
	}
	if q.MaxDistanceMeters <= 0 {
		return nil, ErrInvalidSearchRadius
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 1
	}

	// Excluded drivers would otherwise eat into the bounded window.
	count := 0
	if q.SearchCount > 0 {
		count = max(q.SearchCount, limit) + len(q.Exclude)
	}

	nearby, err := r.locationStore.FindNearby(ctx, q.Point, q.MaxDistanceMeters, count)
	if err != nil {
		return nil, fmt.Errorf("search geo index: %w", err)
	}

	ids := make([]string, 0, len(nearby))
	for _, loc := range nearby {
		if _, skip := q.Exclude[loc.DriverID]; skip {
			continue
		}
		ids = append(ids, loc.DriverID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	available, err := r.driverRepo.GetAvailableByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("filter available drivers: %w", err)
	}
	byID := make(map[string]*domain.Driver, len(available))
	for _, d := range available {
		byID[d.ID] = d
	}

	// Keep geo order; the SQL filter returns rows unordered.
	drivers := make([]*domain.Driver, 0, limit)
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			continue
		}
		drivers = append(drivers, d)
		if len(drivers) == limit {
			break
		}
	}

	return drivers, nil
}

// Reserve atomically marks the driver unavailable. Returns
// repository.ErrAlreadyReserved if another assignment got there first.
func (r *DriverRegistry) Reserve(ctx context.Context, driverID string) error {
	if strings.TrimSpace(driverID) == "" {
		return ErrInvalidDriverID
	}
	return r.driverRepo.Reserve(ctx, driverID)
}

// Release marks the driver available again. Safe to call repeatedly.
func (r *DriverRegistry) Release(ctx context.Context, driverID string) error {
	if strings.TrimSpace(driverID) == "" {
		return ErrInvalidDriverID
	}
	return r.driverRepo.Release(ctx, driverID)
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	UserID   string
	Name     string
	Contact  string
	Location domain.GeoPoint
}

// Register indexes the new driver's location, then persists the driver.
// The index entry is removed again if the row cannot be written, so a
// failed registration leaves nothing behind.
func (r *DriverRegistry) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	driver, err := domain.NewDriver(req.UserID, req.Name, req.Contact, req.Location, r.now())
	if err != nil {
		return nil, err
	}
	driver.ID = uuid.NewString()

	if err := r.locationStore.UpdateLocation(ctx, driver.ID, driver.Location); err != nil {
		return nil, fmt.Errorf("index driver location: %w", err)
	}

	if err := r.driverRepo.Create(ctx, driver); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if rmErr := r.locationStore.RemoveLocation(cleanupCtx, driver.ID); rmErr != nil {
			return nil, errors.Join(err, fmt.Errorf("unindex driver location: %w", rmErr))
		}
		return nil, err
	}

	return driver, nil
}

// UpdateLocation records a location ping in PostgreSQL and the geo index.
func (r *DriverRegistry) UpdateLocation(ctx context.Context, driverID string, location domain.GeoPoint) error {
	if strings.TrimSpace(driverID) == "" {
		return ErrInvalidDriverID
	}
	if err := location.Validate(); err != nil {
		return err
	}

	// The row check comes first so unknown drivers never reach the index.
	if err := r.driverRepo.UpdateLocation(ctx, driverID, location); err != nil {
		return err
	}

	return r.locationStore.UpdateLocation(ctx, driverID, location)
}

// Get returns a driver by ID.
func (r *DriverRegistry) Get(ctx context.Context, driverID string) (*domain.Driver, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, ErrInvalidDriverID
	}
	return r.driverRepo.GetByID(ctx, driverID)
}

// Authorize checks that requester may act for driverID. Administrators
// always may; anyone else only for the driver they are.
func (r *DriverRegistry) Authorize(ctx context.Context, requester domain.Identity, driverID string) error {
	if requester.IsAdmin() {
		return nil
	}
	if requester.ID == "" {
		return ErrForbidden
	}
	if requester.ID == driverID {
		return nil
	}

	driver, err := r.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !driver.OwnedBy(requester) {
		return ErrForbidden
	}

	return nil
}
