package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"delivery/internal/domain"
)

const driverLocationKey = "drivers:locations"

// DriverLocation is a geo index hit.
type DriverLocation struct {
	DriverID       string
	Location       domain.GeoPoint
	DistanceMeters float64
}

// LocationStore is the driver geo index backed by a Redis GEO set.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, location domain.GeoPoint) error {
	return s.client.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: location.Lng(),
		Latitude:  location.Lat(),
	}).Err()
}

// FindNearby returns up to count drivers within radiusMeters of center,
// nearest first. A count of zero means no limit. Equal distances keep
// Redis' natural order.
func (s *LocationStore) FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, count int) ([]DriverLocation, error) {
	results, err := s.client.GeoSearchLocation(ctx, driverLocationKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng(),
			Latitude:   center.Lat(),
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      count,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]DriverLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, DriverLocation{
			DriverID:       r.Name,
			Location:       domain.GeoPoint{Type: domain.GeoPointType, Coordinates: []float64{r.Longitude, r.Latitude}},
			DistanceMeters: r.Dist,
		})
	}

	return locations, nil
}

// RemoveLocation removes a driver's location from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	return s.client.ZRem(ctx, driverLocationKey, driverID).Err()
}
