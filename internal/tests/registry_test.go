package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery/internal/domain"
	"delivery/internal/repository"
	"delivery/internal/service"
)

func nearestIDs(drivers []*domain.Driver) []string {
	ids := make([]string, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}
	return ids
}

func TestFindNearestAvailable_OrdersByDistanceAndFilters(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()
	env.AddDriver("mid", -73.992, 40.732)
	env.AddDriver("near", -73.9901, 40.7301)
	env.AddDriver("far", -73.999, 40.739)
	env.AddDriver("busy", -73.99005, 40.73005)
	env.AddDriver("outside", -73.5, 40.73)
	env.Drivers.SetAvailable("busy", false)

	drivers, err := env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point:             domain.MustGeoPoint(-73.99, 40.73),
		MaxDistanceMeters: 10000,
		Limit:             10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid", "far"}, nearestIDs(drivers))

	drivers, err = env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point:             domain.MustGeoPoint(-73.99, 40.73),
		MaxDistanceMeters: 10000,
		Limit:             2,
		Exclude:           map[string]struct{}{"near": {}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "far"}, nearestIDs(drivers))
}

func TestFindNearestAvailable_DefaultsAndErrors(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()
	env.AddDriver("a", 0, 0)
	env.AddDriver("b", 0.001, 0)

	drivers, err := env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.MustGeoPoint(0, 0), MaxDistanceMeters: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, nearestIDs(drivers), "limit defaults to one")

	drivers, err = env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.MustGeoPoint(120, 10), MaxDistanceMeters: 1000,
	})
	require.NoError(t, err)
	assert.Empty(t, drivers)

	_, err = env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.MustGeoPoint(0, 0),
	})
	assert.ErrorIs(t, err, service.ErrInvalidSearchRadius)

	_, err = env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.GeoPoint{Type: "Polygon", Coordinates: []float64{0, 0}}, MaxDistanceMeters: 1000,
	})
	assert.ErrorIs(t, err, service.ErrInvalidLocation)

	env.Locations.FindNearbyError = ErrMockDBUnavailable
	_, err = env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.MustGeoPoint(0, 0), MaxDistanceMeters: 1000,
	})
	assert.ErrorIs(t, err, ErrMockDBUnavailable)
}

func TestFindNearestAvailable_BoundedSearchGrowsWithExclusions(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()
	env.AddDriver("a", 0, 0)
	env.AddDriver("b", 0.001, 0)
	env.AddDriver("c", 0.002, 0)

	drivers, err := env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.MustGeoPoint(0, 0), MaxDistanceMeters: 1000, Limit: 1, SearchCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, nearestIDs(drivers))

	// Two excluded drivers widen the window so "c" is still reachable.
	drivers, err = env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.MustGeoPoint(0, 0), MaxDistanceMeters: 1000, Limit: 1, SearchCount: 1,
		Exclude: map[string]struct{}{"a": {}, "b": {}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, nearestIDs(drivers))

	// The window never drops below the requested limit.
	drivers, err = env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.MustGeoPoint(0, 0), MaxDistanceMeters: 1000, Limit: 3, SearchCount: 1,
	})
	require.NoError(t, err)
	assert.Len(t, drivers, 3)

	assert.Equal(t, []int{1, 3, 3}, env.Locations.FindNearbyCounts())
}

func TestReserveAndRelease(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()
	env.AddDriver("d1", 0, 0)

	require.NoError(t, env.Registry.Reserve(ctx, "d1"))
	assert.False(t, env.Drivers.IsAvailable("d1"))

	assert.ErrorIs(t, env.Registry.Reserve(ctx, "d1"), repository.ErrAlreadyReserved)
	assert.ErrorIs(t, env.Registry.Reserve(ctx, "ghost"), repository.ErrNotFound)
	assert.ErrorIs(t, env.Registry.Reserve(ctx, ""), service.ErrInvalidDriverID)

	// Release is idempotent.
	require.NoError(t, env.Registry.Release(ctx, "d1"))
	assert.True(t, env.Drivers.IsAvailable("d1"))
	require.NoError(t, env.Registry.Release(ctx, "d1"))
	assert.True(t, env.Drivers.IsAvailable("d1"))
}

func TestRegisterDriver(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()

	driver, err := env.Registry.Register(ctx, service.RegisterDriverRequest{
		UserID:   "user-7",
		Name:     "Nimal",
		Contact:  "+94771234567",
		Location: domain.MustGeoPoint(79.86, 6.92),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, driver.ID)
	assert.True(t, driver.IsAvailable)
	assert.True(t, env.Locations.HasLocation(driver.ID))

	stored, err := env.Registry.Get(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nimal", stored.Name)

	_, err = env.Registry.Register(ctx, service.RegisterDriverRequest{
		Name: "No Contact", Location: domain.MustGeoPoint(0, 0),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDriverContact)
	assert.EqualValues(t, 1, env.Drivers.CreateCallCount)
}

func TestRegisterDriver_IndexFailureWritesNoRow(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()
	env.Locations.UpdateLocationError = ErrMockDBUnavailable

	_, err := env.Registry.Register(ctx, service.RegisterDriverRequest{
		UserID: "user-7", Name: "Nimal", Contact: "+94771234567", Location: domain.MustGeoPoint(79.86, 6.92),
	})
	assert.ErrorIs(t, err, ErrMockDBUnavailable)
	assert.EqualValues(t, 0, env.Drivers.CreateCallCount)
}

func TestRegisterDriver_RowFailureUnindexes(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()
	env.Drivers.CreateError = ErrMockDBConstraint

	_, err := env.Registry.Register(ctx, service.RegisterDriverRequest{
		UserID: "user-7", Name: "Nimal", Contact: "+94771234567", Location: domain.MustGeoPoint(79.86, 6.92),
	})
	assert.ErrorIs(t, err, ErrMockDBConstraint)
	assert.EqualValues(t, 1, env.Locations.RemoveLocationCallCount)

	drivers, err := env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: domain.MustGeoPoint(79.86, 6.92), MaxDistanceMeters: 1000, Limit: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, drivers)

	hits, err := env.Locations.FindNearby(ctx, domain.MustGeoPoint(79.86, 6.92), 1000, 0)
	require.NoError(t, err)
	assert.Empty(t, hits, "geo index must not keep the failed registration")

	// A failing cleanup is reported alongside the original error.
	env.Locations.RemoveLocationError = ErrMockDBUnavailable
	_, err = env.Registry.Register(ctx, service.RegisterDriverRequest{
		UserID: "user-8", Name: "Kamal", Contact: "+94771234568", Location: domain.MustGeoPoint(79.86, 6.92),
	})
	assert.ErrorIs(t, err, ErrMockDBConstraint)
	assert.ErrorIs(t, err, ErrMockDBUnavailable)
}

func TestUpdateDriverLocation(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()
	env.AddDriver("d1", 0, 0)

	moved := domain.MustGeoPoint(0.05, 0.05)
	require.NoError(t, env.Registry.UpdateLocation(ctx, "d1", moved))
	assert.Equal(t, moved, env.Drivers.GetDriver("d1").Location)

	drivers, err := env.Registry.FindNearestAvailable(ctx, service.NearestQuery{
		Point: moved, MaxDistanceMeters: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, nearestIDs(drivers))

	err = env.Registry.UpdateLocation(ctx, "ghost", moved)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, env.Locations.HasLocation("ghost"))

	err = env.Registry.UpdateLocation(ctx, "d1", domain.GeoPoint{Coordinates: []float64{0, 91}})
	assert.ErrorIs(t, err, service.ErrInvalidLocation)
}

func TestAuthorize(t *testing.T) {
	env := NewEnv(DefaultDeliveryConfig())
	ctx := context.Background()
	env.AddDriver("d1", 0, 0)

	assert.NoError(t, env.Registry.Authorize(ctx, adminIdentity, "anything"))
	assert.NoError(t, env.Registry.Authorize(ctx, domain.Identity{ID: "d1", Role: domain.RoleDelivery}, "d1"))
	assert.NoError(t, env.Registry.Authorize(ctx, domain.Identity{ID: "user-d1", Role: domain.RoleDelivery}, "d1"))
	assert.ErrorIs(t, env.Registry.Authorize(ctx, domain.Identity{ID: "user-d2"}, "d1"), service.ErrForbidden)
	assert.ErrorIs(t, env.Registry.Authorize(ctx, domain.Identity{}, "d1"), service.ErrForbidden)
	assert.ErrorIs(t, env.Registry.Authorize(ctx, domain.Identity{ID: "x"}, "ghost"), service.ErrForbidden)
}
