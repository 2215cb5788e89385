package tests

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"delivery/internal/config"
	"delivery/internal/domain"
	"delivery/internal/logging"
	"delivery/internal/metrics"
	"delivery/internal/service"
)

// Clock is a manual time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Env wires the services over in-memory mocks.
type Env struct {
	Drivers     *MockDriverRepository
	Deliveries  *MockDeliveryRepository
	Locations   *MockLocationStore
	Locks       *MockLockStore
	Restaurants *MockRestaurantLocator
	Sender      *MockSender
	Publisher   *MockPublisher
	Metrics     *metrics.Metrics
	Log         *logrus.Logger
	Clock       *Clock

	Registry   *service.DriverRegistry
	Notifier   *service.NotificationService
	Assignment *service.AssignmentService
}

// DefaultDeliveryConfig mirrors the production defaults.
func DefaultDeliveryConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		SearchRadiusMeters: 10000,
		CandidateLimit:     1,
		MaxReserveAttempts: 3,
		GeoSearchCount:     50,
		AssignLockTTL:      30 * time.Second,
		OperationTimeout:   10 * time.Second,
	}
}

// NewEnv builds an Env with the given assignment policy.
func NewEnv(cfg config.DeliveryConfig) *Env {
	e := &Env{
		Drivers:     NewMockDriverRepository(),
		Deliveries:  NewMockDeliveryRepository(),
		Locations:   NewMockLocationStore(),
		Locks:       NewMockLockStore(),
		Restaurants: NewMockRestaurantLocator(),
		Sender:      NewMockSender(),
		Publisher:   NewMockPublisher(),
		Metrics:     metrics.New(),
		Log:         logging.Discard(),
		Clock:       NewClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}

	e.Registry = service.NewDriverRegistry(e.Locations, e.Drivers)
	e.Notifier = service.NewNotificationService(e.Sender, config.NotificationConfig{
		Timeout:           time.Second,
		CustomerRecipient: "customer@example.com",
	}, e.Log, e.Metrics)
	e.Assignment = service.NewAssignmentService(service.AssignmentDeps{
		Registry:     e.Registry,
		DeliveryRepo: e.Deliveries,
		LockStore:    e.Locks,
		Restaurants:  e.Restaurants,
		Notifier:     e.Notifier,
		Publisher:    e.Publisher,
		Metrics:      e.Metrics,
		Log:          e.Log,
		Config:       cfg,
	})
	e.Assignment.SetClock(e.Clock.Now)

	return e
}

// AddDriver seeds an available driver at (lng, lat) in both stores.
func (e *Env) AddDriver(id string, lng, lat float64) *domain.Driver {
	location := domain.MustGeoPoint(lng, lat)
	driver := &domain.Driver{
		ID:          id,
		UserID:      "user-" + id,
		Name:        "Driver " + id,
		Contact:     "+9477" + id,
		Location:    location,
		IsAvailable: true,
		CreatedAt:   e.Clock.Now(),
		UpdatedAt:   e.Clock.Now(),
	}
	e.Drivers.AddDriver(driver)
	e.Locations.AddDriverLocation(id, location)
	return driver
}

// AddRestaurant seeds a restaurant at (lng, lat).
func (e *Env) AddRestaurant(id string, lng, lat float64, street string) {
	e.Restaurants.AddRestaurant(id, domain.MustGeoPoint(lng, lat), street)
}
