package tests

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"delivery/internal/domain"
	"delivery/internal/events"
	"delivery/internal/gateway"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
// Reserve is a compare-and-set under the mutex, like the conditional UPDATE.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount  int32
	ReserveCallCount int32
	ReleaseCallCount int32

	// Error injection
	CreateError            error
	GetAvailableByIDsError error
	ReserveError           error
	ReleaseError           error

	// BeforeReserve runs before the compare-and-set. Tests use it to let a
	// competing assignment win the driver.
	BeforeReserve func(id string)
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetAvailableByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error) {
	if m.GetAvailableByIDsError != nil {
		return nil, m.GetAvailableByIDsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Walk ids backwards so callers cannot rely on input order.
	result := make([]*domain.Driver, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if d, ok := m.drivers[ids[i]]; ok && d.IsAvailable {
			copy := *d
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockDriverRepository) UpdateLocation(ctx context.Context, id string, location domain.GeoPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Location = location
	return nil
}

func (m *MockDriverRepository) Reserve(ctx context.Context, id string) error {
	atomic.AddInt32(&m.ReserveCallCount, 1)
	if m.BeforeReserve != nil {
		m.BeforeReserve(id)
	}
	if m.ReserveError != nil {
		return m.ReserveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !driver.IsAvailable {
		return repository.ErrAlreadyReserved
	}
	driver.IsAvailable = false
	return nil
}

func (m *MockDriverRepository) Release(ctx context.Context, id string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if m.ReleaseError != nil {
		return m.ReleaseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.IsAvailable = true
	return nil
}

// SetAvailable flips availability directly (for test setup).
func (m *MockDriverRepository) SetAvailable(id string, available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.drivers[id]; ok {
		d.IsAvailable = available
	}
}

// IsAvailable returns driver availability for test assertions.
func (m *MockDriverRepository) IsAvailable(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	return ok && d.IsAvailable
}

// GetDriver returns driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK DELIVERY REPOSITORY
// ──────────────────────────────────────────────

// MockDeliveryRepository is a mock implementation of DeliveryRepository.
// It enforces one active delivery per order and conditional status writes.
type MockDeliveryRepository struct {
	mu         sync.RWMutex
	deliveries []*domain.Delivery

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError       error
	GetError          error
	UpdateStatusError error
}

// NewMockDeliveryRepository creates a new mock delivery repository.
func NewMockDeliveryRepository() *MockDeliveryRepository {
	return &MockDeliveryRepository{}
}

// AddDelivery adds a delivery without constraint checks (for test setup).
func (m *MockDeliveryRepository) AddDelivery(delivery *domain.Delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *delivery
	m.deliveries = append(m.deliveries, &copy)
}

func (m *MockDeliveryRepository) Create(ctx context.Context, delivery *domain.Delivery) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deliveries {
		if d.OrderID == delivery.OrderID && d.IsActive() {
			return repository.ErrDuplicateActiveDelivery
		}
	}
	copy := *delivery
	m.deliveries = append(m.deliveries, &copy)
	return nil
}

func (m *MockDeliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	latest := m.latestLocked(orderID)
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	copy := *latest
	return &copy, nil
}

func (m *MockDeliveryRepository) UpdateStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, now time.Time) (*domain.Delivery, error) {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return nil, m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := m.latestLocked(orderID)
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	if err := latest.Advance(status, now); err != nil {
		return nil, err
	}
	copy := *latest
	return &copy, nil
}

func (m *MockDeliveryRepository) ListActiveByDriverID(ctx context.Context, driverID string) ([]*domain.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Delivery
	for _, d := range m.deliveries {
		if d.DriverID == driverID && d.IsActive() {
			copy := *d
			result = append(result, &copy)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AssignedAt.After(result[j].AssignedAt)
	})
	return result, nil
}

func (m *MockDeliveryRepository) latestLocked(orderID string) *domain.Delivery {
	var latest *domain.Delivery
	for _, d := range m.deliveries {
		if d.OrderID != orderID {
			continue
		}
		if latest == nil || !d.AssignedAt.Before(latest.AssignedAt) {
			latest = d
		}
	}
	return latest
}

// CountActive returns the number of active deliveries for an order.
func (m *MockDeliveryRepository) CountActive(orderID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, d := range m.deliveries {
		if d.OrderID == orderID && d.IsActive() {
			count++
		}
	}
	return count
}

// CountDeliveries returns the number of stored deliveries.
func (m *MockDeliveryRepository) CountDeliveries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.deliveries)
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore. FindNearby
// filters by great-circle distance, sorts nearest first keeping insertion
// order for ties, and truncates to count like GEOSEARCH COUNT.
type MockLocationStore struct {
	mu               sync.RWMutex
	locations        []redis.DriverLocation
	findNearbyCounts []int

	// Counters
	UpdateLocationCallCount int32
	RemoveLocationCallCount int32

	// Error injection
	UpdateLocationError error
	FindNearbyError     error
	RemoveLocationError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.DriverLocation, 0),
	}
}

// AddDriverLocation indexes a driver without touching counters (for test setup).
func (m *MockLocationStore) AddDriverLocation(driverID string, location domain.GeoPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, redis.DriverLocation{DriverID: driverID, Location: location})
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, location domain.GeoPoint) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Update existing or add new.
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations[i].Location = location
			return nil
		}
	}
	m.locations = append(m.locations, redis.DriverLocation{
		DriverID: driverID,
		Location: location,
	})
	return nil
}

func (m *MockLocationStore) FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, count int) ([]redis.DriverLocation, error) {
	if m.FindNearbyError != nil {
		return nil, m.FindNearbyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findNearbyCounts = append(m.findNearbyCounts, count)
	result := make([]redis.DriverLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		dist := HaversineMeters(center, loc.Location)
		if dist <= radiusMeters {
			loc.DistanceMeters = dist
			result = append(result, loc)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DistanceMeters < result[j].DistanceMeters
	})
	if count > 0 && len(result) > count {
		result = result[:count]
	}
	return result, nil
}

// FindNearbyCounts returns the count argument of every FindNearby call.
func (m *MockLocationStore) FindNearbyCounts() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.findNearbyCounts...)
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.RemoveLocationCallCount, 1)
	if m.RemoveLocationError != nil {
		return m.RemoveLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// HasLocation checks if a driver location exists.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.DriverID == driverID {
			return true
		}
	}
	return false
}

// HaversineMeters is the great-circle distance between two points on a
// sphere of Redis' earth radius.
func HaversineMeters(a, b domain.GeoPoint) float64 {
	const earthRadiusMeters = 6372797.560856
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	lat1, lat2 := toRad(a.Lat()), toRad(b.Lat())
	dLat := lat2 - lat1
	dLng := toRad(b.Lng() - a.Lng())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore. Each acquisition
// gets its own token and release only deletes a lock its token still holds.
type MockLockStore struct {
	mu     sync.Mutex
	locks  map[string]mockLock
	tokens int

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

type mockLock struct {
	token  string
	expiry time.Time
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]mockLock),
	}
}

func (m *MockLockStore) AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:order-assign:" + orderID
	if lock, exists := m.locks[key]; exists && time.Now().Before(lock.expiry) {
		return "", false, nil // Lock still held.
	}

	token := m.nextTokenLocked()
	m.locks[key] = mockLock{token: token, expiry: time.Now().Add(ttl)}
	return token, true, nil
}

func (m *MockLockStore) ReleaseOrderLock(ctx context.Context, orderID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "lock:order-assign:" + orderID
	if lock, exists := m.locks[key]; exists && lock.token == token {
		delete(m.locks, key)
	}
	return nil
}

// HoldOrderLock takes the lock as if another request were assigning. Any
// current holder loses it, as if its TTL had run out first.
func (m *MockLockStore) HoldOrderLock(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks["lock:order-assign:"+orderID] = mockLock{
		token:  m.nextTokenLocked(),
		expiry: time.Now().Add(time.Hour),
	}
}

// IsLocked checks if an order is locked (for test assertions).
func (m *MockLockStore) IsLocked(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, exists := m.locks["lock:order-assign:"+orderID]
	return exists && time.Now().Before(lock.expiry)
}

func (m *MockLockStore) nextTokenLocked() string {
	m.tokens++
	return "token-" + strconv.Itoa(m.tokens)
}

// ──────────────────────────────────────────────
// MOCK RESTAURANT LOCATOR
// ──────────────────────────────────────────────

// MockRestaurantLocator is a mock implementation of RestaurantLocator.
type MockRestaurantLocator struct {
	mu          sync.RWMutex
	restaurants map[string]*domain.RestaurantLocation

	// Counters
	GetLocationCallCount int32

	// Error injection
	GetLocationError error
}

// NewMockRestaurantLocator creates a new mock restaurant locator.
func NewMockRestaurantLocator() *MockRestaurantLocator {
	return &MockRestaurantLocator{
		restaurants: make(map[string]*domain.RestaurantLocation),
	}
}

// AddRestaurant registers a restaurant location.
func (m *MockRestaurantLocator) AddRestaurant(id string, location domain.GeoPoint, street string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restaurants[id] = &domain.RestaurantLocation{RestaurantID: id, Location: location, Street: street}
}

func (m *MockRestaurantLocator) GetLocation(ctx context.Context, restaurantID string) (*domain.RestaurantLocation, error) {
	atomic.AddInt32(&m.GetLocationCallCount, 1)
	if m.GetLocationError != nil {
		return nil, m.GetLocationError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.restaurants[restaurantID]
	if !ok {
		return nil, gateway.ErrRestaurantNotFound
	}
	copy := *r
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION SENDER
// ──────────────────────────────────────────────

// SentMessage is a message captured by MockSender.
type SentMessage struct {
	Channel   string
	Recipient string
	Subject   string
	Message   string
}

// MockSender is a mock notification Sender.
type MockSender struct {
	mu   sync.Mutex
	sent []SentMessage

	// Error injection
	SMSError   error
	EmailError error

	// Block, when set, holds every send until it is closed or the send's
	// context expires.
	Block chan struct{}
}

// NewMockSender creates a new mock sender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) SendSMS(ctx context.Context, recipient, message string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.SMSError != nil {
		return m.SMSError
	}
	m.record(SentMessage{Channel: "sms", Recipient: recipient, Message: message})
	return nil
}

func (m *MockSender) SendEmail(ctx context.Context, recipient, subject, message string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.EmailError != nil {
		return m.EmailError
	}
	m.record(SentMessage{Channel: "email", Recipient: recipient, Subject: subject, Message: message})
	return nil
}

func (m *MockSender) wait(ctx context.Context) error {
	if m.Block == nil {
		return nil
	}
	select {
	case <-m.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockSender) record(msg SentMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

// Sent returns the captured messages.
func (m *MockSender) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher is a mock events.Publisher.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Events returns the published events.
func (m *MockPublisher) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Event, len(m.events))
	copy(out, m.events)
	return out
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint  = errors.New("mock: unique constraint violation")
	ErrMockDBUnavailable = errors.New("mock: database unavailable")
)
