package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"delivery/internal/config"
	"delivery/internal/domain"
	"delivery/internal/events"
	"delivery/internal/metrics"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

const (
	defaultSearchRadiusMeters = 10000.0
	defaultReserveAttempts    = 3
	defaultGeoSearchCount     = 50
	defaultAssignLockTTL      = 30 * time.Second

	// Bound for work that must finish after the request context is gone:
	// releasing a driver, dropping the order lock, publishing an event.
	cleanupTimeout = 5 * time.Second
)

// RestaurantLocator resolves a restaurant's pickup location.
type RestaurantLocator interface {
	GetLocation(ctx context.Context, restaurantID string) (*domain.RestaurantLocation, error)
}

// AssignmentDeps holds the collaborators of an AssignmentService.
// LockStore, Notifier, Publisher and Metrics may be nil.
type AssignmentDeps struct {
	Registry     *DriverRegistry
	DeliveryRepo repository.DeliveryRepository
	LockStore    redis.LockStoreInterface
	Restaurants  RestaurantLocator
	Notifier     *NotificationService
	Publisher    events.Publisher
	Metrics      *metrics.Metrics
	Log          logrus.FieldLogger
	Config       config.DeliveryConfig
}

// AssignmentService assigns drivers to orders and moves deliveries through
// their lifecycle.
type AssignmentService struct {
	registry     *DriverRegistry
	deliveryRepo repository.DeliveryRepository
	lockStore    redis.LockStoreInterface
	restaurants  RestaurantLocator
	notifier     *NotificationService
	publisher    events.Publisher
	metrics      *metrics.Metrics
	log          logrus.FieldLogger
	cfg          config.DeliveryConfig
	now          func() time.Time
}

// NewAssignmentService creates a new AssignmentService. Zero policy values
// fall back to the defaults.
func NewAssignmentService(deps AssignmentDeps) *AssignmentService {
	cfg := deps.Config
	if cfg.SearchRadiusMeters <= 0 {
		cfg.SearchRadiusMeters = defaultSearchRadiusMeters
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 1
	}
	if cfg.MaxReserveAttempts <= 0 {
		cfg.MaxReserveAttempts = defaultReserveAttempts
	}
	if cfg.GeoSearchCount <= 0 {
		cfg.GeoSearchCount = defaultGeoSearchCount
	}
	if cfg.AssignLockTTL <= 0 {
		cfg.AssignLockTTL = defaultAssignLockTTL
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &AssignmentService{
		registry:     deps.Registry,
		deliveryRepo: deps.DeliveryRepo,
		lockStore:    deps.LockStore,
		restaurants:  deps.Restaurants,
		notifier:     deps.Notifier,
		publisher:    publisher,
		metrics:      deps.Metrics,
		log:          log,
		cfg:          cfg,
		now:          time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (s *AssignmentService) SetClock(now func() time.Time) {
	s.now = now
}

// AssignRequest contains the parameters for assigning an order.
type AssignRequest struct {
	OrderID          string
	RestaurantID     string
	DeliveryLocation domain.GeoPoint
}

// AssignDelivery reserves the nearest available driver to the restaurant and
// records the delivery. If the record cannot be written the driver is
// released before returning.
func (s *AssignmentService) AssignDelivery(ctx context.Context, req AssignRequest) (delivery *domain.Delivery, err error) {
	defer func() { s.metrics.Assignment(assignmentResult(err)) }()

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	restaurantID := strings.TrimSpace(req.RestaurantID)
	if restaurantID == "" {
		return nil, ErrInvalidRestaurantID
	}
	dropoff := req.DeliveryLocation
	if err := dropoff.Validate(); err != nil {
		return nil, fmt.Errorf("delivery location: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{
		"order_id":      orderID,
		"restaurant_id": restaurantID,
	})

	if s.lockStore != nil {
		token, locked, err := s.lockStore.AcquireOrderLock(ctx, orderID, s.cfg.AssignLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire order lock: %w", err)
		}
		if !locked {
			return nil, ErrAssignmentInProgress
		}
		defer s.releaseOrderLock(ctx, orderID, token, log)
	}

	existing, err := s.deliveryRepo.GetByOrderID(ctx, orderID)
	switch {
	case err == nil && existing.IsActive():
		return nil, repository.ErrDuplicateActiveDelivery
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load delivery: %w", err)
	}

	restaurant, err := s.restaurants.GetLocation(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	driver, err := s.reserveNearest(ctx, restaurant.Location, log)
	if err != nil {
		return nil, err
	}
	log = log.WithField("driver_id", driver.ID)

	delivery, err = domain.NewDelivery(orderID, driver.ID, restaurant.Location, dropoff, s.now())
	if err == nil {
		delivery.ID = uuid.NewString()
		err = s.deliveryRepo.Create(ctx, delivery)
	}
	if err != nil {
		s.compensate(ctx, driver.ID, log)
		return nil, fmt.Errorf("create delivery: %w", err)
	}

	log.WithField("delivery_id", delivery.ID).Info("delivery assigned")

	s.notifier.NotifyDriverAssigned(driver, delivery, restaurant.Street)
	s.publish(ctx, events.DeliveryAssigned(delivery), log)

	return delivery, nil
}

// reserveNearest searches around pickup and reserves the first candidate
// that is still free. Candidates lost to a concurrent assignment are
// excluded from the next search.
func (s *AssignmentService) reserveNearest(ctx context.Context, pickup domain.GeoPoint, log logrus.FieldLogger) (*domain.Driver, error) {
	exclude := make(map[string]struct{})

	for attempt := 1; attempt <= s.cfg.MaxReserveAttempts; attempt++ {
		candidates, err := s.registry.FindNearestAvailable(ctx, NearestQuery{
			Point:             pickup,
			MaxDistanceMeters: s.cfg.SearchRadiusMeters,
			Limit:             s.cfg.CandidateLimit,
			Exclude:           exclude,
			SearchCount:       s.cfg.GeoSearchCount,
		})
		if err != nil {
			return nil, fmt.Errorf("find drivers: %w", err)
		}
		if len(candidates) == 0 {
			return nil, ErrNoDriversAvailable
		}

		for _, candidate := range candidates {
			err := s.registry.Reserve(ctx, candidate.ID)
			if err == nil {
				return candidate, nil
			}
			if !errors.Is(err, repository.ErrAlreadyReserved) && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("reserve driver: %w", err)
			}

			s.metrics.ReservationConflict()
			log.WithFields(logrus.Fields{
				"driver_id": candidate.ID,
				"attempt":   attempt,
			}).Debug("driver reserved elsewhere, trying next")
			exclude[candidate.ID] = struct{}{}
		}
	}

	return nil, ErrNoDriversAvailable
}

func (s *AssignmentService) compensate(ctx context.Context, driverID string, log logrus.FieldLogger) {
	s.metrics.Compensation()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.registry.Release(ctx, driverID); err != nil {
		log.WithError(err).Error("failed to release driver after delivery create failed")
	}
}

func (s *AssignmentService) releaseOrderLock(ctx context.Context, orderID, token string, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.lockStore.ReleaseOrderLock(ctx, orderID, token); err != nil {
		log.WithError(err).Warn("failed to release order lock")
	}
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.EventPublishFailure()
		log.WithError(err).WithField("event_type", event.Type).Warn("failed to publish delivery event")
	}
}

func assignmentResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultAssigned
	case errors.Is(err, ErrNoDriversAvailable):
		return metrics.ResultNoDrivers
	case errors.Is(err, ErrInvalidOrderID),
		errors.Is(err, ErrInvalidRestaurantID),
		errors.Is(err, ErrInvalidLocation):
		return metrics.ResultInvalid
	case errors.Is(err, repository.ErrDuplicateActiveDelivery),
		errors.Is(err, ErrAssignmentInProgress):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}

// UpdateStatusRequest contains the parameters for a status change.
type UpdateStatusRequest struct {
	OrderID   string
	Status    string
	Requester domain.Identity
}

// UpdateDeliveryStatus advances the order's delivery by one step. Only an
// administrator or the bound driver may do so. Reaching Delivered frees the
// driver.
func (s *AssignmentService) UpdateDeliveryStatus(ctx context.Context, req UpdateStatusRequest) (*domain.Delivery, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	status, err := domain.ParseDeliveryStatus(req.Status)
	if err != nil {
		return nil, err
	}

	current, err := s.deliveryRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.registry.Authorize(ctx, req.Requester, current.DriverID); err != nil {
		return nil, err
	}

	updated, err := s.deliveryRepo.UpdateStatus(ctx, orderID, status, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.StatusUpdate(string(updated.Status))

	log := s.log.WithFields(logrus.Fields{
		"order_id":  orderID,
		"driver_id": updated.DriverID,
		"status":    updated.Status,
	})
	log.Info("delivery status updated")

	if updated.Status == domain.DeliveryStatusDelivered {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		if err := s.registry.Release(releaseCtx, updated.DriverID); err != nil {
			log.WithError(err).Error("failed to release driver after delivery")
		}
		cancel()
	}

	s.notifier.NotifyStatusChanged(updated)
	s.publish(ctx, events.DeliveryStatusChanged(updated), log)

	return updated, nil
}

// GetDeliveryStatus returns the order's delivery with the driver's name and
// contact. A driver that no longer exists leaves those fields empty.
func (s *AssignmentService) GetDeliveryStatus(ctx context.Context, orderID string) (*domain.DeliveryDetails, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	delivery, err := s.deliveryRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	details := &domain.DeliveryDetails{Delivery: delivery}

	driver, err := s.registry.Get(ctx, delivery.DriverID)
	switch {
	case err == nil:
		details.DriverName = driver.Name
		details.DriverContact = driver.Contact
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	return details, nil
}

// ListDriverOrders returns the driver's active deliveries, newest first.
func (s *AssignmentService) ListDriverOrders(ctx context.Context, driverID string, requester domain.Identity) ([]*domain.Delivery, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if err := s.registry.Authorize(ctx, requester, driverID); err != nil {
		return nil, err
	}

	deliveries, err := s.deliveryRepo.ListActiveByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []*domain.Delivery{}
	}

	return deliveries, nil
}
