package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DeliveryStatus represents the lifecycle stage of a delivery.
type DeliveryStatus string

// Statuses in lifecycle order. The values are the wire format.
const (
	DeliveryStatusAssigned  DeliveryStatus = "Assigned"
	DeliveryStatusPickedUp  DeliveryStatus = "Picked Up"
	DeliveryStatusOnTheWay  DeliveryStatus = "On the Way"
	DeliveryStatusDelivered DeliveryStatus = "Delivered"
)

var deliveryLifecycle = [...]DeliveryStatus{
	DeliveryStatusAssigned,
	DeliveryStatusPickedUp,
	DeliveryStatusOnTheWay,
	DeliveryStatusDelivered,
}

var (
	// ErrInvalidDeliveryStatus is returned for a status outside the lifecycle.
	ErrInvalidDeliveryStatus = errors.New("invalid delivery status")

	// ErrInvalidTransition is returned when a status change is not the
	// immediate successor of the current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidOrderID is returned when an order id is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidDriverID is returned when a driver id is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")
)

// ParseDeliveryStatus accepts the wire values and their compact spellings
// ("PickedUp", "on_the_way").
func ParseDeliveryStatus(raw string) (DeliveryStatus, error) {
	key := normalizeStatus(raw)
	for _, s := range deliveryLifecycle {
		if normalizeStatus(string(s)) == key {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDeliveryStatus, raw)
}

func normalizeStatus(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// Valid checks if the status is part of the lifecycle.
func (s DeliveryStatus) Valid() bool {
	return s.index() >= 0
}

// IsTerminal reports whether no further transition is allowed.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusDelivered
}

// Next returns the immediate successor. ok is false for Delivered and for
// unknown statuses.
func (s DeliveryStatus) Next() (DeliveryStatus, bool) {
	i := s.index()
	if i < 0 || i == len(deliveryLifecycle)-1 {
		return "", false
	}
	return deliveryLifecycle[i+1], true
}

// CanTransitionTo reports whether next immediately follows s.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	want, ok := s.Next()
	return ok && want == next
}

func (s DeliveryStatus) index() int {
	for i, v := range deliveryLifecycle {
		if v == s {
			return i
		}
	}
	return -1
}

// Delivery binds an order to the driver carrying it.
type Delivery struct {
	ID               string
	OrderID          string
	DriverID         string
	Status           DeliveryStatus
	PickupLocation   GeoPoint
	DeliveryLocation GeoPoint
	AssignedAt       time.Time
	UpdatedAt        time.Time
}

// NewDelivery validates its inputs and returns a delivery in the Assigned
// state without an ID.
func NewDelivery(orderID, driverID string, pickup, dropoff GeoPoint, now time.Time) (*Delivery, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if strings.TrimSpace(driverID) == "" {
		return nil, ErrInvalidDriverID
	}
	if err := pickup.Validate(); err != nil {
		return nil, fmt.Errorf("pickup location: %w", err)
	}
	if err := dropoff.Validate(); err != nil {
		return nil, fmt.Errorf("delivery location: %w", err)
	}
	return &Delivery{
		OrderID:          orderID,
		DriverID:         driverID,
		Status:           DeliveryStatusAssigned,
		PickupLocation:   pickup,
		DeliveryLocation: dropoff,
		AssignedAt:       now,
		UpdatedAt:        now,
	}, nil
}

// IsActive reports whether the delivery still holds its driver.
func (d *Delivery) IsActive() bool {
	return !d.Status.IsTerminal()
}

// Advance moves the delivery to next if the transition is legal.
func (d *Delivery) Advance(next DeliveryStatus, now time.Time) error {
	if !d.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, next)
	}
	d.Status = next
	if now.Before(d.AssignedAt) {
		now = d.AssignedAt
	}
	d.UpdatedAt = now
	return nil
}

// DeliveryDetails is a delivery with the bound driver's public fields.
type DeliveryDetails struct {
	Delivery      *Delivery
	DriverName    string
	DriverContact string
}
