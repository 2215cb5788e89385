package service

import (
	"errors"

	"delivery/internal/domain"
)

var (
	// ErrInvalidOrderID is returned when order ID is empty.
	ErrInvalidOrderID = domain.ErrInvalidOrderID

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = domain.ErrInvalidDriverID

	// ErrInvalidRestaurantID is returned when restaurant ID is empty.
	ErrInvalidRestaurantID = errors.New("invalid restaurant id")

	// ErrInvalidLocation is returned when a GeoJSON point is malformed or out of range.
	ErrInvalidLocation = domain.ErrInvalidGeoPoint

	// ErrInvalidStatus is returned when a status is not one of the lifecycle values.
	ErrInvalidStatus = domain.ErrInvalidDeliveryStatus

	// ErrInvalidSearchRadius is returned when a driver search has no positive radius.
	ErrInvalidSearchRadius = errors.New("search radius must be positive")

	// ErrNoDriversAvailable is returned when no driver could be reserved near the pickup.
	ErrNoDriversAvailable = errors.New("no drivers available")

	// ErrForbidden is returned when the requester may not act on a delivery or driver.
	ErrForbidden = errors.New("forbidden")

	// ErrAssignmentInProgress is returned when another request is assigning the same order.
	ErrAssignmentInProgress = errors.New("assignment already in progress for this order")
)
