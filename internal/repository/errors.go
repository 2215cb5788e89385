package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyReserved is returned when a driver reservation loses to a
	// concurrent reservation.
	ErrAlreadyReserved = errors.New("driver already reserved")

	// ErrDuplicateActiveDelivery is returned when an order already has a
	// delivery that is not Delivered.
	ErrDuplicateActiveDelivery = errors.New("order already has an active delivery")
)
