package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidDriverName is returned when a driver has no name.
	ErrInvalidDriverName = errors.New("driver name is required")

	// ErrInvalidDriverContact is returned when a driver has no contact.
	ErrInvalidDriverContact = errors.New("driver contact is required")
)

// Driver represents a courier that can be assigned to deliveries.
type Driver struct {
	ID          string
	UserID      string
	Name        string
	Contact     string // Phone number or address used for SMS dispatch.
	Location    GeoPoint
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDriver validates the registration fields and returns an available
// driver without an ID.
func NewDriver(userID, name, contact string, location GeoPoint, now time.Time) (*Driver, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if name == "" {
		return nil, ErrInvalidDriverName
	}
	if contact == "" {
		return nil, ErrInvalidDriverContact
	}
	if err := location.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		UserID:      strings.TrimSpace(userID),
		Name:        name,
		Contact:     contact,
		Location:    location,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// OwnedBy reports whether the identity is this driver, either by driver id
// or by the owning account id.
func (d *Driver) OwnedBy(identity Identity) bool {
	if identity.ID == "" {
		return false
	}
	return identity.ID == d.ID || (d.UserID != "" && identity.ID == d.UserID)
}
