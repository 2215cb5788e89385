package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"delivery/internal/domain"
)

// Type identifies a delivery event.
type Type string

const (
	TypeDeliveryAssigned      Type = "delivery.assigned"
	TypeDeliveryStatusChanged Type = "delivery.status_changed"
)

// Event is the payload published on the delivery event stream.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	DeliveryID string    `json:"deliveryId"`
	OrderID    string    `json:"orderId"`
	DriverID   string    `json:"driverId"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher publishes delivery events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// DeliveryAssigned builds the event for a newly created delivery.
func DeliveryAssigned(d *domain.Delivery) Event {
	return newEvent(TypeDeliveryAssigned, d, d.AssignedAt)
}

// DeliveryStatusChanged builds the event for a committed status transition.
func DeliveryStatusChanged(d *domain.Delivery) Event {
	return newEvent(TypeDeliveryStatusChanged, d, d.UpdatedAt)
}

func newEvent(t Type, d *domain.Delivery, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		DeliveryID: d.ID,
		OrderID:    d.OrderID,
		DriverID:   d.DriverID,
		Status:     string(d.Status),
		OccurredAt: at,
	}
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
