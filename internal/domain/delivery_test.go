package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeliveryStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want DeliveryStatus
	}{
		{"Assigned", DeliveryStatusAssigned},
		{"Picked Up", DeliveryStatusPickedUp},
		{"PickedUp", DeliveryStatusPickedUp},
		{"on_the_way", DeliveryStatusOnTheWay},
		{"On the Way", DeliveryStatusOnTheWay},
		{"DELIVERED", DeliveryStatusDelivered},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDeliveryStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, raw := range []string{"", "Cancelled", "Picked"} {
		_, err := ParseDeliveryStatus(raw)
		assert.ErrorIs(t, err, ErrInvalidDeliveryStatus, raw)
	}
}

func TestDeliveryStatus_TransitionsAreForwardOnly(t *testing.T) {
	assert.True(t, DeliveryStatusAssigned.CanTransitionTo(DeliveryStatusPickedUp))
	assert.True(t, DeliveryStatusPickedUp.CanTransitionTo(DeliveryStatusOnTheWay))
	assert.True(t, DeliveryStatusOnTheWay.CanTransitionTo(DeliveryStatusDelivered))

	// Skip, repeat and reverse.
	assert.False(t, DeliveryStatusAssigned.CanTransitionTo(DeliveryStatusOnTheWay))
	assert.False(t, DeliveryStatusAssigned.CanTransitionTo(DeliveryStatusAssigned))
	assert.False(t, DeliveryStatusOnTheWay.CanTransitionTo(DeliveryStatusPickedUp))
	assert.False(t, DeliveryStatusDelivered.CanTransitionTo(DeliveryStatusAssigned))

	_, ok := DeliveryStatusDelivered.Next()
	assert.False(t, ok)
	assert.True(t, DeliveryStatusDelivered.IsTerminal())
	assert.False(t, DeliveryStatus("bogus").Valid())
}

func TestDelivery_Advance(t *testing.T) {
	assignedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d, err := NewDelivery("order-1", "driver-1", MustGeoPoint(-73.99, 40.73), MustGeoPoint(-73.98, 40.74), assignedAt)
	require.NoError(t, err)
	assert.Equal(t, DeliveryStatusAssigned, d.Status)
	assert.True(t, d.IsActive())

	err = d.Advance(DeliveryStatusOnTheWay, assignedAt.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, DeliveryStatusAssigned, d.Status)

	require.NoError(t, d.Advance(DeliveryStatusPickedUp, assignedAt.Add(-time.Minute)))
	assert.False(t, d.UpdatedAt.Before(d.AssignedAt), "updatedAt must not precede assignedAt")

	require.NoError(t, d.Advance(DeliveryStatusOnTheWay, assignedAt.Add(2*time.Minute)))
	require.NoError(t, d.Advance(DeliveryStatusDelivered, assignedAt.Add(3*time.Minute)))
	assert.False(t, d.IsActive())
}

func TestNewDelivery_Validation(t *testing.T) {
	now := time.Now()
	p := MustGeoPoint(0, 0)

	_, err := NewDelivery(" ", "driver-1", p, p, now)
	assert.ErrorIs(t, err, ErrInvalidOrderID)

	_, err = NewDelivery("order-1", "", p, p, now)
	assert.ErrorIs(t, err, ErrInvalidDriverID)

	_, err = NewDelivery("order-1", "driver-1", p, GeoPoint{Coordinates: []float64{200, 0}}, now)
	assert.ErrorIs(t, err, ErrInvalidGeoPoint)
}

func TestGeoPoint_Validate(t *testing.T) {
	p := GeoPoint{Coordinates: []float64{-73.99, 40.73}}
	require.NoError(t, p.Validate())
	assert.Equal(t, GeoPointType, p.Type)
	assert.Equal(t, -73.99, p.Lng())
	assert.Equal(t, 40.73, p.Lat())

	bad := []GeoPoint{
		{Type: "Polygon", Coordinates: []float64{0, 0}},
		{Coordinates: []float64{0}},
		{Coordinates: []float64{0, 91}},
		{Coordinates: []float64{-181, 0}},
	}
	for _, b := range bad {
		assert.ErrorIs(t, b.Validate(), ErrInvalidGeoPoint)
	}
}

func TestDriver_OwnedBy(t *testing.T) {
	d := &Driver{ID: "driver-1", UserID: "user-1"}
	assert.True(t, d.OwnedBy(Identity{ID: "driver-1", Role: RoleDelivery}))
	assert.True(t, d.OwnedBy(Identity{ID: "user-1", Role: RoleDelivery}))
	assert.False(t, d.OwnedBy(Identity{ID: "someone-else"}))
	assert.False(t, (&Driver{ID: "driver-2"}).OwnedBy(Identity{}))
}
