package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterAndCount(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.Assignment(ResultAssigned)
	m.Assignment(ResultAssigned)
	m.Assignment(ResultNoDrivers)
	m.ReservationConflict()
	m.NotificationFailure("sms")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AssignmentsTotal.WithLabelValues(ResultAssigned)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssignmentsTotal.WithLabelValues(ResultNoDrivers)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationConflictsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailuresTotal.WithLabelValues("sms")))

	// Registering twice must fail.
	assert.Error(t, m.Register(reg))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Assignment(ResultError)
		m.Compensation()
		m.StatusUpdate("Delivered")
		m.EventPublishFailure()
	})
}
