package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery/internal/app"
	"delivery/internal/domain"
	"delivery/internal/gateway"
	"delivery/internal/handler"
	"delivery/internal/tests"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenVerifier map[string]domain.Identity

func (v tokenVerifier) VerifyToken(_ context.Context, token string) (domain.Identity, error) {
	identity, ok := v[token]
	if !ok {
		return domain.Identity{}, gateway.ErrUnauthenticated
	}
	return identity, nil
}

const (
	adminToken    = "admin-token"
	driverToken   = "driver-token"
	otherToken    = "other-token"
	customerToken = "customer-token"
)

func newTestRouter(t *testing.T) (*gin.Engine, *tests.Env) {
	t.Helper()
	env := tests.NewEnv(tests.DefaultDeliveryConfig())
	env.AddRestaurant("rest-1", -73.99, 40.73, "5th Avenue")
	env.AddDriver("d1", -73.991, 40.731)
	env.AddDriver("d2", -73.999, 40.739)
	env.Drivers.SetAvailable("d2", false)

	router := app.NewRouter(app.RouterDeps{
		DeliveryHandler: handler.NewDeliveryHandler(env.Assignment),
		DriverHandler:   handler.NewDriverHandler(env.Registry),
		Verifier: tokenVerifier{
			adminToken:    {ID: "admin-1", Role: domain.RoleAdmin},
			driverToken:   {ID: "user-d1", Role: domain.RoleDelivery},
			otherToken:    {ID: "user-d2", Role: domain.RoleDelivery},
			customerToken: {ID: "cust-1", Role: domain.RoleCustomer},
		},
		Log: env.Log,
	})
	t.Cleanup(func() {
		_ = env.Notifier.Wait(context.Background())
	})
	return router, env
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var assignBody = map[string]any{
	"restaurantId": "rest-1",
	"deliveryLocation": map[string]any{
		"type":        "Point",
		"coordinates": []float64{-73.98, 40.74},
	},
}

func TestAssignDelivery_HTTP(t *testing.T) {
	r, env := newTestRouter(t)

	w := do(r, http.MethodPost, "/delivery/assign/order-1", adminToken, assignBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[handler.DeliveryResponse](t, w)
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Equal(t, "d1", resp.DriverID)
	assert.Equal(t, "Assigned", resp.Status)
	assert.Equal(t, []float64{-73.99, 40.73}, resp.PickupLocation.Coordinates)
	assert.False(t, env.Drivers.IsAvailable("d1"))

	// Second assignment of the same order conflicts.
	w = do(r, http.MethodPost, "/delivery/assign/order-1", adminToken, assignBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, handler.KindConflict, decode[handler.ErrorResponse](t, w).Kind)

	// Only d2 is left and it is busy.
	w = do(r, http.MethodPost, "/delivery/assign/order-2", adminToken, assignBody)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handler.KindNoDriversAvailable, decode[handler.ErrorResponse](t, w).Kind)
}

func TestAssignDelivery_HTTPErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name     string
		token    string
		path     string
		body     any
		wantCode int
		wantKind string
	}{
		{"no token", "", "/delivery/assign/o", assignBody, http.StatusUnauthorized, handler.KindUnauthenticated},
		{"bad token", "nope", "/delivery/assign/o", assignBody, http.StatusUnauthorized, handler.KindUnauthenticated},
		{"not admin", driverToken, "/delivery/assign/o", assignBody, http.StatusForbidden, handler.KindForbidden},
		{"malformed json", adminToken, "/delivery/assign/o", "{", http.StatusBadRequest, handler.KindInvalidRequest},
		{"missing restaurant", adminToken, "/delivery/assign/o", map[string]any{
			"deliveryLocation": assignBody["deliveryLocation"],
		}, http.StatusBadRequest, handler.KindInvalidRequest},
		{"bad location", adminToken, "/delivery/assign/o", map[string]any{
			"restaurantId":     "rest-1",
			"deliveryLocation": map[string]any{"type": "Point", "coordinates": []float64{1}},
		}, http.StatusBadRequest, handler.KindInvalidRequest},
		{"unknown restaurant", adminToken, "/delivery/assign/o", map[string]any{
			"restaurantId":     "rest-404",
			"deliveryLocation": assignBody["deliveryLocation"],
		}, http.StatusNotFound, handler.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tt.wantKind, decode[handler.ErrorResponse](t, w).Kind)
		})
	}
}

func TestAssignDelivery_UpstreamDown(t *testing.T) {
	r, env := newTestRouter(t)
	env.Restaurants.GetLocationError = gateway.ErrUpstreamUnavailable

	w := do(r, http.MethodPost, "/delivery/assign/order-1", adminToken, assignBody)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, handler.KindUpstreamUnavailable, decode[handler.ErrorResponse](t, w).Kind)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	r, env := newTestRouter(t)
	env.Deliveries.GetError = tests.ErrMockDBUnavailable

	w := do(r, http.MethodGet, "/delivery/status/order-1", adminToken, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[handler.ErrorResponse](t, w)
	assert.Equal(t, handler.KindInternal, resp.Kind)
	assert.Equal(t, "internal server error", resp.Error)
}

func TestUpdateStatus_HTTP(t *testing.T) {
	r, env := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/delivery/assign/order-1", adminToken, assignBody).Code)

	w := do(r, http.MethodPatch, "/delivery/update-status/order-1", otherToken, map[string]string{"status": "Picked Up"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPatch, "/delivery/update-status/order-1", driverToken, map[string]string{"status": "OnTheWay"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPatch, "/delivery/update-status/order-1", driverToken, map[string]string{"status": "Lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/delivery/update-status/missing", adminToken, map[string]string{"status": "PickedUp"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, status := range []string{"PickedUp", "OnTheWay", "Delivered"} {
		w = do(r, http.MethodPatch, "/delivery/update-status/order-1", driverToken, map[string]string{"status": status})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Equal(t, "Delivered", decode[handler.DeliveryResponse](t, w).Status)
	assert.True(t, env.Drivers.IsAvailable("d1"))
}

func TestGetStatus_HTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/delivery/assign/order-1", adminToken, assignBody).Code)

	w := do(r, http.MethodGet, "/delivery/status/order-1", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[handler.DeliveryDetailsResponse](t, w)
	assert.Equal(t, "Assigned", resp.Status)
	assert.Equal(t, "Driver d1", resp.Driver.Name)
	assert.Equal(t, "+9477d1", resp.Driver.Contact)

	w = do(r, http.MethodGet, "/delivery/status/order-404", customerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/delivery/status/order-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListDriverOrders_HTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/delivery/assign/order-1", adminToken, assignBody).Code)

	w := do(r, http.MethodGet, "/delivery/orders/d1", driverToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]handler.DeliveryResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "order-1", list[0].OrderID)

	w = do(r, http.MethodGet, "/delivery/orders/d1", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/delivery/orders/d2", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDriverEndpoints_HTTP(t *testing.T) {
	r, env := newTestRouter(t)

	w := do(r, http.MethodPost, "/delivery/drivers", otherToken, map[string]any{
		"userId":   "someone-else",
		"name":     "Kamal",
		"contact":  "+94770000001",
		"location": map[string]any{"type": "Point", "coordinates": []float64{79.86, 6.92}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[handler.DriverResponse](t, w)
	assert.Equal(t, "user-d2", created.UserID, "non-admins register themselves")
	assert.True(t, created.IsAvailable)
	assert.True(t, env.Locations.HasLocation(created.ID))

	w = do(r, http.MethodPost, "/delivery/drivers", customerToken, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/delivery/drivers", adminToken, map[string]any{
		"name":     "No Contact",
		"location": map[string]any{"type": "Point", "coordinates": []float64{0, 0}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/delivery/drivers/d1", driverToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Driver d1", decode[handler.DriverResponse](t, w).Name)

	w = do(r, http.MethodGet, "/delivery/drivers/d1", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/delivery/drivers/ghost", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/delivery/drivers/d1/location", driverToken, map[string]any{
		"location": map[string]any{"type": "Point", "coordinates": []float64{-73.995, 40.735}},
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, -73.995, env.Drivers.GetDriver("d1").Location.Lng())

	w = do(r, http.MethodPut, "/delivery/drivers/d1/location", driverToken, map[string]any{
		"location": map[string]any{"type": "Point", "coordinates": []float64{-200, 40}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
