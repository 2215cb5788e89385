package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"delivery/internal/domain"
	"delivery/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	registry *service.DriverRegistry
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(registry *service.DriverRegistry) *DriverHandler {
	return &DriverHandler{registry: registry}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	UserID   string          `json:"userId"`
	Name     string          `json:"name"`
	Contact  string          `json:"contact"`
	Location domain.GeoPoint `json:"location"`
}

// UpdateLocationRequest is the HTTP request body for a location ping.
type UpdateLocationRequest struct {
	Location domain.GeoPoint `json:"location"`
}

// DriverResponse is the HTTP response for driver data.
type DriverResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId,omitempty"`
	Name        string          `json:"name"`
	Contact     string          `json:"contact"`
	Location    domain.GeoPoint `json:"location"`
	IsAvailable bool            `json:"isAvailable"`
	CreatedAt   string          `json:"createdAt"`
}

// Register handles POST /delivery/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	// Only administrators may register a driver on behalf of another account.
	userID := req.UserID
	if !identity.IsAdmin() {
		userID = identity.ID
	}

	driver, err := h.registry.Register(c.Request.Context(), service.RegisterDriverRequest{
		UserID:   userID,
		Name:     req.Name,
		Contact:  req.Contact,
		Location: req.Location,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// GetDriver handles GET /delivery/drivers/:driverId
func (h *DriverHandler) GetDriver(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	driverID := c.Param("driverId")

	if err := h.registry.Authorize(c.Request.Context(), identity, driverID); err != nil {
		respondError(c, err)
		return
	}

	driver, err := h.registry.Get(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// UpdateLocation handles PUT /delivery/drivers/:driverId/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	driverID := c.Param("driverId")

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if err := h.registry.Authorize(c.Request.Context(), identity, driverID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.registry.UpdateLocation(c.Request.Context(), driverID, req.Location); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:          d.ID,
		UserID:      d.UserID,
		Name:        d.Name,
		Contact:     d.Contact,
		Location:    d.Location,
		IsAvailable: d.IsAvailable,
		CreatedAt:   d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
