package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"delivery/internal/domain"
	"delivery/internal/service"
)

// DeliveryHandler handles HTTP requests for deliveries.
type DeliveryHandler struct {
	assignmentService *service.AssignmentService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(assignmentService *service.AssignmentService) *DeliveryHandler {
	return &DeliveryHandler{assignmentService: assignmentService}
}

// AssignDeliveryRequest is the HTTP request body for assigning an order.
type AssignDeliveryRequest struct {
	RestaurantID     string          `json:"restaurantId"`
	DeliveryLocation domain.GeoPoint `json:"deliveryLocation"`
}

// UpdateStatusRequest is the HTTP request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// DeliveryResponse is the HTTP response for delivery data.
type DeliveryResponse struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"orderId"`
	DriverID         string          `json:"driverId"`
	Status           string          `json:"status"`
	PickupLocation   domain.GeoPoint `json:"pickupLocation"`
	DeliveryLocation domain.GeoPoint `json:"deliveryLocation"`
	AssignedAt       string          `json:"assignedAt"`
	UpdatedAt        string          `json:"updatedAt"`
}

// DeliveryDetailsResponse is the delivery with the bound driver's contact details.
type DeliveryDetailsResponse struct {
	DeliveryResponse
	Driver DriverSummary `json:"driver"`
}

// DriverSummary is the public part of the bound driver.
type DriverSummary struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// AssignDelivery handles POST /delivery/assign/:orderId
func (h *DeliveryHandler) AssignDelivery(c *gin.Context) {
	var req AssignDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	delivery, err := h.assignmentService.AssignDelivery(c.Request.Context(), service.AssignRequest{
		OrderID:          c.Param("orderId"),
		RestaurantID:     req.RestaurantID,
		DeliveryLocation: req.DeliveryLocation,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDeliveryResponse(delivery))
}

// ListDriverOrders handles GET /delivery/orders/:driverId
func (h *DeliveryHandler) ListDriverOrders(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	deliveries, err := h.assignmentService.ListDriverOrders(c.Request.Context(), c.Param("driverId"), identity)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DeliveryResponse, len(deliveries))
	for i, d := range deliveries {
		response[i] = toDeliveryResponse(d)
	}

	respondJSON(c, http.StatusOK, response)
}

// UpdateStatus handles PATCH /delivery/update-status/:orderId
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	delivery, err := h.assignmentService.UpdateDeliveryStatus(c.Request.Context(), service.UpdateStatusRequest{
		OrderID:   c.Param("orderId"),
		Status:    req.Status,
		Requester: identity,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDeliveryResponse(delivery))
}

// GetStatus handles GET /delivery/status/:orderId
func (h *DeliveryHandler) GetStatus(c *gin.Context) {
	details, err := h.assignmentService.GetDeliveryStatus(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DeliveryDetailsResponse{
		DeliveryResponse: toDeliveryResponse(details.Delivery),
		Driver: DriverSummary{
			Name:    details.DriverName,
			Contact: details.DriverContact,
		},
	})
}

func toDeliveryResponse(d *domain.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:               d.ID,
		OrderID:          d.OrderID,
		DriverID:         d.DriverID,
		Status:           string(d.Status),
		PickupLocation:   d.PickupLocation,
		DeliveryLocation: d.DeliveryLocation,
		AssignedAt:       d.AssignedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
