package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"delivery/internal/domain"
	"delivery/internal/gateway"
	"delivery/internal/middleware"
	"delivery/internal/repository"
	"delivery/internal/service"
)

// Error kinds reported in ErrorResponse.Kind.
const (
	KindInvalidRequest      = "InvalidRequest"
	KindUnauthenticated     = "Unauthenticated"
	KindForbidden           = "Forbidden"
	KindNotFound            = "NotFound"
	KindNoDriversAvailable  = "NoDriversAvailable"
	KindConflict            = "Conflict"
	KindUpstreamUnavailable = "UpstreamUnavailable"
	KindInternal            = "Internal"
)

const internalErrorMessage = "internal server error"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are attached to the gin context for logging and hidden
// from the client.
func respondError(c *gin.Context, err error) {
	code, kind := mapErrorToHTTPStatus(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		message = internalErrorMessage
	}
	c.JSON(code, ErrorResponse{Kind: kind, Error: message})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Kind: KindInvalidRequest, Error: message})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository/gateway errors to an HTTP
// status code and error kind.
func mapErrorToHTTPStatus(err error) (int, string) {
	switch {
	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidRestaurantID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidSearchRadius),
		errors.Is(err, domain.ErrInvalidDriverName),
		errors.Is(err, domain.ErrInvalidDriverContact):
		return http.StatusBadRequest, KindInvalidRequest

	case errors.Is(err, gateway.ErrUnauthenticated):
		return http.StatusUnauthorized, KindUnauthenticated

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, KindForbidden

	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, gateway.ErrRestaurantNotFound):
		return http.StatusNotFound, KindNotFound

	case errors.Is(err, service.ErrNoDriversAvailable):
		return http.StatusNotFound, KindNoDriversAvailable

	// Conflict errors
	case errors.Is(err, repository.ErrAlreadyReserved),
		errors.Is(err, repository.ErrDuplicateActiveDelivery),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, service.ErrAssignmentInProgress):
		return http.StatusConflict, KindConflict

	case errors.Is(err, gateway.ErrUpstreamUnavailable):
		return http.StatusBadGateway, KindUpstreamUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// currentIdentity returns the authenticated caller or writes a 401.
func currentIdentity(c *gin.Context) (domain.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, gateway.ErrUnauthenticated)
		return domain.Identity{}, false
	}
	return identity, true
}
