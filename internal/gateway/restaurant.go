package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"delivery/internal/domain"
)

// RestaurantClient looks up restaurant pickup locations.
type RestaurantClient struct {
	baseURL string
	client  *http.Client
}

// NewRestaurantClient creates a new RestaurantClient.
func NewRestaurantClient(baseURL string, client *http.Client) *RestaurantClient {
	return &RestaurantClient{baseURL: baseURL, client: client}
}

type restaurantLocationResponse struct {
	Location domain.GeoPoint `json:"location"`
	Address  json.RawMessage `json:"address"`
}

// GetLocation returns the restaurant's GeoJSON location and street.
func (c *RestaurantClient) GetLocation(ctx context.Context, restaurantID string) (*domain.RestaurantLocation, error) {
	endpoint := joinURL(c.baseURL, "/restaurants/internal/location/"+url.PathEscape(restaurantID))

	var resp restaurantLocationResponse
	if err := doJSON(ctx, c.client, http.MethodGet, endpoint, nil, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.Code == http.StatusNotFound {
				return nil, ErrRestaurantNotFound
			}
			return nil, fmt.Errorf("%w: restaurant location: %v", ErrUpstreamUnavailable, se)
		}
		return nil, err
	}

	if err := resp.Location.Validate(); err != nil {
		return nil, fmt.Errorf("%w: restaurant %s has %v", ErrUpstreamUnavailable, restaurantID, err)
	}

	return &domain.RestaurantLocation{
		RestaurantID: restaurantID,
		Location:     resp.Location,
		Street:       parseStreet(resp.Address),
	}, nil
}

// parseStreet accepts either {"street": "..."} or a plain string.
func parseStreet(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj struct {
		Street string `json:"street"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Street)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	return ""
}
