package domain

// RestaurantLocation is the pickup point of a restaurant as reported by the
// restaurant service.
type RestaurantLocation struct {
	RestaurantID string
	Location     GeoPoint
	Street       string
}
