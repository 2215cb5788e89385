package domain

import (
	"errors"
	"fmt"
)

// GeoPointType is the only GeoJSON geometry type used by the service.
const GeoPointType = "Point"

// ErrInvalidGeoPoint is returned when a point is malformed or out of range.
var ErrInvalidGeoPoint = errors.New("invalid geo point")

// GeoPoint is a GeoJSON point. Coordinates are WGS84 decimal degrees,
// longitude first.
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewGeoPoint builds a validated point from longitude and latitude.
func NewGeoPoint(lng, lat float64) (GeoPoint, error) {
	p := GeoPoint{Type: GeoPointType, Coordinates: []float64{lng, lat}}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// MustGeoPoint is NewGeoPoint for literals known to be valid.
func MustGeoPoint(lng, lat float64) GeoPoint {
	p, err := NewGeoPoint(lng, lat)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks the geometry type, arity and coordinate ranges. An empty
// type is normalised to Point.
func (p *GeoPoint) Validate() error {
	if p.Type == "" {
		p.Type = GeoPointType
	}
	if p.Type != GeoPointType {
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidGeoPoint, p.Type)
	}
	if len(p.Coordinates) != 2 {
		return fmt.Errorf("%w: expected [longitude, latitude]", ErrInvalidGeoPoint)
	}
	if !isValidLongitude(p.Coordinates[0]) {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidGeoPoint, p.Coordinates[0])
	}
	if !isValidLatitude(p.Coordinates[1]) {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidGeoPoint, p.Coordinates[1])
	}
	return nil
}

// Lng returns the longitude. The point must be valid.
func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }

// Lat returns the latitude. The point must be valid.
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
