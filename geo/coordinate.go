// Package geo provides the geographic coordinate type shared by the
// dashboard's clients and state container.
package geo

import "fmt"

// Coordinate is a geographic point in decimal degrees. Values are
// immutable once obtained from a location source or a geocode result.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate lies within the valid WGS84 domain.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %f", c.Longitude)
	}
	return nil
}

// String formats the coordinate for logging.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}
