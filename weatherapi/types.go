package weatherapi

import (
	"fmt"
	"strings"

	"github.com/stratusdeck/stratusdeck/geo"
)

// Place is one geocoding result.
type Place struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1,omitempty"`
}

// Coordinate returns the place's position.
func (p Place) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Label builds the display name "name, admin1, country", skipping empty parts.
func (p Place) Label() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{p.Name, p.Admin1, p.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// placesResponse is the wire envelope of the geocoding endpoints.
type placesResponse struct {
	Results []Place `json:"results"`
}

// Snapshot is a complete forecast for one location as served by the
// gateway. It is replaced wholesale on each successful fetch and never
// mutated in place.
type Snapshot struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Timezone     string  `json:"timezone"`
	TimezoneAbbr string  `json:"timezone_abbreviation"`
	Current      Current `json:"current"`
	Hourly       Hourly  `json:"hourly"`
	Daily        Daily   `json:"daily"`
}

// Current holds the present conditions.
type Current struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature_2m"`
	Humidity      int     `json:"relative_humidity_2m"`
	WeatherCode   int     `json:"weather_code"`
	WindSpeed     float64 `json:"wind_speed_10m"`
	WindDirection float64 `json:"wind_direction_10m"`
}

// Hourly holds parallel sequences indexed by hour slot, slot 0 being the
// nearest hour.
type Hourly struct {
	Time          []string  `json:"time"`
	Temperature   []float64 `json:"temperature_2m"`
	Humidity      []int     `json:"relative_humidity_2m"`
	WeatherCode   []int     `json:"weather_code"`
	WindSpeed     []float64 `json:"wind_speed_10m"`
	WindDirection []float64 `json:"wind_direction_10m"`
}

// Daily holds parallel sequences indexed by day, day 0 being today.
type Daily struct {
	Time             []string  `json:"time"`
	WeatherCode      []int     `json:"weather_code"`
	TemperatureMax   []float64 `json:"temperature_2m_max"`
	TemperatureMin   []float64 `json:"temperature_2m_min"`
	PrecipitationSum []float64 `json:"precipitation_sum"`
	WindSpeedMax     []float64 `json:"wind_speed_10m_max"`
}

// Coordinate returns the snapshot's location.
func (s *Snapshot) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Validate checks the parallel-sequence invariants: every hourly series
// must match the hourly time axis in length, and likewise for daily.
func (s *Snapshot) Validate() error {
	n := len(s.Hourly.Time)
	hourly := map[string]int{
		"temperature_2m":       len(s.Hourly.Temperature),
		"relative_humidity_2m": len(s.Hourly.Humidity),
		"weather_code":         len(s.Hourly.WeatherCode),
		"wind_speed_10m":       len(s.Hourly.WindSpeed),
		"wind_direction_10m":   len(s.Hourly.WindDirection),
	}
	for field, length := range hourly {
		if length != n {
			return fmt.Errorf("hourly series %s has %d entries, time axis has %d", field, length, n)
		}
	}

	m := len(s.Daily.Time)
	daily := map[string]int{
		"weather_code":       len(s.Daily.WeatherCode),
		"temperature_2m_max": len(s.Daily.TemperatureMax),
		"temperature_2m_min": len(s.Daily.TemperatureMin),
		"precipitation_sum":  len(s.Daily.PrecipitationSum),
		"wind_speed_10m_max": len(s.Daily.WindSpeedMax),
	}
	for field, length := range daily {
		if length != m {
			return fmt.Errorf("daily series %s has %d entries, time axis has %d", field, length, m)
		}
	}

	return nil
}
