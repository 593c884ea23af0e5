package conditions

import "math"

// compassPoints lists the 16 compass labels clockwise from north,
// one per 22.5 degree sector.
var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// Direction maps a wind direction in degrees to one of the 16 compass
// labels. Rounding is half-away-from-zero, so the sector boundary at
// 11.25 degrees resolves to NNE. Inputs outside [0,360) are normalized.
func Direction(degrees float64) string {
	idx := int(math.Round(degrees/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}
