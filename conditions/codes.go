// Package conditions translates raw forecast values (WMO weather codes,
// wind direction degrees) into display categories and labels.
package conditions

// Icon identifies which pictogram class the presentation layer should show.
type Icon string

// Icon categories, one per bucket of related weather codes.
const (
	IconClear        Icon = "clear"
	IconPartlyCloudy Icon = "partly-cloudy"
	IconOvercast     Icon = "overcast"
	IconFog          Icon = "fog"
	IconDrizzle      Icon = "drizzle"
	IconRain         Icon = "rain"
	IconSnow         Icon = "snow"
	IconShowers      Icon = "showers"
	IconThunderstorm Icon = "thunderstorm"
	IconUnknown      Icon = "unknown"
)

// Background identifies the background gradient class for a condition.
type Background string

// Background categories.
const (
	BackgroundClear        Background = "clear"
	BackgroundCloudy       Background = "cloudy"
	BackgroundRain         Background = "rain"
	BackgroundSnow         Background = "snow"
	BackgroundThunderstorm Background = "thunderstorm"
	BackgroundDefault      Background = "default"
)

// bucket maps an inclusive weather-code range to display attributes.
// Codes inside the range without a specific text entry fall back to label.
type bucket struct {
	lo, hi     int
	text       map[int]string
	label      string
	icon       Icon
	background Background
}

// codeTable is evaluated top to bottom and the first matching bucket wins.
// The order is load-bearing: the snow range sits inside the span a combined
// precipitation range test would cover, so it must be matched before any
// broader rule could shadow it. Do not reorder or merge rows.
var codeTable = []bucket{
	{lo: 0, hi: 0, label: "Clear sky", icon: IconClear, background: BackgroundClear},
	{lo: 1, hi: 1, label: "Mainly clear", icon: IconClear, background: BackgroundClear},
	{lo: 2, hi: 2, label: "Partly cloudy", icon: IconPartlyCloudy, background: BackgroundCloudy},
	{lo: 3, hi: 3, label: "Overcast", icon: IconOvercast, background: BackgroundCloudy},
	{lo: 45, hi: 45, label: "Foggy", icon: IconFog, background: BackgroundDefault},
	{lo: 48, hi: 48, label: "Depositing rime fog", icon: IconFog, background: BackgroundDefault},
	{
		lo: 51, hi: 55,
		text:  map[int]string{51: "Light drizzle", 53: "Moderate drizzle", 55: "Dense drizzle"},
		label: "Drizzle", icon: IconDrizzle, background: BackgroundRain,
	},
	{
		lo: 61, hi: 65,
		text:  map[int]string{61: "Light rain", 63: "Moderate rain", 65: "Heavy rain"},
		label: "Rain", icon: IconRain, background: BackgroundRain,
	},
	{
		lo: 71, hi: 75,
		text:  map[int]string{71: "Light snow", 73: "Moderate snow", 75: "Heavy snow"},
		label: "Snow", icon: IconSnow, background: BackgroundSnow,
	},
	{
		lo: 80, hi: 82,
		text:  map[int]string{80: "Light showers", 81: "Moderate showers", 82: "Heavy showers"},
		label: "Rain showers", icon: IconShowers, background: BackgroundRain,
	},
	{lo: 95, hi: 95, label: "Thunderstorm", icon: IconThunderstorm, background: BackgroundThunderstorm},
	{lo: 96, hi: 96, label: "Thunderstorm with slight hail", icon: IconThunderstorm, background: BackgroundThunderstorm},
	{lo: 99, hi: 99, label: "Thunderstorm with heavy hail", icon: IconThunderstorm, background: BackgroundThunderstorm},
}

// unknownBucket is returned when no table row matches.
var unknownBucket = bucket{label: "Unknown", icon: IconUnknown, background: BackgroundDefault}

func lookup(code int) bucket {
	for _, b := range codeTable {
		if code >= b.lo && code <= b.hi {
			return b
		}
	}
	return unknownBucket
}

// Describe returns the human-readable condition text for a weather code.
func Describe(code int) string {
	b := lookup(code)
	if s, ok := b.text[code]; ok {
		return s
	}
	return b.label
}

// IconCategory returns the icon class for a weather code.
func IconCategory(code int) Icon {
	return lookup(code).icon
}

// BackgroundCategory returns the background gradient class for a weather code.
func BackgroundCategory(code int) Background {
	return lookup(code).background
}
