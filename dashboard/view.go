package dashboard

import (
	"time"

	"github.com/sixdouglas/suncalc"

	"github.com/stratusdeck/stratusdeck/conditions"
	"github.com/stratusdeck/stratusdeck/timefmt"
	"github.com/stratusdeck/stratusdeck/weatherapi"
)

const (
	maxHourlyColumns = 24
	maxDailyRows     = 7
)

// RequestState tracks the in-flight forecast request.
type RequestState struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// SearchState is the live city-search portion of the view.
type SearchState struct {
	Query      string             `json:"query"`
	Candidates []weatherapi.Place `json:"candidates,omitempty"`
	Searching  bool               `json:"searching"`
}

// CurrentView is the current-conditions card.
type CurrentView struct {
	Time          string                `json:"time"`
	Temperature   float64               `json:"temperature"`
	Humidity      int                   `json:"humidity"`
	Description   string                `json:"description"`
	Icon          conditions.Icon       `json:"icon"`
	Background    conditions.Background `json:"background"`
	WindSpeed     float64               `json:"wind_speed"`
	WindDirection string                `json:"wind_direction"`
	Sunrise       string                `json:"sunrise,omitempty"`
	Sunset        string                `json:"sunset,omitempty"`
}

// HourView is one column of the hourly strip.
type HourView struct {
	Label       string          `json:"label"`
	Temperature float64         `json:"temperature"`
	Humidity    int             `json:"humidity"`
	Icon        conditions.Icon `json:"icon"`
	Description string          `json:"description"`
}

// DayView is one row of the daily strip.
type DayView struct {
	Label         string          `json:"label"`
	High          float64         `json:"high"`
	Low           float64         `json:"low"`
	Precipitation float64         `json:"precipitation"`
	WindMax       float64         `json:"wind_max"`
	Icon          conditions.Icon `json:"icon"`
	Description   string          `json:"description"`
}

// ForecastView is a forecast snapshot transformed for rendering.
type ForecastView struct {
	Latitude     float64     `json:"latitude"`
	Longitude    float64     `json:"longitude"`
	Timezone     string      `json:"timezone"`
	TimezoneAbbr string      `json:"timezone_abbr"`
	Current      CurrentView `json:"current"`
	Hourly       []HourView  `json:"hourly"`
	Daily        []DayView   `json:"daily"`
	FetchedAt    time.Time   `json:"fetched_at"`
}

// View is the complete render model published to subscribers. Published
// views are value snapshots and are never mutated afterwards.
type View struct {
	Generation uint64        `json:"generation"`
	Clock      string        `json:"clock"`
	PlaceLabel string        `json:"place_label"`
	Request    RequestState  `json:"request"`
	Search     SearchState   `json:"search"`
	Forecast   *ForecastView `json:"forecast,omitempty"`
}

// buildForecastView transforms a validated snapshot into the render
// model. Timestamps that fail to parse fall back to the raw wire value.
func buildForecastView(snapshot *weatherapi.Snapshot, fetchedAt time.Time) *ForecastView {
	if snapshot == nil {
		return nil
	}

	loc := time.Local
	if snapshot.Timezone != "" {
		if parsed, err := time.LoadLocation(snapshot.Timezone); err == nil {
			loc = parsed
		}
	}

	current := snapshot.Current
	observedAt := fetchedAt
	if parsed, err := timefmt.Parse(current.Time, loc); err == nil {
		observedAt = parsed
	}
	sunrise, sunset := sunTimes(observedAt, snapshot.Latitude, snapshot.Longitude, loc)

	view := &ForecastView{
		Latitude:     snapshot.Latitude,
		Longitude:    snapshot.Longitude,
		Timezone:     snapshot.Timezone,
		TimezoneAbbr: snapshot.TimezoneAbbr,
		FetchedAt:    fetchedAt,
		Current: CurrentView{
			Time:          clockOrRaw(current.Time, loc),
			Temperature:   current.Temperature,
			Humidity:      current.Humidity,
			Description:   conditions.Describe(current.WeatherCode),
			Icon:          conditions.IconCategory(current.WeatherCode),
			Background:    conditions.BackgroundCategory(current.WeatherCode),
			WindSpeed:     current.WindSpeed,
			WindDirection: conditions.Direction(current.WindDirection),
			Sunrise:       sunrise,
			Sunset:        sunset,
		},
	}

	hourly := snapshot.HourlyRows()
	if len(hourly) > maxHourlyColumns {
		hourly = hourly[:maxHourlyColumns]
	}
	view.Hourly = make([]HourView, 0, len(hourly))
	for _, row := range hourly {
		view.Hourly = append(view.Hourly, HourView{
			Label:       hourLabelOrRaw(row.Time, loc),
			Temperature: row.Temperature,
			Humidity:    row.Humidity,
			Icon:        conditions.IconCategory(row.WeatherCode),
			Description: conditions.Describe(row.WeatherCode),
		})
	}

	daily := snapshot.DailyRows()
	if len(daily) > maxDailyRows {
		daily = daily[:maxDailyRows]
	}
	view.Daily = make([]DayView, 0, len(daily))
	for i, row := range daily {
		view.Daily = append(view.Daily, DayView{
			Label:         dayLabelOrRaw(row.Date, i == 0),
			High:          row.TemperatureMax,
			Low:           row.TemperatureMin,
			Precipitation: row.PrecipitationSum,
			WindMax:       row.WindSpeedMax,
			Icon:          conditions.IconCategory(row.WeatherCode),
			Description:   conditions.Describe(row.WeatherCode),
		})
	}

	return view
}

// sunTimes computes the sunrise and sunset labels for a location as of
// the given instant. Polar days and nights yield empty labels.
func sunTimes(at time.Time, latitude, longitude float64, loc *time.Location) (string, string) {
	times := suncalc.GetTimes(at, latitude, longitude)

	var sunrise, sunset string
	if value := times["sunrise"].Value; !value.IsZero() {
		sunrise = value.In(loc).Format(timefmt.ClockLayout)
	}
	if value := times["sunset"].Value; !value.IsZero() {
		sunset = value.In(loc).Format(timefmt.ClockLayout)
	}
	return sunrise, sunset
}

func clockOrRaw(value string, loc *time.Location) string {
	formatted, err := timefmt.Clock(value, loc)
	if err != nil {
		return value
	}
	return formatted
}

func hourLabelOrRaw(value string, loc *time.Location) string {
	formatted, err := timefmt.HourLabel(value, loc)
	if err != nil {
		return value
	}
	return formatted
}

func dayLabelOrRaw(value string, first bool) string {
	formatted, err := timefmt.DayLabel(value, first)
	if err != nil {
		return value
	}
	return formatted
}
