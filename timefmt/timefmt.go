// Package timefmt formats provider timestamps for the dashboard header,
// hourly slots, and daily rows.
package timefmt

import (
	"fmt"
	"time"
)

// Display layouts shared with callers that format wall-clock values directly.
const (
	ClockLayout = "3:04 PM"
	HourLayout  = "3 PM"
	DayLayout   = "Mon, Jan 2"
)

// layouts lists the timestamp shapes the forecast and geocoding providers
// emit, tried in order.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatError reports an input that could not be parsed as a timestamp.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot parse timestamp %q", e.Value)
}

// Parse interprets an ISO-8601 style timestamp. Zone-less inputs are read
// as wall time in loc; inputs carrying an offset are converted into loc.
// A nil loc means the viewer's local timezone.
func Parse(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, &FormatError{Value: value}
}

// Clock formats a timestamp as "h:mm AM/PM" for the header clock.
func Clock(value string, loc *time.Location) (string, error) {
	t, err := Parse(value, loc)
	if err != nil {
		return "", err
	}
	return t.Format(ClockLayout), nil
}

// HourLabel formats a timestamp as "h AM/PM" for an hourly slot.
func HourLabel(value string, loc *time.Location) (string, error) {
	t, err := Parse(value, loc)
	if err != nil {
		return "", err
	}
	return t.Format(HourLayout), nil
}

// DayLabel formats a date for a daily row: "Today" for the first row,
// otherwise weekday plus month and day. The input is validated even when
// first is set so malformed dates never pass silently.
func DayLabel(value string, first bool) (string, error) {
	t, err := Parse(value, time.UTC)
	if err != nil {
		return "", err
	}
	if first {
		return "Today", nil
	}
	return t.Format(DayLayout), nil
}
