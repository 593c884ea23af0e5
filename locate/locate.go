// Package locate resolves the viewer's approximate position at startup.
//
// Three providers cover the deployment modes: Fixed serves a configured
// coordinate, IPLocator estimates the position from the caller's public
// IP address, and Unavailable always fails so the dashboard falls back to
// manual search.
package locate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/stratusdeck/stratusdeck/geo"
)

// ErrUnavailable indicates that no location source is configured or the
// configured source cannot provide a position.
var ErrUnavailable = errors.New("locate: no location source available")

// Provider obtains the viewer's position. Implementations may block on
// network I/O and must honor the context.
type Provider interface {
	Locate(ctx context.Context) (geo.Coordinate, error)
}

// Fixed serves a coordinate taken from configuration.
type Fixed struct {
	Coordinate geo.Coordinate
}

// Locate returns the configured coordinate after validating it.
func (f Fixed) Locate(_ context.Context) (geo.Coordinate, error) {
	if err := f.Coordinate.Validate(); err != nil {
		return geo.Coordinate{}, fmt.Errorf("fixed location invalid: %w", err)
	}
	return f.Coordinate, nil
}

// Unavailable is the provider for deployments without a location source.
type Unavailable struct{}

// Locate always fails with ErrUnavailable.
func (Unavailable) Locate(_ context.Context) (geo.Coordinate, error) {
	return geo.Coordinate{}, ErrUnavailable
}

// IPLocator estimates the viewer's position from the machine's public IP
// address using an ip-api style JSON endpoint.
type IPLocator struct {
	http *resty.Client
	url  string
}

// NewIPLocator creates a locator against the given lookup URL.
func NewIPLocator(lookupURL string, timeout time.Duration) *IPLocator {
	return &IPLocator{
		http: resty.New().SetTimeout(timeout),
		url:  lookupURL,
	}
}

// ipResponse is the ip-api.com response shape. Only the fields the
// locator consumes are declared.
type ipResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Locate queries the lookup endpoint and returns the estimated coordinate.
func (l *IPLocator) Locate(ctx context.Context) (geo.Coordinate, error) {
	resp, err := l.http.R().SetContext(ctx).Get(l.url)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("ip lookup failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("ip lookup returned status %d", resp.StatusCode())
	}

	var payload ipResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return geo.Coordinate{}, fmt.Errorf("ip lookup returned malformed payload: %w", err)
	}
	if payload.Status != "success" {
		return geo.Coordinate{}, fmt.Errorf("ip lookup rejected: %s", payload.Message)
	}

	coord := geo.Coordinate{Latitude: payload.Lat, Longitude: payload.Lon}
	if err := coord.Validate(); err != nil {
		return geo.Coordinate{}, fmt.Errorf("ip lookup returned invalid coordinate: %w", err)
	}
	return coord, nil
}
