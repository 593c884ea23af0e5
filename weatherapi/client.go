package weatherapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/stratusdeck/stratusdeck/geo"
)

const (
	defaultBaseURL = "http://localhost:5000"

	// MinQueryLength is the shortest search query that triggers a network
	// call. Shorter queries short-circuit to an empty result.
	MinQueryLength = 2
)

// Searcher finds places matching a text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// ReverseGeocoder resolves a coordinate to the nearest known place.
type ReverseGeocoder interface {
	ReverseLookup(ctx context.Context, coord geo.Coordinate) (*Place, error)
}

// ForecastFetcher retrieves a forecast snapshot for a coordinate.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, coord geo.Coordinate) (*Snapshot, error)
}

// Client talks to the weather and geocoding gateway. It implements
// Searcher, ReverseGeocoder, and ForecastFetcher.
type Client struct {
	http *resty.Client
}

// NewClient creates a gateway client. An empty baseURL selects the default
// local gateway address.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second)
	return &Client{http: httpClient}
}

// NewClientWithHTTPClient creates a gateway client on top of a custom
// *http.Client.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: resty.NewWithClient(httpClient).SetBaseURL(baseURL)}
}

// SetBaseURL changes the gateway address (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.http.SetBaseURL(baseURL)
}

// Search queries the place-name endpoint. Queries shorter than
// MinQueryLength after trimming return an empty list without touching the
// network. Results preserve the gateway's ordering.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("city", query).
		Get("/api/geocode")
	if err != nil {
		return nil, &NetworkError{Operation: "place search", Err: err}
	}

	return decodePlaces(resp, "place search")
}

// ReverseLookup resolves a coordinate to a place. It returns nil without
// an error when the gateway has no match.
func (c *Client) ReverseLookup(ctx context.Context, coord geo.Coordinate) (*Place, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat": formatFloat(coord.Latitude),
			"lon": formatFloat(coord.Longitude),
		}).
		Get("/api/reverse-geocode")
	if err != nil {
		return nil, &NetworkError{Operation: "reverse geocode", Err: err}
	}

	places, err := decodePlaces(resp, "reverse geocode")
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, nil
	}

	place := places[0]
	return &place, nil
}

// FetchForecast retrieves the forecast snapshot for a coordinate.
func (c *Client) FetchForecast(ctx context.Context, coord geo.Coordinate) (*Snapshot, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat": formatFloat(coord.Latitude),
			"lon": formatFloat(coord.Longitude),
		}).
		Get("/api/weather")
	if err != nil {
		return nil, &NetworkError{Operation: "forecast fetch", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    string(resp.Body()),
		}
	}

	var snapshot Snapshot
	if err := json.Unmarshal(resp.Body(), &snapshot); err != nil {
		return nil, &ParseError{Operation: "decode forecast", Err: err}
	}
	if err := snapshot.Validate(); err != nil {
		return nil, &ParseError{Operation: "validate forecast", Err: err}
	}

	return &snapshot, nil
}

// decodePlaces unwraps the {results: [...]} envelope shared by both
// geocoding endpoints.
func decodePlaces(resp *resty.Response, operation string) ([]Place, error) {
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    string(resp.Body()),
		}
	}

	var payload placesResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, &ParseError{Operation: operation, Err: err}
	}
	return payload.Results, nil
}

// formatFloat formats a float64 to a string with appropriate precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
