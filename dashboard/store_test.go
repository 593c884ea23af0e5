package dashboard

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stratusdeck/stratusdeck/conditions"
	"github.com/stratusdeck/stratusdeck/geo"
	"github.com/stratusdeck/stratusdeck/locate"
	"github.com/stratusdeck/stratusdeck/weatherapi"
)

const viewWaitTimeout = 2 * time.Second

var (
	londonPlace = weatherapi.Place{ID: 2643743, Name: "London", Latitude: 51.5074, Longitude: -0.1278, Country: "United Kingdom", Admin1: "England"}
	rigaPlace   = weatherapi.Place{ID: 456173, Name: "Riga", Latitude: 56.946, Longitude: 24.1059, Country: "Latvia"}
	parisPlace  = weatherapi.Place{ID: 2988507, Name: "Paris", Latitude: 48.8534, Longitude: 2.3488, Country: "France"}
	berlinPlace = weatherapi.Place{ID: 2950159, Name: "Berlin", Latitude: 52.5244, Longitude: 13.4105, Country: "Germany"}
)

type stubLocator struct {
	mu    sync.Mutex
	coord geo.Coordinate
	err   error
}

func (l *stubLocator) Locate(ctx context.Context) (geo.Coordinate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coord, l.err
}

func (l *stubLocator) set(coord geo.Coordinate, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.coord = coord
	l.err = err
}

type stubSearcher struct {
	mu    sync.Mutex
	calls []string
	fn    func(query string) ([]weatherapi.Place, error)
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]weatherapi.Place, error) {
	s.mu.Lock()
	s.calls = append(s.calls, query)
	fn := s.fn
	s.mu.Unlock()

	if fn != nil {
		return fn(query)
	}
	return nil, nil
}

func (s *stubSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubSearcher) allCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type stubReverser struct {
	mu    sync.Mutex
	place *weatherapi.Place
	err   error
	delay time.Duration
}

func (r *stubReverser) ReverseLookup(ctx context.Context, coord geo.Coordinate) (*weatherapi.Place, error) {
	r.mu.Lock()
	place := r.place
	err := r.err
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return place, err
}

type stubFetcher struct {
	mu    sync.Mutex
	calls []geo.Coordinate
	fn    func(call int, coord geo.Coordinate) (*weatherapi.Snapshot, error)
}

func (f *stubFetcher) FetchForecast(ctx context.Context, coord geo.Coordinate) (*weatherapi.Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, coord)
	call := len(f.calls)
	fn := f.fn
	f.mu.Unlock()

	if fn != nil {
		return fn(call, coord)
	}
	return testSnapshot(0), nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *stubFetcher) lastCall() geo.Coordinate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return geo.Coordinate{}
	}
	return f.calls[len(f.calls)-1]
}

type stubHistory struct {
	mu     sync.Mutex
	labels []string
}

func (h *stubHistory) SaveSnapshot(ctx context.Context, label string, snapshot *weatherapi.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.labels = append(h.labels, label)
	return nil
}

func (h *stubHistory) saveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.labels)
}

func testSnapshot(code int) *weatherapi.Snapshot {
	return &weatherapi.Snapshot{
		Latitude:     51.5074,
		Longitude:    -0.1278,
		Timezone:     "UTC",
		TimezoneAbbr: "UTC",
		Current: weatherapi.Current{
			Time:          "2026-01-15T12:00",
			Temperature:   8.4,
			Humidity:      81,
			WeatherCode:   code,
			WindSpeed:     14.2,
			WindDirection: 200,
		},
		Hourly: weatherapi.Hourly{
			Time:          []string{"2026-01-15T13:00", "2026-01-15T14:00"},
			Temperature:   []float64{8.9, 9.1},
			Humidity:      []int{80, 78},
			WeatherCode:   []int{code, code},
			WindSpeed:     []float64{13.0, 12.5},
			WindDirection: []float64{195, 205},
		},
		Daily: weatherapi.Daily{
			Time:             []string{"2026-01-15", "2026-01-16"},
			WeatherCode:      []int{code, code},
			TemperatureMax:   []float64{9.5, 10.2},
			TemperatureMin:   []float64{3.1, 4.0},
			PrecipitationSum: []float64{2.4, 0.0},
			WindSpeedMax:     []float64{18.0, 15.5},
		},
	}
}

type storeHarness struct {
	store    *Store
	locator  *stubLocator
	searcher *stubSearcher
	reverser *stubReverser
	fetcher  *stubFetcher
}

func newStoreHarness(t *testing.T) *storeHarness {
	t.Helper()

	config := DefaultConfig()
	config.SearchDebounce = 50 * time.Millisecond
	config.ClockInterval = time.Hour
	config.APITimeout = 2 * time.Second

	h := &storeHarness{
		locator:  &stubLocator{err: locate.ErrUnavailable},
		searcher: &stubSearcher{},
		reverser: &stubReverser{},
		fetcher:  &stubFetcher{},
	}

	logger := log.New(io.Discard, "", 0)
	h.store = New(config, h.searcher, h.reverser, h.fetcher, h.locator, logger)
	return h
}

func (h *storeHarness) start(t *testing.T) {
	t.Helper()
	if err := h.store.Start(); err != nil {
		t.Fatalf("failed to start store: %v", err)
	}
	t.Cleanup(h.store.Stop)
}

func waitForView(t *testing.T, store *Store, cond func(View) bool) View {
	t.Helper()
	deadline := time.Now().Add(viewWaitTimeout)
	for time.Now().Before(deadline) {
		view := store.GetView()
		if cond(view) {
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for view condition, last view: %+v", store.GetView())
	return View{}
}

func waitFor(t *testing.T, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(viewWaitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(message)
}

// TestStoreStartupFlow covers the happy path: locate, fetch, reverse
// geocode, render.
func TestStoreStartupFlow(t *testing.T) {
	h := newStoreHarness(t)
	located := geo.Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	h.locator.set(located, nil)
	h.reverser.place = &londonPlace
	h.fetcher.fn = func(call int, coord geo.Coordinate) (*weatherapi.Snapshot, error) {
		return testSnapshot(61), nil
	}
	h.start(t)

	view := waitForView(t, h.store, func(v View) bool {
		return v.Forecast != nil && v.PlaceLabel == "London, England, United Kingdom"
	})

	if view.Request.Loading {
		t.Error("expected loading to be cleared after the fetch settled")
	}
	if view.Request.Error != "" {
		t.Errorf("expected no error, got %q", view.Request.Error)
	}

	current := view.Forecast.Current
	if current.Description != "Light rain" {
		t.Errorf("expected description 'Light rain', got %q", current.Description)
	}
	if current.Icon != conditions.IconRain {
		t.Errorf("expected icon %q, got %q", conditions.IconRain, current.Icon)
	}
	if current.Background != conditions.BackgroundRain {
		t.Errorf("expected background %q, got %q", conditions.BackgroundRain, current.Background)
	}
	if current.WindDirection != "SSW" {
		t.Errorf("expected wind direction SSW for 200 degrees, got %q", current.WindDirection)
	}

	if got := h.fetcher.lastCall(); got != located {
		t.Errorf("expected fetch for %s, got %s", located, got)
	}
}

// TestStoreLocateFailure verifies a failed location lookup surfaces an
// actionable message and never touches the forecast endpoint.
func TestStoreLocateFailure(t *testing.T) {
	h := newStoreHarness(t)
	h.locator.set(geo.Coordinate{}, errors.New("permission denied"))
	h.start(t)

	view := waitForView(t, h.store, func(v View) bool { return v.Request.Error != "" })

	if view.Request.Error != locationErrorMessage {
		t.Errorf("expected location error message, got %q", view.Request.Error)
	}
	if view.Forecast != nil {
		t.Error("expected no forecast after a failed location lookup")
	}
	if view.Request.Loading {
		t.Error("expected loading to stay cleared")
	}

	time.Sleep(50 * time.Millisecond)
	if count := h.fetcher.callCount(); count != 0 {
		t.Errorf("expected no forecast fetches, got %d", count)
	}
}

// TestStoreReverseLookupFallback verifies empty and failed reverse
// lookups keep the generic label without raising an error.
func TestStoreReverseLookupFallback(t *testing.T) {
	tests := []struct {
		name  string
		place *weatherapi.Place
		err   error
	}{
		{"no match", nil, nil},
		{"lookup error", nil, errors.New("gateway down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newStoreHarness(t)
			h.locator.set(geo.Coordinate{Latitude: 56.946, Longitude: 24.1059}, nil)
			h.reverser.place = tt.place
			h.reverser.err = tt.err
			h.start(t)

			view := waitForView(t, h.store, func(v View) bool { return v.Forecast != nil })

			if view.PlaceLabel != currentLocationLabel {
				t.Errorf("expected label %q, got %q", currentLocationLabel, view.PlaceLabel)
			}
			if view.Request.Error != "" {
				t.Errorf("reverse lookup problems must stay silent, got error %q", view.Request.Error)
			}
		})
	}
}

// TestStoreReverseLookupNamesPlace verifies a successful reverse lookup
// upgrades the generic label.
func TestStoreReverseLookupNamesPlace(t *testing.T) {
	h := newStoreHarness(t)
	h.locator.set(geo.Coordinate{Latitude: 56.946, Longitude: 24.1059}, nil)
	h.reverser.place = &rigaPlace
	h.start(t)

	waitForView(t, h.store, func(v View) bool { return v.PlaceLabel == "Riga, Latvia" })
}

// TestStoreSelectionOutlivesLateReverseLookup verifies a slow reverse
// geocode cannot overwrite a city the user picked in the meantime.
func TestStoreSelectionOutlivesLateReverseLookup(t *testing.T) {
	h := newStoreHarness(t)
	h.locator.set(geo.Coordinate{Latitude: 56.946, Longitude: 24.1059}, nil)
	h.reverser.place = &rigaPlace
	h.reverser.delay = 150 * time.Millisecond
	h.start(t)

	waitForView(t, h.store, func(v View) bool { return v.PlaceLabel == currentLocationLabel })
	h.store.SelectCandidate(londonPlace)

	waitForView(t, h.store, func(v View) bool {
		return v.PlaceLabel == "London, England, United Kingdom"
	})

	time.Sleep(250 * time.Millisecond)
	if got := h.store.GetView().PlaceLabel; got != "London, England, United Kingdom" {
		t.Errorf("late reverse lookup overwrote the selection: %q", got)
	}
}

// TestStoreSearchDebounce verifies rapid edits coalesce into a single
// search for the final query.
func TestStoreSearchDebounce(t *testing.T) {
	h := newStoreHarness(t)
	h.searcher.fn = func(query string) ([]weatherapi.Place, error) {
		return []weatherapi.Place{londonPlace}, nil
	}
	h.start(t)

	h.store.UpdateQuery("L")
	h.store.UpdateQuery("Lo")
	h.store.UpdateQuery("Lon")
	h.store.UpdateQuery("Lond")

	view := waitForView(t, h.store, func(v View) bool { return len(v.Search.Candidates) == 1 })

	if calls := h.searcher.allCalls(); len(calls) != 1 || calls[0] != "Lond" {
		t.Errorf("expected exactly one search for 'Lond', got %v", calls)
	}
	if view.Search.Query != "Lond" {
		t.Errorf("expected query 'Lond', got %q", view.Search.Query)
	}
	if view.Search.Searching {
		t.Error("expected searching flag to be cleared")
	}
}

// TestStoreShortQueryClearsCandidates verifies a query under the
// minimum length clears the list immediately and skips the network.
func TestStoreShortQueryClearsCandidates(t *testing.T) {
	h := newStoreHarness(t)
	h.searcher.fn = func(query string) ([]weatherapi.Place, error) {
		return []weatherapi.Place{rigaPlace}, nil
	}
	h.start(t)

	h.store.UpdateQuery("Riga")
	waitForView(t, h.store, func(v View) bool { return len(v.Search.Candidates) == 1 })

	h.store.UpdateQuery("R")
	view := waitForView(t, h.store, func(v View) bool { return v.Search.Query == "R" })

	if len(view.Search.Candidates) != 0 {
		t.Errorf("expected candidates to clear for a short query, got %d", len(view.Search.Candidates))
	}

	time.Sleep(150 * time.Millisecond)
	if count := h.searcher.callCount(); count != 1 {
		t.Errorf("expected no additional search calls, got %d total", count)
	}
}

// TestStoreTinyQueriesNeverSearch verifies length 0 and 1 queries never
// reach the searcher.
func TestStoreTinyQueriesNeverSearch(t *testing.T) {
	h := newStoreHarness(t)
	h.start(t)

	h.store.UpdateQuery("")
	h.store.UpdateQuery("a")
	h.store.UpdateQuery(" a ")

	time.Sleep(200 * time.Millisecond)
	if count := h.searcher.callCount(); count != 0 {
		t.Errorf("expected no search calls for tiny queries, got %d", count)
	}
}

// TestStoreStaleSearchResultDiscarded verifies a slow search response
// for an old query cannot replace results for the current one.
func TestStoreStaleSearchResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	h := newStoreHarness(t)
	h.searcher.fn = func(query string) ([]weatherapi.Place, error) {
		if query == "Paris" {
			<-release
			return []weatherapi.Place{parisPlace}, nil
		}
		return []weatherapi.Place{berlinPlace}, nil
	}
	h.start(t)

	h.store.UpdateQuery("Paris")
	waitFor(t, func() bool { return h.searcher.callCount() == 1 }, "Paris search never started")

	h.store.UpdateQuery("Berlin")
	waitForView(t, h.store, func(v View) bool {
		return len(v.Search.Candidates) == 1 && v.Search.Candidates[0].Name == "Berlin"
	})

	close(release)
	time.Sleep(100 * time.Millisecond)

	candidates := h.store.GetView().Search.Candidates
	if len(candidates) != 1 || candidates[0].Name != "Berlin" {
		t.Errorf("stale Paris result replaced Berlin candidates: %+v", candidates)
	}
}

// TestStoreSelectCandidate verifies selection clears the search box and
// fetches the place's forecast.
func TestStoreSelectCandidate(t *testing.T) {
	h := newStoreHarness(t)
	h.searcher.fn = func(query string) ([]weatherapi.Place, error) {
		return []weatherapi.Place{londonPlace}, nil
	}
	h.fetcher.fn = func(call int, coord geo.Coordinate) (*weatherapi.Snapshot, error) {
		return testSnapshot(2), nil
	}
	h.start(t)

	h.store.UpdateQuery("Lond")
	waitForView(t, h.store, func(v View) bool { return len(v.Search.Candidates) == 1 })

	h.store.SelectCandidate(londonPlace)
	view := waitForView(t, h.store, func(v View) bool { return v.Forecast != nil })

	if view.PlaceLabel != "London, England, United Kingdom" {
		t.Errorf("expected label from the selected place, got %q", view.PlaceLabel)
	}
	if view.Search.Query != "" {
		t.Errorf("expected query to clear on selection, got %q", view.Search.Query)
	}
	if len(view.Search.Candidates) != 0 {
		t.Errorf("expected candidates to clear on selection, got %d", len(view.Search.Candidates))
	}

	want := geo.Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	if got := h.fetcher.lastCall(); got != want {
		t.Errorf("expected fetch for %s, got %s", want, got)
	}
}

// TestStoreLatestForecastWins verifies an earlier request resolving
// late cannot overwrite the latest one.
func TestStoreLatestForecastWins(t *testing.T) {
	release := make(chan struct{})
	h := newStoreHarness(t)
	h.fetcher.fn = func(call int, coord geo.Coordinate) (*weatherapi.Snapshot, error) {
		if call == 1 {
			<-release
			return testSnapshot(3), nil // overcast
		}
		return testSnapshot(0), nil // clear sky
	}
	h.start(t)

	h.store.SelectCandidate(londonPlace)
	waitFor(t, func() bool { return h.fetcher.callCount() == 1 }, "first fetch never started")

	h.store.SelectCandidate(rigaPlace)
	waitForView(t, h.store, func(v View) bool {
		return v.Forecast != nil && v.Forecast.Current.Description == "Clear sky"
	})

	close(release)
	time.Sleep(100 * time.Millisecond)

	view := h.store.GetView()
	if view.Forecast.Current.Description != "Clear sky" {
		t.Errorf("stale forecast overwrote the latest result: %q", view.Forecast.Current.Description)
	}
	if view.Request.Loading {
		t.Error("expected loading to be cleared")
	}
}

// TestStoreForecastErrorKeepsPreviousForecast verifies a failed fetch
// shows an error without wiping the displayed forecast, and that a
// successful retry clears the error.
func TestStoreForecastErrorKeepsPreviousForecast(t *testing.T) {
	h := newStoreHarness(t)
	h.fetcher.fn = func(call int, coord geo.Coordinate) (*weatherapi.Snapshot, error) {
		switch call {
		case 1:
			return testSnapshot(2), nil
		case 2:
			return nil, &weatherapi.APIError{StatusCode: 500, Message: "upstream down"}
		default:
			return testSnapshot(0), nil
		}
	}
	h.start(t)

	h.store.SelectCandidate(londonPlace)
	waitForView(t, h.store, func(v View) bool {
		return v.Forecast != nil && v.Forecast.Current.Description == "Partly cloudy"
	})

	h.store.Refresh()
	view := waitForView(t, h.store, func(v View) bool { return v.Request.Error != "" })

	if view.Request.Error != forecastErrorMessage {
		t.Errorf("expected forecast error message, got %q", view.Request.Error)
	}
	if view.Request.Loading {
		t.Error("expected loading to be cleared after the failure")
	}
	if view.Forecast == nil || view.Forecast.Current.Description != "Partly cloudy" {
		t.Error("expected the previously displayed forecast to survive the failure")
	}

	h.store.Refresh()
	view = waitForView(t, h.store, func(v View) bool {
		return v.Request.Error == "" && v.Forecast != nil && v.Forecast.Current.Description == "Clear sky"
	})

	if view.Request.Loading {
		t.Error("expected loading to be cleared after the retry")
	}
}

// TestStoreRefreshLocationRecovers verifies the location flow can be
// rerun after an initial failure.
func TestStoreRefreshLocationRecovers(t *testing.T) {
	h := newStoreHarness(t)
	h.locator.set(geo.Coordinate{}, errors.New("no signal"))
	h.start(t)

	waitForView(t, h.store, func(v View) bool { return v.Request.Error == locationErrorMessage })

	h.locator.set(geo.Coordinate{Latitude: 56.946, Longitude: 24.1059}, nil)
	h.store.RefreshLocation()

	view := waitForView(t, h.store, func(v View) bool { return v.Forecast != nil })
	if view.Request.Error != "" {
		t.Errorf("expected error to clear after recovery, got %q", view.Request.Error)
	}
}

// TestStoreClockLabel verifies the header clock formats the wall clock.
func TestStoreClockLabel(t *testing.T) {
	h := newStoreHarness(t)
	fixed := time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC)
	h.store.clock = func() time.Time { return fixed }
	h.start(t)

	view := waitForView(t, h.store, func(v View) bool { return v.Clock != "" })
	if view.Clock != "3:30 PM" {
		t.Errorf("expected clock '3:30 PM', got %q", view.Clock)
	}
}

// TestStoreHistoryRecording verifies successful fetches reach the
// history recorder.
func TestStoreHistoryRecording(t *testing.T) {
	h := newStoreHarness(t)
	history := &stubHistory{}
	h.store.SetHistory(history)
	h.locator.set(geo.Coordinate{Latitude: 56.946, Longitude: 24.1059}, nil)
	h.start(t)

	waitForView(t, h.store, func(v View) bool { return v.Forecast != nil })
	waitFor(t, func() bool { return history.saveCount() == 1 }, "forecast was never recorded")
}

// TestStoreStartStop verifies lifecycle management.
func TestStoreStartStop(t *testing.T) {
	h := newStoreHarness(t)

	if h.store.IsRunning() {
		t.Error("expected store to start stopped")
	}

	h.start(t)
	if !h.store.IsRunning() {
		t.Error("expected store to be running after Start")
	}

	if err := h.store.Start(); err == nil {
		t.Error("expected error when starting twice")
	}

	status := h.store.GetStatus()
	if running, ok := status["running"].(bool); !ok || !running {
		t.Errorf("expected status running=true, got %v", status["running"])
	}

	h.store.Stop()
	if h.store.IsRunning() {
		t.Error("expected store to stop")
	}

	// A second stop must be harmless.
	h.store.Stop()
}

// TestStoreSubscribe verifies subscribers receive published views.
func TestStoreSubscribe(t *testing.T) {
	h := newStoreHarness(t)
	h.locator.set(geo.Coordinate{Latitude: 56.946, Longitude: 24.1059}, nil)

	views, cancel := h.store.Subscribe()
	defer cancel()

	h.start(t)

	deadline := time.After(viewWaitTimeout)
	for {
		select {
		case view, ok := <-views:
			if !ok {
				t.Fatal("subscription channel closed unexpectedly")
			}
			if view.Forecast != nil {
				if view.Generation == 0 {
					t.Error("expected a nonzero view generation")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for a forecast view on the subscription")
		}
	}
}
