package dashboard

import (
	"context"

	"github.com/stratusdeck/stratusdeck/geo"
	"github.com/stratusdeck/stratusdeck/timefmt"
)

const (
	// currentLocationLabel is shown while (or after) reverse geocoding
	// could not name the device position.
	currentLocationLabel = "Current Location"

	forecastErrorMessage = "Failed to load weather data. Please try again."
	locationErrorMessage = "Unable to determine your location. Search for a city to get started."
)

// startLocate kicks off the location flow: resolve a coordinate, fetch
// its forecast and name it via reverse geocoding.
func (s *Store) startLocate() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.APITimeout)
		defer cancel()

		coord, err := s.locator.Locate(ctx)
		s.post(locateResultEvent{coord: coord, err: err})
	}()
}

// handleLocateResult applies the located coordinate. A failed lookup
// surfaces an actionable message and does not fetch anything.
func (s *Store) handleLocateResult(ev locateResultEvent) {
	if ev.err != nil {
		s.logger.Printf("Location lookup failed: %v", ev.err)
		s.errorMessage = locationErrorMessage
		s.loading = false
		s.publish()
		return
	}

	s.logger.Printf("Located at %s", ev.coord)
	s.placeLabel = currentLocationLabel
	s.startFetch(ev.coord)
	s.startReverseLookup(ev.coord)
}

// startReverseLookup resolves a display name for the coordinate in the
// background. The forecast fetch never waits for it.
func (s *Store) startReverseLookup(coord geo.Coordinate) {
	s.reverseSeq++
	s.awaitingLookup = true
	seq := s.reverseSeq

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.APITimeout)
		defer cancel()

		place, err := s.reverser.ReverseLookup(ctx, coord)
		s.post(reverseResultEvent{seq: seq, place: place, err: err})
	}()
}

// handleReverseResult upgrades the generic location label to a proper
// place name. Failures and empty results keep the fallback label and
// never surface an error.
func (s *Store) handleReverseResult(ev reverseResultEvent) {
	if !s.awaitingLookup || ev.seq != s.reverseSeq {
		return
	}
	s.awaitingLookup = false

	if ev.err != nil {
		s.logger.Printf("Reverse geocoding failed: %v", ev.err)
		return
	}
	if ev.place == nil {
		return
	}

	s.placeLabel = ev.place.Label()
	s.publish()
}

// startFetch issues a forecast request for the coordinate. Each request
// carries a sequence number; only the latest issued request may apply
// its result.
func (s *Store) startFetch(coord geo.Coordinate) {
	s.fetchSeq++
	seq := s.fetchSeq
	s.lastCoord = &coord
	s.loading = true
	s.errorMessage = ""
	s.publish()

	s.logger.Printf("Fetching forecast for %s (request %d)", coord, seq)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.APITimeout)
		defer cancel()

		snapshot, err := s.fetcher.FetchForecast(ctx, coord)
		s.post(forecastResultEvent{seq: seq, snapshot: snapshot, err: err})
	}()
}

// handleForecastResult applies a forecast response. Stale responses are
// discarded. A failure shows an error banner but keeps the previously
// displayed forecast on screen.
func (s *Store) handleForecastResult(ev forecastResultEvent) {
	if ev.seq != s.fetchSeq {
		s.logger.Printf("Discarding stale forecast result (request %d, latest %d)", ev.seq, s.fetchSeq)
		return
	}

	s.loading = false

	if ev.err != nil {
		s.logger.Printf("Forecast fetch failed: %v", ev.err)
		s.errorMessage = forecastErrorMessage
		s.publish()
		return
	}

	s.snapshot = ev.snapshot
	s.forecast = buildForecastView(ev.snapshot, s.clock())
	s.errorMessage = ""
	s.publish()

	if s.history != nil {
		label := s.placeLabel
		snapshot := ev.snapshot
		go func() {
			if err := s.history.SaveSnapshot(context.Background(), label, snapshot); err != nil {
				s.logger.Printf("Failed to record forecast history: %v", err)
			}
		}()
	}
}

// handleRefresh refetches the forecast for the last requested
// coordinate, if there is one.
func (s *Store) handleRefresh() {
	if s.lastCoord == nil {
		return
	}
	s.startFetch(*s.lastCoord)
}

// handleClockTick refreshes the header clock from the wall clock.
func (s *Store) handleClockTick() {
	s.clockLabel = s.clock().Format(timefmt.ClockLayout)
	s.publish()
}
