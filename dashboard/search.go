package dashboard

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// handleQueryChanged applies a search box edit: the debounce timer
// restarts, short queries clear the candidate list immediately, and a
// query superseding an in-flight search drops that search's candidates.
func (s *Store) handleQueryChanged(ev queryChangedEvent) {
	s.query = ev.query

	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}

	if s.searching {
		// The in-flight search belongs to an older query. Its result
		// will be discarded on arrival.
		s.candidates = nil
		s.searching = false
	}

	if utf8.RuneCountInString(strings.TrimSpace(ev.query)) < s.config.SearchMinChars {
		s.candidates = nil
		s.publish()
		return
	}

	query := ev.query
	s.debounce = time.AfterFunc(s.config.SearchDebounce, func() {
		s.post(debounceFiredEvent{query: query})
	})

	s.publish()
}

// handleDebounceFired runs after the quiet period. The search only goes
// out if the query that armed the timer is still the live one.
func (s *Store) handleDebounceFired(ev debounceFiredEvent) {
	if ev.query != s.query {
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(ev.query)) < s.config.SearchMinChars {
		return
	}

	s.searching = true
	s.publish()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.APITimeout)
		defer cancel()

		places, err := s.searcher.Search(ctx, ev.query)
		s.post(searchResultEvent{query: ev.query, places: places, err: err})
	}()
}

// handleSearchResult applies a geocoding response, unless the query has
// moved on since the call was issued.
func (s *Store) handleSearchResult(ev searchResultEvent) {
	if ev.query != s.query {
		s.logger.Printf("Discarding stale search result for %q", ev.query)
		return
	}

	s.searching = false

	if ev.err != nil {
		// Search failures degrade to an empty list, never an error
		// banner.
		s.logger.Printf("City search failed: %v", ev.err)
		s.candidates = nil
		s.publish()
		return
	}

	s.candidates = ev.places
	s.publish()
}

// handleCandidateSelected locks in one search result: the place label is
// set, the search box resets and a forecast fetch starts.
func (s *Store) handleCandidateSelected(ev candidateSelectedEvent) {
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}

	s.placeLabel = ev.place.Label()
	s.query = ""
	s.candidates = nil
	s.searching = false
	s.awaitingLookup = false

	s.startFetch(ev.place.Coordinate())
}
