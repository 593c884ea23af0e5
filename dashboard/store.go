// Package dashboard drives the weather board. A single Store goroutine
// owns all view state and serializes every mutation: user input, timer
// ticks and network results arrive as events, are applied in order, and
// each application publishes a fresh render model to subscribers.
package dashboard

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/stratusdeck/stratusdeck/geo"
	"github.com/stratusdeck/stratusdeck/locate"
	"github.com/stratusdeck/stratusdeck/weatherapi"
)

// event is a state transition applied on the store goroutine.
type event interface{}

type queryChangedEvent struct {
	query string
}

type debounceFiredEvent struct {
	query string
}

type searchResultEvent struct {
	query  string
	places []weatherapi.Place
	err    error
}

type candidateSelectedEvent struct {
	place weatherapi.Place
}

type locateResultEvent struct {
	coord geo.Coordinate
	err   error
}

type reverseResultEvent struct {
	seq   uint64
	place *weatherapi.Place
	err   error
}

type forecastResultEvent struct {
	seq      uint64
	snapshot *weatherapi.Snapshot
	err      error
}

type clockTickEvent struct{}

type refreshEvent struct{}

type refreshLocationEvent struct{}

// Store coordinates geocoding, location lookup and forecast fetches and
// exposes the resulting view to subscribers.
type Store struct {
	config   *Config
	searcher weatherapi.Searcher
	reverser weatherapi.ReverseGeocoder
	fetcher  weatherapi.ForecastFetcher
	locator  locate.Provider
	history  HistoryRecorder
	logger   *log.Logger
	clock    func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	events   chan event

	subMu       sync.Mutex
	subscribers map[chan View]struct{}

	viewMu   sync.RWMutex
	lastView View

	// Loop-owned state. Touched only by the run goroutine.
	query          string
	candidates     []weatherapi.Place
	searching      bool
	debounce       *time.Timer
	placeLabel     string
	snapshot       *weatherapi.Snapshot
	forecast       *ForecastView
	lastCoord      *geo.Coordinate
	loading        bool
	errorMessage   string
	clockLabel     string
	fetchSeq       uint64
	reverseSeq     uint64
	awaitingLookup bool
	generation     uint64
}

// New creates a dashboard store. The searcher, reverser and fetcher are
// usually one weatherapi.Client, split so the search path can carry a
// rate limiter.
func New(config *Config, searcher weatherapi.Searcher, reverser weatherapi.ReverseGeocoder, fetcher weatherapi.ForecastFetcher, locator locate.Provider, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stdout, "[DASHBOARD] ", log.LstdFlags)
	}

	return &Store{
		config:      config,
		searcher:    searcher,
		reverser:    reverser,
		fetcher:     fetcher,
		locator:     locator,
		logger:      logger,
		clock:       time.Now,
		events:      make(chan event, 64),
		subscribers: make(map[chan View]struct{}),
	}
}

// SetHistory attaches an optional forecast history recorder. Must be
// called before Start.
func (s *Store) SetHistory(history HistoryRecorder) {
	s.history = history
}

// Start launches the store goroutine, begins the clock ticker and kicks
// off the startup location flow.
func (s *Store) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("store is already running")
	}

	s.running = true
	s.stopChan = make(chan struct{})

	go s.run()

	s.logger.Println("Dashboard store started")
	return nil
}

// Stop halts the store goroutine.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopChan)
	s.running = false

	s.logger.Println("Dashboard store stopped")
}

// IsRunning returns whether the store goroutine is active.
func (s *Store) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// UpdateQuery feeds a search box edit into the store.
func (s *Store) UpdateQuery(text string) {
	s.post(queryChangedEvent{query: text})
}

// SelectCandidate picks one search result: the candidate list and query
// clear and a forecast fetch for the place starts.
func (s *Store) SelectCandidate(place weatherapi.Place) {
	s.post(candidateSelectedEvent{place: place})
}

// Refresh refetches the forecast for the current coordinate.
func (s *Store) Refresh() {
	s.post(refreshEvent{})
}

// RefreshLocation reruns the startup location flow.
func (s *Store) RefreshLocation() {
	s.post(refreshLocationEvent{})
}

// GetView returns the most recently published view.
func (s *Store) GetView() View {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.lastView
}

// GetStatus returns the current store status.
func (s *Store) GetStatus() map[string]interface{} {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	view := s.GetView()
	status := map[string]interface{}{
		"running":      running,
		"generation":   view.Generation,
		"place":        view.PlaceLabel,
		"loading":      view.Request.Loading,
		"has_forecast": view.Forecast != nil,
	}
	if view.Request.Error != "" {
		status["error"] = view.Request.Error
	}
	return status
}

// Subscribe registers a view channel. Every published view is offered to
// the channel; slow subscribers miss intermediate views rather than
// block the store. The returned function cancels the subscription and
// closes the channel.
func (s *Store) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// post hands an event to the store goroutine. Events posted after Stop
// are dropped.
func (s *Store) post(ev event) {
	s.mu.Lock()
	stopChan := s.stopChan
	running := s.running
	s.mu.Unlock()

	if !running {
		return
	}

	select {
	case s.events <- ev:
	case <-stopChan:
	}
}

// run is the store main loop.
func (s *Store) run() {
	ticker := time.NewTicker(s.config.ClockInterval)
	defer ticker.Stop()

	s.handleClockTick()
	s.startLocate()

	for {
		select {
		case <-s.stopChan:
			if s.debounce != nil {
				s.debounce.Stop()
			}
			return
		case <-ticker.C:
			s.apply(clockTickEvent{})
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

// apply dispatches one event. Runs on the store goroutine only.
func (s *Store) apply(ev event) {
	switch ev := ev.(type) {
	case queryChangedEvent:
		s.handleQueryChanged(ev)
	case debounceFiredEvent:
		s.handleDebounceFired(ev)
	case searchResultEvent:
		s.handleSearchResult(ev)
	case candidateSelectedEvent:
		s.handleCandidateSelected(ev)
	case locateResultEvent:
		s.handleLocateResult(ev)
	case reverseResultEvent:
		s.handleReverseResult(ev)
	case forecastResultEvent:
		s.handleForecastResult(ev)
	case clockTickEvent:
		s.handleClockTick()
	case refreshEvent:
		s.handleRefresh()
	case refreshLocationEvent:
		s.startLocate()
	default:
		s.logger.Printf("Unknown event type: %T", ev)
	}
}

// publish snapshots the loop state into a View and fans it out.
func (s *Store) publish() {
	s.generation++
	view := s.buildView()

	s.viewMu.Lock()
	s.lastView = view
	s.viewMu.Unlock()

	s.subMu.Lock()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
		}
	}
	s.subMu.Unlock()
}

func (s *Store) buildView() View {
	var candidates []weatherapi.Place
	if len(s.candidates) > 0 {
		candidates = make([]weatherapi.Place, len(s.candidates))
		copy(candidates, s.candidates)
	}

	return View{
		Generation: s.generation,
		Clock:      s.clockLabel,
		PlaceLabel: s.placeLabel,
		Request:    RequestState{Loading: s.loading, Error: s.errorMessage},
		Search:     SearchState{Query: s.query, Candidates: candidates, Searching: s.searching},
		Forecast:   s.forecast,
	}
}
