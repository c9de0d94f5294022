package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-proxy/internal/weather"
)

// DefaultWindow is how long a reading stays in a city's window.
const DefaultWindow = 24 * time.Hour

// cityState is everything the store knows about one city. mu covers the
// whole append, prune, summarize and alert step.
type cityState struct {
	mu       sync.Mutex
	name     string // owned copy of the city key
	readings []weather.Reading
	summary  *weather.Summary
	alerts   []string
	evicted  bool // removed from the map; writers must look the city up again
}

// MemoryStore is a concurrency-safe in-memory rolling window of readings per
// city, with a summary recomputed on every change.
type MemoryStore struct {
	mu sync.RWMutex

	// key: city as given by the caller
	cities map[string]*cityState

	clock clockwork.Clock

	// retention configuration
	window     time.Duration // readings at or beyond this age are pruned
	maxHistory int           // max readings per city (0 = unlimited)
}

// NewMemoryStore creates a MemoryStore. A nil clock uses the real clock, a
// non-positive window uses DefaultWindow and maxHistory <= 0 is unlimited.
func NewMemoryStore(clock clockwork.Clock, window time.Duration, maxHistory int) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		cities:     make(map[string]*cityState),
		clock:      clock,
		window:     window,
		maxHistory: maxHistory,
	}
}

// AddReading records a validated upstream payload for city and returns the
// alerts it triggers. The alerts replace whatever the city held before.
func (s *MemoryStore) AddReading(city string, p weather.Payload) []string {
	state := s.lockCity(city)
	defer state.mu.Unlock()

	now := s.clock.Now()
	state.readings = append(state.readings, weather.NewReading(p, now))
	s.pruneAndSummarize(state, now)

	state.alerts = weather.CheckAlerts(p.TemperatureC(), p.Condition(), p.WindSpeed())
	return copyAlerts(state.alerts)
}

// GetSummary returns the last computed summary for city.
func (s *MemoryStore) GetSummary(city string) (weather.Summary, bool) {
	state := s.get(city)
	if state == nil {
		return weather.Summary{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.summary == nil {
		return weather.Summary{}, false
	}
	return *state.summary, true
}

// GetAlerts returns the alerts of the most recent reading for city, or an
// empty slice.
func (s *MemoryStore) GetAlerts(city string) []string {
	state := s.get(city)
	if state == nil {
		return []string{}
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	return copyAlerts(state.alerts)
}

// GetAllSummaries returns one summary per city that has one, sorted by city.
func (s *MemoryStore) GetAllSummaries() []weather.Summary {
	summaries := []weather.Summary{}
	for _, city := range s.Cities() {
		if summary, ok := s.GetSummary(city); ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries
}

// RefreshSummary prunes city's window against the current time and
// recomputes its summary. It reports false when nothing is left, in which
// case the summary has been cleared.
func (s *MemoryStore) RefreshSummary(city string) (weather.Summary, bool) {
	state := s.get(city)
	if state == nil {
		return weather.Summary{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	s.pruneAndSummarize(state, s.clock.Now())
	if state.summary == nil {
		return weather.Summary{}, false
	}
	return *state.summary, true
}

// RefreshAll refreshes every known city and returns how many still hold a
// summary. Cities whose window is empty are forgotten, alerts included.
func (s *MemoryStore) RefreshAll() int {
	active := 0
	for _, city := range s.Cities() {
		if _, ok := s.RefreshSummary(city); ok {
			active++
			continue
		}
		s.evictIfEmpty(city)
	}
	return active
}

// evictIfEmpty drops city from the map if its window is still empty.
func (s *MemoryStore) evictIfEmpty(city string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.cities[city]
	if !ok {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if len(state.readings) > 0 {
		return
	}
	state.evicted = true
	delete(s.cities, city)
}

// Cities returns every city the store has seen, sorted.
func (s *MemoryStore) Cities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cities := make([]string, 0, len(s.cities))
	for city := range s.cities {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

// pruneAndSummarize must be called with state.mu held. The pruned window is
// always a fresh slice.
func (s *MemoryStore) pruneAndSummarize(state *cityState, now time.Time) {
	cutoff := now.Add(-s.window)

	kept := make([]weather.Reading, 0, len(state.readings))
	for _, r := range state.readings {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}

	// Enforce retention by count.
	if s.maxHistory > 0 && len(kept) > s.maxHistory {
		kept = kept[len(kept)-s.maxHistory:]
	}
	state.readings = kept

	summary, ok := weather.Summarize(state.name, kept, now)
	if !ok {
		state.summary = nil
		return
	}
	state.summary = &summary
}

func (s *MemoryStore) get(city string) *cityState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cities[city]
}

// lockCity returns the live state for city with its mutex held.
func (s *MemoryStore) lockCity(city string) *cityState {
	for {
		state := s.getOrCreate(city)
		state.mu.Lock()
		if !state.evicted {
			return state
		}
		state.mu.Unlock()
	}
}

func (s *MemoryStore) getOrCreate(city string) *cityState {
	if state := s.get(city); state != nil {
		return state
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.cities[city]
	if !ok {
		// Callers may pass strings backed by reused buffers.
		name := strings.Clone(city)
		state = &cityState{name: name}
		s.cities[name] = state
	}
	return state
}

func copyAlerts(alerts []string) []string {
	out := make([]string, len(alerts))
	copy(out, alerts)
	return out
}
