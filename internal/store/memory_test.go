package store

import (
	"fmt"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-proxy/internal/weather"
)

var testStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func celsius(c float64) float64 { return c + 273.15 }

func payload(tempC float64, condition string, wind float64) weather.Payload {
	return weather.NewPayload(celsius(tempC), 55, 1013, wind, condition)
}

func newTestStore() (*MemoryStore, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(testStart)
	return NewMemoryStore(clock, 24*time.Hour, 0), clock
}

func TestAddReading_CountsEveryReadingInWindow(t *testing.T) {
	s, clock := newTestStore()

	for i := 0; i < 10; i++ {
		s.AddReading("Paris", payload(15, "Clouds", 2))
		clock.Advance(2 * time.Hour)
	}

	summary, ok := s.GetSummary("Paris")
	require.True(t, ok)
	assert.Equal(t, 10, summary.ReadingCount)
}

func TestAddReading_HighTemperatureAlert(t *testing.T) {
	s, _ := newTestStore()

	alerts := s.AddReading("Cairo", payload(40, "Clear", 1))

	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "High Temperature Alert")
	assert.Contains(t, alerts[0], "40.0")
}

func TestAddReading_LowTemperatureAlert(t *testing.T) {
	s, _ := newTestStore()

	alerts := s.AddReading("Oslo", payload(-5, "Snow", 1))

	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Low Temperature Alert")
}

func TestAddReading_BoundaryTemperaturesDoNotAlert(t *testing.T) {
	s, _ := newTestStore()

	// Kelvin 273.15 and 308.15 convert to exactly 0 and 35.
	assert.Empty(t, s.AddReading("A", weather.NewPayload(273.15, 50, 1000, 1, "Clear")))
	assert.Empty(t, s.AddReading("B", weather.NewPayload(308.15, 50, 1000, 1, "Clear")))
}

func TestAddReading_ThunderstormWithWind(t *testing.T) {
	s, _ := newTestStore()

	alerts := s.AddReading("Miami", payload(25, "Thunderstorm", 15))

	assert.Equal(t, []string{
		"Severe Weather Alert: Thunderstorm detected",
		"High Wind Alert: Wind speed 15m/s exceeds 10m/s",
	}, alerts)
}

func TestAddReading_AlertsReflectOnlyLatestReading(t *testing.T) {
	s, _ := newTestStore()

	s.AddReading("Miami", payload(25, "Thunderstorm", 15))
	alerts := s.AddReading("Miami", payload(25, "Clear", 1))

	assert.Empty(t, alerts)
	assert.Empty(t, s.GetAlerts("Miami"))
}

func TestAddReading_ReturnedAlertsAreCopies(t *testing.T) {
	s, _ := newTestStore()

	alerts := s.AddReading("Miami", payload(25, "Rain", 1))
	alerts[0] = "tampered"

	assert.Equal(t, []string{"Rain Alert: Precipitation detected"}, s.GetAlerts("Miami"))
}

func TestSummary_DominantCondition(t *testing.T) {
	s, _ := newTestStore()

	s.AddReading("London", payload(12, "Rain", 3))
	s.AddReading("London", payload(14, "Rain", 3))
	s.AddReading("London", payload(16, "Clear", 3))

	summary, ok := s.GetSummary("London")
	require.True(t, ok)
	assert.Equal(t, "rain", summary.DominantCondition)
	assert.InDelta(t, 14.0, summary.AverageTemp, 1e-9)
	assert.InDelta(t, 16.0, summary.MaxTemp, 1e-9)
	assert.InDelta(t, 12.0, summary.MinTemp, 1e-9)
	assert.Equal(t, "2024-06-01", summary.Date)
	assert.Equal(t, testStart, summary.LastUpdated)
}

func TestRefreshSummary_PrunesAgedReadings(t *testing.T) {
	s, clock := newTestStore()

	s.AddReading("Berlin", payload(-10, "Snow", 1))
	clock.Advance(2 * time.Hour)
	s.AddReading("Berlin", payload(20, "Clear", 1))
	s.AddReading("Berlin", payload(22, "Clear", 1))

	// First reading is now 25 hours old, the others 23.
	clock.Advance(23 * time.Hour)

	summary, ok := s.RefreshSummary("Berlin")
	require.True(t, ok)
	assert.Equal(t, 2, summary.ReadingCount)
	assert.InDelta(t, 20.0, summary.MinTemp, 1e-9, "aged reading must not count toward min")
	assert.InDelta(t, 21.0, summary.AverageTemp, 1e-9)
	assert.Equal(t, testStart.Add(25*time.Hour), summary.LastUpdated)

	stored, ok := s.GetSummary("Berlin")
	require.True(t, ok)
	assert.Equal(t, summary, stored)
}

func TestAddReading_PrunesAgedReadings(t *testing.T) {
	s, clock := newTestStore()

	s.AddReading("Berlin", payload(-10, "Snow", 1))
	clock.Advance(25 * time.Hour)
	s.AddReading("Berlin", payload(20, "Clear", 1))

	summary, ok := s.GetSummary("Berlin")
	require.True(t, ok)
	assert.Equal(t, 1, summary.ReadingCount)
	assert.Equal(t, "clear", summary.DominantCondition)
}

func TestRefreshSummary_ReadingExactlyAtWindowEdgeIsPruned(t *testing.T) {
	s, clock := newTestStore()

	s.AddReading("Rome", payload(20, "Clear", 1))
	clock.Advance(24 * time.Hour)

	_, ok := s.RefreshSummary("Rome")
	assert.False(t, ok)
}

func TestRefreshSummary_EmptyWindowClearsSummary(t *testing.T) {
	s, clock := newTestStore()

	s.AddReading("Rome", payload(20, "Rain", 1))
	s.AddReading("Madrid", payload(30, "Clear", 1))
	clock.Advance(12 * time.Hour)
	s.AddReading("Madrid", payload(31, "Clear", 1))
	clock.Advance(13 * time.Hour)

	_, ok := s.RefreshSummary("Rome")
	assert.False(t, ok)

	_, ok = s.GetSummary("Rome")
	assert.False(t, ok)

	// Alerts describe the last reading and are kept until the sweep.
	assert.Equal(t, []string{"Rain Alert: Precipitation detected"}, s.GetAlerts("Rome"))

	assert.Equal(t, 1, s.RefreshAll())
	all := s.GetAllSummaries()
	require.Len(t, all, 1)
	assert.Equal(t, "Madrid", all[0].City)
	assert.Equal(t, 1, all[0].ReadingCount)
}

func TestRefreshAll_EvictsEmptyCities(t *testing.T) {
	s, clock := newTestStore()

	s.AddReading("Rome", payload(20, "Rain", 1))
	s.AddReading("Madrid", payload(30, "Clear", 1))
	clock.Advance(12 * time.Hour)
	s.AddReading("Madrid", payload(31, "Clear", 1))
	clock.Advance(13 * time.Hour)

	assert.Equal(t, 1, s.RefreshAll())
	assert.Equal(t, []string{"Madrid"}, s.Cities())
	assert.Empty(t, s.GetAlerts("Rome"))

	alerts := s.AddReading("Rome", payload(40, "Clear", 1))
	assert.Equal(t, []string{"High Temperature Alert: Current temperature (40.0°C) exceeds 35°C"}, alerts)

	summary, ok := s.GetSummary("Rome")
	require.True(t, ok)
	assert.Equal(t, 1, summary.ReadingCount)
	assert.Equal(t, []string{"Madrid", "Rome"}, s.Cities())
}

func TestAddReading_OwnsCityKey(t *testing.T) {
	s, _ := newTestStore()

	// A string sharing memory with a buffer that is reused afterwards.
	buf := []byte("Paris")
	s.AddReading(unsafe.String(&buf[0], len(buf)), payload(15, "Clear", 1))
	copy(buf, "Tokyo")

	assert.Equal(t, []string{"Paris"}, s.Cities())

	summary, ok := s.GetSummary("Paris")
	require.True(t, ok)
	assert.Equal(t, "Paris", summary.City)
}

func TestUnknownCity(t *testing.T) {
	s, _ := newTestStore()

	_, ok := s.GetSummary("Atlantis")
	assert.False(t, ok)

	alerts := s.GetAlerts("Atlantis")
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)

	_, ok = s.RefreshSummary("Atlantis")
	assert.False(t, ok)

	assert.NotNil(t, s.GetAllSummaries())
	assert.Empty(t, s.GetAllSummaries())
}

func TestGetAllSummaries_OnePerCitySorted(t *testing.T) {
	s, _ := newTestStore()

	s.AddReading("Zurich", payload(10, "Clear", 1))
	s.AddReading("Amsterdam", payload(11, "Rain", 1))
	s.AddReading("Zurich", payload(12, "Clear", 1))
	s.AddReading("Lisbon", payload(20, "Clear", 1))

	all := s.GetAllSummaries()
	require.Len(t, all, 3)
	assert.Equal(t, "Amsterdam", all[0].City)
	assert.Equal(t, "Lisbon", all[1].City)
	assert.Equal(t, "Zurich", all[2].City)
	assert.Equal(t, 2, all[2].ReadingCount)
	assert.Equal(t, []string{"Amsterdam", "Lisbon", "Zurich"}, s.Cities())
}

func TestMaxHistory(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	s := NewMemoryStore(clock, 0, 2)

	s.AddReading("Paris", payload(1, "Clear", 1))
	s.AddReading("Paris", payload(2, "Clear", 1))
	s.AddReading("Paris", payload(3, "Clear", 1))

	summary, ok := s.GetSummary("Paris")
	require.True(t, ok)
	assert.Equal(t, 2, summary.ReadingCount)
	assert.InDelta(t, 2.0, summary.MinTemp, 1e-9)
}

func TestNewMemoryStore_Defaults(t *testing.T) {
	s := NewMemoryStore(nil, 0, 0)
	assert.Equal(t, DefaultWindow, s.window)
	assert.NotNil(t, s.clock)
}

func TestConcurrentAddAndRefresh(t *testing.T) {
	s, _ := newTestStore()

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			city := fmt.Sprintf("city-%d", w%2)
			for i := 0; i < perWriter; i++ {
				s.AddReading(city, payload(float64(i), "Clear", 1))
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < perWriter; i++ {
			s.RefreshAll()
			s.GetAllSummaries()
		}
	}()
	wg.Wait()

	for _, city := range []string{"city-0", "city-1"} {
		summary, ok := s.GetSummary(city)
		require.True(t, ok)
		assert.Equal(t, writers/2*perWriter, summary.ReadingCount)
	}
}
