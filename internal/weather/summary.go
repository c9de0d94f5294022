package weather

import (
	"strings"
	"time"
)

// DateLayout formats Summary.Date.
const DateLayout = "2006-01-02"

// Summarize aggregates a window of readings for a city. Temperatures are
// averaged; the dominant condition is the most frequent lower-cased
// condition, with ties going to the one seen first. It reports false for an
// empty window.
func Summarize(city string, readings []Reading, now time.Time) (Summary, bool) {
	if len(readings) == 0 {
		return Summary{}, false
	}

	var sumTemp float64
	minTemp := readings[0].Temperature
	maxTemp := readings[0].Temperature

	conditionCounts := make(map[string]int)
	var order []string

	for _, r := range readings {
		sumTemp += r.Temperature
		if r.Temperature < minTemp {
			minTemp = r.Temperature
		}
		if r.Temperature > maxTemp {
			maxTemp = r.Temperature
		}

		cond := strings.ToLower(r.Condition)
		if _, seen := conditionCounts[cond]; !seen {
			order = append(order, cond)
		}
		conditionCounts[cond]++
	}

	// Walk in first-seen order so ties keep the earliest condition.
	dominant := ""
	bestCount := 0
	for _, cond := range order {
		if conditionCounts[cond] > bestCount {
			bestCount = conditionCounts[cond]
			dominant = cond
		}
	}

	now = now.UTC()
	return Summary{
		City:              city,
		AverageTemp:       sumTemp / float64(len(readings)),
		MaxTemp:           maxTemp,
		MinTemp:           minTemp,
		DominantCondition: dominant,
		ReadingCount:      len(readings),
		LastUpdated:       now,
		Date:              now.Format(DateLayout),
	}, true
}
