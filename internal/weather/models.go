package weather

import (
	"time"
)

// Conditions reported by the upstream provider in weather[0].main that the
// alert engine reacts to. Matching is exact; summaries lower-case conditions.
const (
	ConditionThunderstorm = "Thunderstorm"
	ConditionTornado      = "Tornado"
	ConditionHurricane    = "Hurricane"
	ConditionRain         = "Rain"
)

// Payload is the subset of the upstream current-weather response the proxy
// reads. Fields are pointers so a missing value can be told apart from zero.
type Payload struct {
	Main struct {
		Temp     *float64 `json:"temp" validate:"required"` // Kelvin
		Humidity *float64 `json:"humidity" validate:"required"`
		Pressure *float64 `json:"pressure" validate:"required"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed" validate:"required"` // m/s
	} `json:"wind"`
	Weather []PayloadCondition `json:"weather" validate:"required,min=1,dive"`
}

// PayloadCondition is one entry of the upstream weather array.
type PayloadCondition struct {
	Main        string `json:"main" validate:"required"`
	Description string `json:"description,omitempty"`
}

// NewPayload builds a complete payload from its values, temperature in Kelvin.
func NewPayload(tempK, humidity, pressure, windSpeed float64, condition string) Payload {
	var p Payload
	p.Main.Temp = &tempK
	p.Main.Humidity = &humidity
	p.Main.Pressure = &pressure
	p.Wind.Speed = &windSpeed
	p.Weather = []PayloadCondition{{Main: condition}}
	return p
}

// TemperatureC returns main.temp converted to Celsius.
func (p Payload) TemperatureC() float64 {
	return KelvinToCelsius(*p.Main.Temp)
}

// Condition returns weather[0].main.
func (p Payload) Condition() string {
	return p.Weather[0].Main
}

// WindSpeed returns wind.speed in m/s.
func (p Payload) WindSpeed() float64 {
	return *p.Wind.Speed
}

// Reading is one ingested observation with converted units.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperature"`
	Condition   string    `json:"condition"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Pressure    float64   `json:"pressure"`
}

// NewReading builds a Reading from a validated payload, stamped at ts.
func NewReading(p Payload, ts time.Time) Reading {
	return Reading{
		Timestamp:   ts.UTC(),
		Temperature: p.TemperatureC(),
		Condition:   p.Condition(),
		Humidity:    *p.Main.Humidity,
		WindSpeed:   p.WindSpeed(),
		Pressure:    *p.Main.Pressure,
	}
}

// Summary aggregates a city's current reading window.
type Summary struct {
	City              string    `json:"city"`
	AverageTemp       float64   `json:"averageTemp"`
	MaxTemp           float64   `json:"maxTemp"`
	MinTemp           float64   `json:"minTemp"`
	DominantCondition string    `json:"dominantCondition"`
	ReadingCount      int       `json:"readingCount"`
	LastUpdated       time.Time `json:"lastUpdated"`
	Date              string    `json:"date"` // UTC calendar date, 2006-01-02
}

// KelvinToCelsius converts an absolute temperature to degrees Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - 273.15
}
