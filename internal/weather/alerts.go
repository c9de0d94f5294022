package weather

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	highTempThresholdC = 35.0
	lowTempThresholdC  = 0.0
	highWindThreshold  = 10.0 // m/s
)

var severeConditions = map[string]bool{
	ConditionThunderstorm: true,
	ConditionTornado:      true,
	ConditionHurricane:    true,
}

// CheckAlerts derives the alerts triggered by a single reading. Thresholds
// are exclusive. The result is never nil and keeps a fixed order:
// temperature, severe weather, rain, wind.
func CheckAlerts(tempC float64, condition string, windSpeed float64) []string {
	alerts := []string{}

	if tempC > highTempThresholdC {
		alerts = append(alerts, fmt.Sprintf("High Temperature Alert: Current temperature (%.1f°C) exceeds 35°C", tempC))
	}
	if tempC < lowTempThresholdC {
		alerts = append(alerts, fmt.Sprintf("Low Temperature Alert: Current temperature (%.1f°C) is below 0°C", tempC))
	}

	if severeConditions[condition] {
		alerts = append(alerts, fmt.Sprintf("Severe Weather Alert: %s detected", condition))
	}

	if condition == ConditionRain {
		alerts = append(alerts, "Rain Alert: Precipitation detected")
	}

	if windSpeed > highWindThreshold {
		speed := strconv.FormatFloat(windSpeed, 'f', -1, 64)
		alerts = append(alerts, fmt.Sprintf("High Wind Alert: Wind speed %sm/s exceeds 10m/s", speed))
	}

	return alerts
}

// AlertKind returns a short label for an alert message, used for metrics.
func AlertKind(alert string) string {
	switch {
	case strings.HasPrefix(alert, "High Temperature"):
		return "high_temperature"
	case strings.HasPrefix(alert, "Low Temperature"):
		return "low_temperature"
	case strings.HasPrefix(alert, "Severe Weather"):
		return "severe_weather"
	case strings.HasPrefix(alert, "Rain"):
		return "rain"
	case strings.HasPrefix(alert, "High Wind"):
		return "high_wind"
	default:
		return "other"
	}
}
