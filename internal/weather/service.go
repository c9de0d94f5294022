package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/i474232898/weather-proxy/internal/observability"
)

// ErrInvalidPayload is returned when the upstream response lacks a field the
// store needs.
var ErrInvalidPayload = errors.New("invalid upstream payload")

var validate = validator.New()

// ValidatePayload checks that p carries main.temp, main.humidity,
// main.pressure, wind.speed and weather[0].main.
func ValidatePayload(p Payload) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// CurrentResult is what a client gets back for a current-weather request.
type CurrentResult struct {
	Data    json.RawMessage `json:"data"`
	Alerts  []string        `json:"alerts"`
	Summary *Summary        `json:"summary"`
}

// Service orchestrates the upstream fetch and the reading store.
type Service struct {
	store   Store
	fetcher Fetcher
	logger  *zap.SugaredLogger
	metrics *observability.Metrics
}

// NewService creates a new Service.
func NewService(store Store, fetcher Fetcher, logger *zap.SugaredLogger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
	}
}

// Current fetches the city's weather upstream, ingests it and returns the
// raw upstream body with the alerts and summary it produced. Upstream and
// validation failures leave the store untouched.
func (s *Service) Current(ctx context.Context, city string) (CurrentResult, error) {
	if s.fetcher == nil {
		return CurrentResult{}, fmt.Errorf("no upstream provider configured")
	}

	start := time.Now()
	resp, err := s.fetcher.Fetch(ctx, city)
	s.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.UpstreamRequests.WithLabelValues("error").Inc()
		s.logger.Warnw("upstream fetch failed", "city", city, "error", err)
		return CurrentResult{}, err
	}

	if err := ValidatePayload(resp.Payload); err != nil {
		s.metrics.UpstreamRequests.WithLabelValues("invalid_payload").Inc()
		s.logger.Warnw("discarding upstream payload", "city", city, "error", err)
		return CurrentResult{}, err
	}
	s.metrics.UpstreamRequests.WithLabelValues("success").Inc()

	alerts := s.store.AddReading(city, resp.Payload)
	s.metrics.ReadingsIngested.Inc()
	for _, a := range alerts {
		s.metrics.AlertsRaised.WithLabelValues(AlertKind(a)).Inc()
	}
	s.metrics.CitiesTracked.Set(float64(len(s.store.GetAllSummaries())))

	result := CurrentResult{
		Data:   resp.Raw,
		Alerts: alerts,
	}
	if summary, ok := s.store.GetSummary(city); ok {
		result.Summary = &summary
	}

	s.logger.Debugw("reading ingested", "city", city, "alerts", len(alerts))
	return result, nil
}

// Summary delegates to the underlying store.
func (s *Service) Summary(city string) (Summary, bool) {
	return s.store.GetSummary(city)
}

// Alerts delegates to the underlying store.
func (s *Service) Alerts(city string) []string {
	return s.store.GetAlerts(city)
}

// AllSummaries delegates to the underlying store.
func (s *Service) AllSummaries() []Summary {
	return s.store.GetAllSummaries()
}
