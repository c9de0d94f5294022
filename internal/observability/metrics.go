package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_proxy"

// Metrics holds the Prometheus collectors for the proxy.
type Metrics struct {
	ReadingsIngested prometheus.Counter
	AlertsRaised     *prometheus.CounterVec // labels: kind
	CitiesTracked    prometheus.Gauge

	// Upstream provider calls.
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,error,invalid_payload}
	UpstreamDuration prometheus.Histogram

	// Periodic summary sweep.
	SweepDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsIngested,
		m.AlertsRaised,
		m.CitiesTracked,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.SweepDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Total upstream readings added to the store.",
		}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Alerts derived from ingested readings, by kind.",
		}, []string{"kind"}),
		CitiesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cities_tracked",
			Help:      "Cities currently holding a summary.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream weather requests by outcome.",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream weather request duration, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a summary refresh pass over all cities.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1},
		}),
	}
}
