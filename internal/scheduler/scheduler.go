package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-proxy/internal/observability"
)

// DefaultInterval is how often summaries are refreshed when none is configured.
const DefaultInterval = 5 * time.Minute

// Refresher re-evaluates every city's window and reports how many cities
// still hold a summary.
type Refresher interface {
	RefreshAll() int
}

// Scheduler periodically refreshes summaries so readings age out of the
// window even when no new traffic arrives for a city.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Refresher
	interval  time.Duration
	logger    *zap.SugaredLogger
	metrics   *observability.Metrics
}

// New creates a new Scheduler.
func New(interval time.Duration, store Refresher, logger *zap.SugaredLogger, metrics *observability.Metrics) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		store:     store,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the sweep job and starts the underlying scheduler. The
// first run happens one interval after Start.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.Sweep)
	if err != nil {
		return err
	}

	s.logger.Infow("scheduler: summary sweep scheduled", "interval", s.interval)
	s.scheduler.StartAsync()
	return nil
}

// Sweep runs one refresh pass over all cities.
func (s *Scheduler) Sweep() {
	start := time.Now()
	active := s.store.RefreshAll()
	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	s.metrics.CitiesTracked.Set(float64(active))

	s.logger.Debugw("scheduler: summary sweep completed", "cities_with_summary", active, "took", time.Since(start))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
