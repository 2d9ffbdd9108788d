// Package metrics exports scheduler activity of a depwatch system as
// Prometheus metrics.
package metrics

import (
	"time"

	"github.com/delaneyj/watchparty/depwatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the Prometheus monitor.
type Config struct {
	// Namespace is the metrics namespace (default: "depwatch").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush and watcher durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "depwatch",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Monitor implements depwatch.Monitor.
type Monitor struct {
	flushesTotal    prometheus.Counter
	flushDuration   prometheus.Histogram
	flushErrors     prometheus.Counter
	queueLength     prometheus.Histogram
	watcherRuns     *prometheus.CounterVec
	watcherDuration prometheus.Histogram
	runawaysTotal   prometheus.Counter
}

var _ depwatch.Monitor = (*Monitor)(nil)

// New registers the metrics and returns the monitor. Registering twice on
// the same registry panics, like any promauto metric.
//
// Metrics collected:
//   - depwatch_flushes_total: Counter of completed flushes
//   - depwatch_flush_duration_seconds: Histogram of flush duration
//   - depwatch_flush_errors_total: Counter of flushes that returned an error
//   - depwatch_flush_queue_length: Histogram of watchers queued when a flush starts
//   - depwatch_watcher_runs_total: Counter of watcher runs by kind and status
//   - depwatch_watcher_duration_seconds: Histogram of single watcher runs
//   - depwatch_runaway_watchers_total: Counter of watchers stopped by the update limit
func New(opts ...Option) *Monitor {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Monitor{
		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of scheduler flushes",
			ConstLabels: cfg.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Scheduler flush duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),

		flushErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "flush_errors_total",
			Help:        "Total number of flushes that returned an error",
			ConstLabels: cfg.ConstLabels,
		}),

		queueLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "flush_queue_length",
			Help:        "Number of watchers queued when a flush starts",
			ConstLabels: cfg.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		watcherRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "watcher_runs_total",
			Help:        "Total number of watcher runs during flushes",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "status"}),

		watcherDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "watcher_duration_seconds",
			Help:        "Duration of a single watcher run in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),

		runawaysTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "runaway_watchers_total",
			Help:        "Total number of watchers stopped for exceeding the update limit",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

func (m *Monitor) FlushStarted(queued int) {
	m.queueLength.Observe(float64(queued))
}

func (m *Monitor) WatcherStarted(*depwatch.Watcher) {}

func (m *Monitor) WatcherFinished(w *depwatch.Watcher, elapsed time.Duration, err error) {
	kind := "internal"
	if w.IsUser() {
		kind = "user"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.watcherRuns.WithLabelValues(kind, status).Inc()
	m.watcherDuration.Observe(elapsed.Seconds())
}

func (m *Monitor) FlushFinished(ran int, elapsed time.Duration, err error) {
	m.flushesTotal.Inc()
	m.flushDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.flushErrors.Inc()
	}
}

func (m *Monitor) RunawayAborted(*depwatch.Watcher, error) {
	m.runawaysTotal.Inc()
}
