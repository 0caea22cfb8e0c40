// Package metrics exports scheduler flush statistics to Prometheus.
package metrics

import (
	"github.com/delaneyj/watchparty/observer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the flush collector.
type Config struct {
	// Namespace is the metrics namespace (default: "watchparty").
	Namespace string

	// Subsystem is the metrics subsystem (default: "scheduler").
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is where the metrics get registered.
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

// WithRegistry sets the registerer. Tests pass a fresh prometheus.NewRegistry
// so collectors don't collide on the default one.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "watchparty",
		Subsystem: "scheduler",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector is an observer.FlushHook that records every flush.
type Collector struct {
	Flushes       prometheus.Counter
	Runs          *prometheus.CounterVec
	Duration      prometheus.Histogram
	Abandoned     prometheus.Counter
	Activated     prometheus.Counter
	Updated       prometheus.Counter
	LastFlushRuns prometheus.Gauge
}

var _ observer.FlushHook = (*Collector)(nil)

// New registers the collector's metrics. It panics if they are already
// registered on the chosen registry, like promauto does.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		Flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of scheduler flushes",
			ConstLabels: config.ConstLabels,
		}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watcher_runs_total",
			Help:        "Total number of watcher runs by watcher kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Scheduler flush duration in seconds, post-flush hooks included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		Abandoned: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "abandoned_watchers_total",
			Help:        "Watchers dropped from a flush for re-queueing themselves too often",
			ConstLabels: config.ConstLabels,
		}),
		Activated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "activated_hooks_total",
			Help:        "Activated hooks called after flushes",
			ConstLabels: config.ConstLabels,
		}),
		Updated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updated_hooks_total",
			Help:        "Updated hooks called after flushes",
			ConstLabels: config.ConstLabels,
		}),
		LastFlushRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "last_flush_runs",
			Help:        "Watcher runs in the most recent flush",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (c *Collector) OnFlush(info observer.FlushInfo) {
	c.Flushes.Inc()
	for kind, n := range info.Runs {
		c.Runs.WithLabelValues(kind).Add(float64(n))
	}
	c.Duration.Observe(info.Duration.Seconds())
	c.Abandoned.Add(float64(len(info.Abandoned)))
	c.Activated.Add(float64(info.Activated))
	c.Updated.Add(float64(info.Updated))
	c.LastFlushRuns.Set(float64(info.Total()))
}
