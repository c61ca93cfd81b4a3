// Package metrics exposes Prometheus instrumentation for the reactive
// scheduler and the patcher.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/WangZhekun/vue/pkg/reactive"
	"github.com/WangZhekun/vue/pkg/vdom"
)

// Config configures the metrics collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "vue").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the metrics collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the flush-duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vue",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// collectors holds the Prometheus collectors for one runtime.
type collectors struct {
	flushesTotal   prometheus.Counter
	flushDuration  prometheus.Histogram
	watcherRuns    prometheus.Counter
	circuitBreaks  prometheus.Counter
	patchOps       *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

var (
	global   *collectors
	globalMu sync.Mutex
)

func initCollectors(config Config) *collectors {
	factory := promauto.With(config.Registry)

	return &collectors{
		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of scheduler flush cycles",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush cycle duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		watcherRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watcher_runs_total",
			Help:        "Total number of watcher re-evaluations",
			ConstLabels: config.ConstLabels,
		}),

		circuitBreaks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "circuit_breaks_total",
			Help:        "Total number of watchers excluded as infinite update loops",
			ConstLabels: config.ConstLabels,
		}),

		patchOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patch_ops_total",
			Help:        "Total native-tree mutations by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Enable registers the collectors and installs the scheduler flush
// hooks. Safe to call more than once; collectors are created on the
// first call only.
//
// Wire the patcher side with OpHook:
//
//	app := runtime.New(adapter, state, render,
//	    runtime.WithPatcherOptions(vdom.WithOpHook(metrics.OpHook())))
//
// and expose the endpoint with promhttp.Handler().
func Enable(opts ...Option) {
	reactive.SetFlushHooks(Hooks(opts...))
}

// Hooks builds the scheduler hooks without installing them, for
// composition with other consumers:
//
//	reactive.SetFlushHooks(reactive.CombineFlushHooks(
//	    metrics.Hooks(), instrument.Hooks()))
func Hooks(opts ...Option) reactive.FlushHooks {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMu.Lock()
	if global == nil {
		global = initCollectors(config)
	}
	m := global
	globalMu.Unlock()

	return reactive.FlushHooks{
		OnFlushEnd: func(ran int, d time.Duration) {
			m.flushesTotal.Inc()
			m.flushDuration.Observe(d.Seconds())
		},
		OnWatcherRun: func() {
			m.watcherRuns.Inc()
		},
		OnCircuitBreak: func(watcherID uint64) {
			m.circuitBreaks.Inc()
		},
	}
}

// OpHook returns a patcher op hook recording native-tree mutations.
// Returns a no-op hook when Enable has not been called.
func OpHook() func(vdom.Op) {
	return func(op vdom.Op) {
		if m := get(); m != nil {
			m.patchOps.WithLabelValues(op.String()).Inc()
		}
	}
}

// RecordSessionStart increments the active-session gauge.
func RecordSessionStart() {
	if m := get(); m != nil {
		m.activeSessions.Inc()
	}
}

// RecordSessionEnd decrements the active-session gauge.
func RecordSessionEnd() {
	if m := get(); m != nil {
		m.activeSessions.Dec()
	}
}

func get() *collectors {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}
