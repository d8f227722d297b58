// Package metrics exports compiler and change detection metrics to
// Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ng2c-go/packages/compiler/src/change_detection"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "ng2c").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for compile and detection
	// durations. Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
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
		Namespace: "ng2c",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records compilations and detection passes. It implements
// change_detection.Observer so it can be handed to an Arena.
type Collector struct {
	templatesCompiled  *prometheus.CounterVec
	templateErrors     prometheus.Counter
	compileDuration    prometheus.Histogram
	detectionPasses    *prometheus.CounterVec
	detectionDuration  *prometheus.HistogramVec
	detectionErrors    *prometheus.CounterVec
	bindingsDispatched *prometheus.CounterVec
}

var _ change_detection.Observer = (*Collector)(nil)

// NewCollector registers the metrics on the configured registry. Creating
// two collectors on one registry panics, as promauto does.
func NewCollector(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		templatesCompiled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "templates_compiled_total",
			Help:        "Total number of templates compiled, by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		templateErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "template_parse_errors_total",
			Help:        "Total number of template parse errors reported",
			ConstLabels: config.ConstLabels,
		}),

		compileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "compile_duration_seconds",
			Help:        "Template compilation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		detectionPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "detection_passes_total",
			Help:        "Total number of top level change detection passes",
			ConstLabels: config.ConstLabels,
		}, []string{"detector", "kind"}),

		detectionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "detection_duration_seconds",
			Help:        "Change detection pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		detectionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "detection_errors_total",
			Help:        "Total number of failed change detection passes",
			ConstLabels: config.ConstLabels,
		}, []string{"detector"}),

		bindingsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "bindings_dispatched_total",
			Help:        "Total number of binding updates sent to dispatchers, by target mode",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),
	}
}

// ObserveCompile records one compilation. parseErrors is the number of
// template errors found, if any.
func (c *Collector) ObserveCompile(elapsed time.Duration, parseErrors int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.templatesCompiled.WithLabelValues(status).Inc()
	c.templateErrors.Add(float64(parseErrors))
	c.compileDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveDetection(id string, checkNoChanges bool, elapsed time.Duration, err error) {
	kind := "detect"
	if checkNoChanges {
		kind = "check"
	}
	c.detectionPasses.WithLabelValues(id, kind).Inc()
	c.detectionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		c.detectionErrors.WithLabelValues(id).Inc()
	}
}

func (c *Collector) ObserveBinding(_ string, target *change_detection.BindingTarget) {
	c.bindingsDispatched.WithLabelValues(string(target.Mode)).Inc()
}
