package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/consoleroutes/pkg/router"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "consoleroutes").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "consoleroutes",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the navigation collectors.
type Metrics struct {
	navigations   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	records       prometheus.Gauge
	resets        prometheus.Counter
	wsConnections prometheus.Gauge
	wsErrors      *prometheus.CounterVec
}

// NewMetrics registers the collectors. Registering twice against the same
// registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Navigations by operation, matched route and result",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "route", "result"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation duration in seconds, guards and view loading included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"op"}),

		records: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "route_records",
			Help:        "Records in the live route table",
			ConstLabels: config.ConstLabels,
		}),

		resets: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "table_resets_total",
			Help:        "Route table resets",
			ConstLabels: config.ConstLabels,
		}),

		wsConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_connections",
			Help:        "Open navigation WebSocket connections",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Observe records one navigation.
func (m *Metrics) Observe(op string, loc *router.Location, err error, elapsed time.Duration) {
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	m.navigations.WithLabelValues(op, routeLabel(loc, err), resultLabel(err)).Inc()
}

// Pusher wraps p so every Push is observed under op "push".
func (m *Metrics) Pusher(p router.Pusher) router.Pusher {
	return router.PushFunc(func(ctx context.Context, to string) (*router.Location, error) {
		start := time.Now()
		loc, err := p.Push(ctx, to)
		m.Observe("push", loc, err, time.Since(start))
		return loc, err
	})
}

// SetRecords sets the route_records gauge.
func (m *Metrics) SetRecords(n int) {
	m.records.Set(float64(n))
}

// RecordReset counts a table reset and zeroes route_records.
func (m *Metrics) RecordReset() {
	m.resets.Inc()
	m.records.Set(0)
}

// RecordConnection adjusts the open connection gauge by delta.
func (m *Metrics) RecordConnection(delta int) {
	m.wsConnections.Add(float64(delta))
}

// RecordWebSocketError counts a WebSocket error.
func (m *Metrics) RecordWebSocketError(errorType string) {
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// routeLabel keeps cardinality bounded: the matched pattern, never the
// requested path.
func routeLabel(loc *router.Location, err error) string {
	if loc != nil {
		if rec := loc.Record(); rec != nil {
			return rec.Path
		}
	}
	var nf *router.NavigationError
	if errors.As(err, &nf) && nf.To != nil {
		if rec := nf.To.Record(); rec != nil {
			return rec.Path
		}
	}
	return "unmatched"
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	var nf *router.NavigationError
	if errors.As(err, &nf) {
		return nf.Kind.String()
	}
	return categorizeError(err)
}

// categorizeError maps errors that are not navigation failures to a label.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, router.ErrNoMatch):
		return "not_found"
	default:
		return "internal"
	}
}
