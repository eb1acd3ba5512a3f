package urlnav

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures metric registration.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "urlnav").
	Namespace string

	// ConstLabels are applied to every metric.
	ConstLabels prometheus.Labels

	// Registry is where metrics register (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// Metrics tracks navigation and forced-reload activity. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	navigations     *prometheus.CounterVec
	reloadsArmed    prometheus.Counter
	reloadsExecuted prometheus.Counter
	armed           prometheus.Gauge
	armedSeconds    prometheus.Gauge
}

// NewMetrics registers and returns the navigation metrics.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "urlnav"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "navigations_total",
			Help:        "Total number of navigation operations",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op", "status"}),

		reloadsArmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "forced_reloads_armed_total",
			Help:        "Total number of forced-reload listeners armed",
			ConstLabels: cfg.ConstLabels,
		}),

		reloadsExecuted: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "forced_reloads_total",
			Help:        "Total number of forced reloads executed",
			ConstLabels: cfg.ConstLabels,
		}),

		armed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "reload_armed",
			Help:        "Whether a forced-reload listener is currently armed (0 or 1)",
			ConstLabels: cfg.ConstLabels,
		}),

		armedSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "reload_armed_seconds",
			Help:        "Age of the armed forced-reload listener, refreshed on decision attempts",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// recordNavigation counts one navigation operation.
func (m *Metrics) recordNavigation(op, status string) {
	if m == nil {
		return
	}
	m.navigations.WithLabelValues(op, status).Inc()
}

// recordArmed marks the forced-reload listener armed.
func (m *Metrics) recordArmed() {
	if m == nil {
		return
	}
	m.reloadsArmed.Inc()
	m.armed.Set(1)
	m.armedSeconds.Set(0)
}

// recordReload counts an executed forced reload and marks the listener idle.
func (m *Metrics) recordReload() {
	if m == nil {
		return
	}
	m.reloadsExecuted.Inc()
	m.armed.Set(0)
	m.armedSeconds.Set(0)
}

// recordArmedAge refreshes the armed-age gauge.
func (m *Metrics) recordArmedAge(age time.Duration) {
	if m == nil {
		return
	}
	m.armedSeconds.Set(age.Seconds())
}
