package dashboard

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels besides the ErrorKind values.
const (
	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	unknownView  = "unknown"
)

// Metrics exposes Prometheus collectors for view loads.
type Metrics struct {
	loads     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	discarded prometheus.Counter
	evicted   prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the load metrics against the provided registerer. When
// the registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func (m *Metrics) observeLoad(view, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(view, outcome).Inc()
	m.duration.WithLabelValues(view).Observe(elapsed.Seconds())
}

func (m *Metrics) observeDiscard() {
	if m == nil {
		return
	}
	m.discarded.Inc()
}

func (m *Metrics) observeEviction() {
	if m == nil {
		return
	}
	m.evicted.Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_view_loads_total",
		Help: "View loads partitioned by view and outcome.",
	}, []string{"view", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insights_view_load_duration_seconds",
		Help:    "Duration in seconds of view fetch and normalisation.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"view"})
	discarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insights_stale_results_discarded_total",
		Help: "Completed loads dropped because a newer selection superseded them.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insights_controllers_evicted_total",
		Help: "Session controllers dropped because the hub reached its size limit.",
	})
	registerer.MustRegister(loads, duration, discarded, evicted)
	return &Metrics{loads: loads, duration: duration, discarded: discarded, evicted: evicted}
}
