package cmap

import "github.com/prometheus/client_golang/prometheus"

// MetricsRecorder receives point-in-time events from a CMap or DenseMap.
// Implementations must be safe for concurrent use — CMap calls these from
// any goroutine performing migration work. The default, installed when no
// WithMetrics option is given, is a no-op.
type MetricsRecorder interface {
	// ObserveCount reports the current occupant count.
	ObserveCount(n int64)
	// MigrationStarted reports that a new migration has been claimed.
	MigrationStarted(oldLength, newLength uintptr)
	// MigrationCompleted reports that a migration finished, with the
	// number of slots forwarded.
	MigrationCompleted(oldLength, newLength uintptr, forwarded int64)
	// TombstoneRatio reports DenseMap's tombstones/capacity ratio after a
	// Remove (used to decide when a rehash is worthwhile to watch for).
	TombstoneRatio(ratio float64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCount(int64)                         {}
func (noopMetrics) MigrationStarted(uintptr, uintptr)          {}
func (noopMetrics) MigrationCompleted(uintptr, uintptr, int64) {}
func (noopMetrics) TombstoneRatio(float64)                     {}

// PrometheusRecorder is a MetricsRecorder backed by
// github.com/prometheus/client_golang collectors. Callers register the
// returned recorder's collectors with their own prometheus.Registerer.
type PrometheusRecorder struct {
	count              prometheus.Gauge
	migrationsStarted  prometheus.Counter
	migrationsComplete prometheus.Counter
	slotsForwarded     prometheus.Counter
	tombstoneRatio     prometheus.Gauge
}

// NewPrometheusRecorder builds a PrometheusRecorder whose metric names are
// prefixed with namespace_subsystem (following client_golang convention).
func NewPrometheusRecorder(namespace, subsystem string) *PrometheusRecorder {
	return &PrometheusRecorder{
		count: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "entries",
			Help: "Current number of occupied entries.",
		}),
		migrationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "migrations_started_total",
			Help: "Number of cooperative migrations claimed.",
		}),
		migrationsComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "migrations_completed_total",
			Help: "Number of cooperative migrations completed.",
		}),
		slotsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "slots_forwarded_total",
			Help: "Number of slots forwarded from an old table to a new one.",
		}),
		tombstoneRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "tombstone_ratio",
			Help: "DenseMap tombstones divided by capacity.",
		}),
	}
}

// Collectors returns the set of collectors a caller should register.
func (r *PrometheusRecorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.count, r.migrationsStarted, r.migrationsComplete, r.slotsForwarded, r.tombstoneRatio,
	}
}

func (r *PrometheusRecorder) ObserveCount(n int64) { r.count.Set(float64(n)) }

func (r *PrometheusRecorder) MigrationStarted(uintptr, uintptr) { r.migrationsStarted.Inc() }

func (r *PrometheusRecorder) MigrationCompleted(_, _ uintptr, forwarded int64) {
	r.migrationsComplete.Inc()
	r.slotsForwarded.Add(float64(forwarded))
}

func (r *PrometheusRecorder) TombstoneRatio(ratio float64) { r.tombstoneRatio.Set(ratio) }
