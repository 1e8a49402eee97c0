package admission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the admission service.
// All methods are safe to call on a nil receiver, so the service can run
// without metrics attached.
type Metrics struct {
	checks            *prometheus.CounterVec
	blocks            *prometheus.CounterVec
	sweepRemoved      prometheus.Counter
	trackedWindows    prometheus.Gauge
	blockedIdentities prometheus.Gauge
	checkDuration     *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered with the given registerer.
// Pass nil to use the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_admission_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"operation", "result"},
		),

		blocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_admission_blocks_total",
				Help: "Total number of identity blocks created by budget violations",
			},
			[]string{"operation"},
		),

		sweepRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_admission_sweep_removed_total",
				Help: "Total number of timestamps and block entries removed by sweeps",
			},
		),

		trackedWindows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_admission_tracked_windows",
				Help: "Current number of tracked (identity, operation) windows",
			},
		),

		blockedIdentities: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_admission_blocked_identities",
				Help: "Current number of identities with a block entry",
			},
		),

		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_admission_check_duration_seconds",
				Help:    "Duration of admission checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"operation"},
		),
	}
}

// RecordCheck records an admission check and its result.
func (m *Metrics) RecordCheck(operation string, allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.checks.WithLabelValues(operation, result).Inc()
}

// RecordBlock records a block created by a budget violation.
func (m *Metrics) RecordBlock(operation string) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(operation).Inc()
}

// RecordSweep records the entries removed by a sweep pass.
func (m *Metrics) RecordSweep(removed int) {
	if m == nil {
		return
	}
	m.sweepRemoved.Add(float64(removed))
}

// SetTracked updates the tracked-state gauges.
func (m *Metrics) SetTracked(windows, blocked int) {
	if m == nil {
		return
	}
	m.trackedWindows.Set(float64(windows))
	m.blockedIdentities.Set(float64(blocked))
}

// ObserveCheckDuration records the duration of one admission check.
func (m *Metrics) ObserveCheckDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.checkDuration.WithLabelValues(operation).Observe(seconds)
}
