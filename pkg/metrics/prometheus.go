package metrics

import (
	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	checks        *prometheus.CounterVec
	signals       *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	activeSignals prometheus.Gauge
	queueDepth    *prometheus.GaugeVec
}

// New creates a recorder registered with reg, or the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		checks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extremescan_checks_total",
				Help: "Detection runs by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extremescan_signals_total",
				Help: "Signals created",
			},
			[]string{"symbol", "side"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extremescan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extremescan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		activeSignals: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "extremescan_active_signals",
				Help: "Active signals after the last sweep",
			},
		),
		queueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extremescan_queue_depth",
				Help: "Items waiting in an in-process queue",
			},
			[]string{"queue"},
		),
	}
}

func (r *Recorder) RecordCheck(symbol string, outcome models.Outcome) {
	r.checks.WithLabelValues(symbol, string(outcome)).Inc()
}

func (r *Recorder) RecordSignal(symbol string, side models.SignalType) {
	r.signals.WithLabelValues(symbol, string(side)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) SetActiveSignals(n int) {
	r.activeSignals.Set(float64(n))
}

func (r *Recorder) SetQueueDepth(queue string, n int) {
	r.queueDepth.WithLabelValues(queue).Set(float64(n))
}

var _ domrepo.Metrics = (*Recorder)(nil)
