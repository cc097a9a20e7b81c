package metrics

import (
	"testing"

	"ExtremeScan/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCheck("BTCUSDT", models.OutcomeAccepted)
	r.RecordCheck("BTCUSDT", models.OutcomeAccepted)
	r.RecordSignal("BTCUSDT", models.Buy)
	r.RecordError("fetch_primary")
	r.RecordLatency("detect_seconds", 0.01)
	r.SetActiveSignals(3)
	r.SetQueueDepth("signal_pipeline", 7)
	r.SetQueueDepth("signal_pipeline", 2)

	if got := testutil.ToFloat64(r.checks.WithLabelValues("BTCUSDT", "ACCEPTED")); got != 2 {
		t.Errorf("checks = %v", got)
	}
	if got := testutil.ToFloat64(r.signals.WithLabelValues("BTCUSDT", "BUY")); got != 1 {
		t.Errorf("signals = %v", got)
	}
	if got := testutil.ToFloat64(r.activeSignals); got != 3 {
		t.Errorf("active = %v", got)
	}
	if got := testutil.ToFloat64(r.queueDepth.WithLabelValues("signal_pipeline")); got != 2 {
		t.Errorf("queue depth = %v, want the last value", got)
	}
	if n := testutil.CollectAndCount(r.latency); n != 1 {
		t.Errorf("latency series = %d", n)
	}
}
