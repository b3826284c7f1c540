package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gather returns the metric family with the given name from the default
// registry, or nil when it has no samples yet.
func gather(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func counterValue(mf *dto.MetricFamily, labels map[string]string) (float64, bool) {
	for _, m := range mf.GetMetric() {
		match := true
		for _, lp := range m.GetLabel() {
			if want, ok := labels[lp.GetName()]; ok && lp.GetValue() != want {
				match = false
				break
			}
		}
		if match {
			return m.GetCounter().GetValue(), true
		}
	}
	return 0, false
}

func TestCollectorsRegisteredOnDefaultRegistry(t *testing.T) {
	labels := map[string]string{"service": "metrics-test", "method": "GET", "status": "success"}
	RequestsTotal.WithLabelValues("metrics-test", "GET", "success").Inc()
	RequestsTotal.WithLabelValues("metrics-test", "GET", "success").Inc()

	mf := gather(t, "conduit_requests_total")
	if mf == nil {
		t.Fatal("conduit_requests_total not exported by the default registry")
	}
	got, ok := counterValue(mf, labels)
	if !ok {
		t.Fatal("no sample for the incremented label set")
	}
	if got != 2 {
		t.Errorf("counter = %v, want 2", got)
	}
}

func TestActiveStreamsGauge(t *testing.T) {
	g := ActiveStreams.WithLabelValues("metrics-test")
	g.Inc()
	g.Inc()
	g.Dec()

	mf := gather(t, "conduit_active_streams")
	if mf == nil {
		t.Fatal("conduit_active_streams not exported by the default registry")
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "service" && lp.GetValue() == "metrics-test" {
				if v := m.GetGauge().GetValue(); v != 1 {
					t.Errorf("gauge = %v, want 1", v)
				}
				return
			}
		}
	}
	t.Fatal("no gauge sample for the test service")
}

func TestRequestDurationHistogram(t *testing.T) {
	RequestDuration.WithLabelValues("metrics-test", "POST").Observe(0.05)

	mf := gather(t, "conduit_request_duration_seconds")
	if mf == nil {
		t.Fatal("conduit_request_duration_seconds not exported")
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "method" && lp.GetValue() == "POST" {
				if c := m.GetHistogram().GetSampleCount(); c != 1 {
					t.Errorf("sample count = %d, want 1", c)
				}
				return
			}
		}
	}
	t.Fatal("no histogram sample for the observed label set")
}
