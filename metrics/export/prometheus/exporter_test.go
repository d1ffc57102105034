package prometheus

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
)

type fakeSource struct {
	snapshot fitfob.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() fitfob.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{snapshot: fitfob.NewMetrics(fitfob.MetricsConfig{}).Snapshot()})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderLabelsByWorkflow(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: fitfob.MetricsSnapshot{
			Counters: map[fitfob.MetricID]uint64{
				fitfob.MetricLoginSuccess:        7,
				fitfob.MetricRegisterDuplicate:   2,
				fitfob.MetricRegisterCompensated: 1,
			},
			Histograms: map[fitfob.MetricID][]uint64{
				fitfob.MetricTokenLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE fitfob_workflow_events_total counter\n",
		`fitfob_workflow_events_total{workflow="login",outcome="success"} 7`,
		`fitfob_workflow_events_total{workflow="register",outcome="duplicate"} 2`,
		`fitfob_workflow_events_total{workflow="register",outcome="rolled_back"} 1`,
		`fitfob_workflow_events_total{workflow="mfa",outcome="session_reset"} 0`,
		`fitfob_token_latency_seconds_bucket{le="0.005"} 1`,
		`fitfob_token_latency_seconds_bucket{le="+Inf"} 36`,
		"fitfob_token_latency_seconds_count 36",
		"fitfob_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE fitfob_workflow_events_total") != 1 {
		t.Fatal("workflow family header must appear once")
	}
}

func TestRenderOmitsHistogramWithoutLatency(t *testing.T) {
	m := fitfob.NewMetrics(fitfob.MetricsConfig{Enabled: true})
	m.Inc(fitfob.MetricApprovalGranted)

	out := NewExporter(fakeSource{snapshot: m.Snapshot()}).Render()
	if strings.Contains(out, "fitfob_token_latency_seconds") {
		t.Fatalf("latency histogram rendered while disabled:\n%s", out)
	}
	if !strings.Contains(out, `{workflow="approval",outcome="granted"} 1`) {
		t.Fatalf("missing approval series:\n%s", out)
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, errors.New("closed")
}

func TestWriteStopsOnError(t *testing.T) {
	exp := NewExporter(fakeSource{snapshot: fitfob.MetricsSnapshot{
		Counters: map[fitfob.MetricID]uint64{fitfob.MetricLoginSuccess: 1},
	}})

	w := &failingWriter{}
	if err := exp.Write(w); err == nil {
		t.Fatal("expected write error")
	}
	if w.n != 1 {
		t.Fatalf("expected a single write attempt, got %d", w.n)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: fitfob.MetricsSnapshot{
			Counters: map[fitfob.MetricID]uint64{fitfob.MetricLoginSuccess: 1},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); got != ContentType {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "fitfob_workflow_events_total") {
		t.Fatalf("unexpected response %d:\n%s", rec.Code, rec.Body.String())
	}
}
