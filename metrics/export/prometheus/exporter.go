package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/metrics/export/internaldefs"
)

// ContentType is the text exposition format version served by [Exporter].
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Source is satisfied by *fitfob.Engine.
type Source interface {
	MetricsSnapshot() fitfob.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders engine metrics for a Prometheus scrape.
type Exporter struct {
	source Source
}

// NewExporter reads from engine. Any value with the two snapshot methods
// works, which is how the tests drive it.
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the current snapshot on every request. A disabled engine
// yields an empty 200 response.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		_ = p.Write(w)
	})
}

// Render returns the exposition text.
func (p *Exporter) Render() string {
	var b strings.Builder
	_ = p.Write(&b)
	return b.String()
}

// Write emits the workflow event family, the token latency histogram when
// latency tracking is on, and the audit drop counter.
func (p *Exporter) Write(w io.Writer) error {
	if p == nil || p.source == nil {
		return nil
	}
	snapshot := p.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 {
		return nil
	}
	ew := &errWriter{w: w}

	header(ew, internaldefs.WorkflowEventsName, internaldefs.WorkflowEventsHelp, "counter")
	for _, s := range internaldefs.WorkflowSeries {
		ew.printf("%s{workflow=%q,outcome=%q} %d\n",
			internaldefs.WorkflowEventsName, s.Workflow, s.Outcome, snapshot.Counters[s.ID])
	}

	if raw, ok := snapshot.Histograms[fitfob.MetricTokenLatency]; ok {
		name := internaldefs.TokenLatencyName
		header(ew, name, internaldefs.TokenLatencyHelp, "histogram")
		cumulative := internaldefs.Cumulative(raw)
		for i, n := range cumulative {
			ew.printf("%s_bucket{le=%q} %d\n", name, internaldefs.BucketLabel(i), n)
		}
		// Buckets are counted, not summed.
		ew.printf("%s_sum 0\n%s_count %d\n", name, name, cumulative[len(cumulative)-1])
	}

	header(ew, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	ew.printf("%s %d\n", internaldefs.AuditDroppedName, p.source.AuditDropped())

	return ew.err
}

func header(ew *errWriter, name, help, kind string) {
	ew.printf("# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
