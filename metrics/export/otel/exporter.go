package otel

import (
	"context"
	"errors"
	"fmt"

	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names.
const (
	WorkflowEventsInstrument = "fitfob.workflow.events"
	TokenLatencyInstrument   = "fitfob.token.latency.bucket"
	AuditDroppedInstrument   = "fitfob.audit.dropped"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is satisfied by *fitfob.Engine.
type Source interface {
	MetricsSnapshot() fitfob.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter observes the engine snapshot on each collection.
type Exporter struct {
	source       Source
	registration metric.Registration

	events  metric.Int64ObservableCounter
	latency metric.Int64ObservableGauge
	dropped metric.Int64ObservableCounter

	seriesAttrs []metric.ObserveOption
	bucketAttrs []metric.ObserveOption
}

// NewExporter registers three instruments with meter: the workflow event
// counter with workflow and outcome attributes, a cumulative token latency
// gauge keyed by le, and the audit drop counter. Close unregisters them.
func NewExporter(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}

	var err error
	e.events, err = meter.Int64ObservableCounter(WorkflowEventsInstrument,
		metric.WithDescription(internaldefs.WorkflowEventsHelp),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", WorkflowEventsInstrument, err)
	}
	e.latency, err = meter.Int64ObservableGauge(TokenLatencyInstrument,
		metric.WithDescription(internaldefs.TokenLatencyHelp+" Cumulative count at or below le seconds."),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", TokenLatencyInstrument, err)
	}
	e.dropped, err = meter.Int64ObservableCounter(AuditDroppedInstrument,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", AuditDroppedInstrument, err)
	}

	e.seriesAttrs = make([]metric.ObserveOption, len(internaldefs.WorkflowSeries))
	for i, s := range internaldefs.WorkflowSeries {
		e.seriesAttrs[i] = metric.WithAttributeSet(attribute.NewSet(
			attribute.String("workflow", s.Workflow),
			attribute.String("outcome", s.Outcome),
		))
	}
	e.bucketAttrs = make([]metric.ObserveOption, len(internaldefs.LatencyBounds)+1)
	for i := range e.bucketAttrs {
		e.bucketAttrs[i] = metric.WithAttributes(attribute.String("le", internaldefs.BucketLabel(i)))
	}

	e.registration, err = meter.RegisterCallback(e.observe, e.events, e.latency, e.dropped)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 {
		return nil
	}

	for i, s := range internaldefs.WorkflowSeries {
		o.ObserveInt64(e.events, int64(snapshot.Counters[s.ID]), e.seriesAttrs[i])
	}
	if raw, ok := snapshot.Histograms[fitfob.MetricTokenLatency]; ok {
		for i, n := range internaldefs.Cumulative(raw) {
			o.ObserveInt64(e.latency, int64(n), e.bucketAttrs[i])
		}
	}
	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
