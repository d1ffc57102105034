// Package otel publishes engine counters through an OpenTelemetry meter.
//
// Every counter is one data point of fitfob.workflow.events, told apart by
// its workflow and outcome attributes. Callers own the MeterProvider.
package otel
