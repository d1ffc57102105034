// Package prometheus renders engine counters in the Prometheus text
// exposition format.
//
// All counters share one family, fitfob_workflow_events_total, labelled by
// workflow (register, login, password_reset, mfa, approval, token) and
// outcome. Nothing is registered globally; callers mount the Handler.
package prometheus
