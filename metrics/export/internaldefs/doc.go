// Package internaldefs maps engine counters onto the labelled series both
// exporters publish, so a Prometheus scrape and an OTel collection agree.
package internaldefs
