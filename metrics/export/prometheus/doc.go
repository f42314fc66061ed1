// Package prometheus renders [authsession.Manager] counters and the
// identity latency histogram in Prometheus text exposition format.
//
// Series are prefixed authsession_. Nothing is registered globally; mount
// [Exporter.Handler] where it is needed.
package prometheus
