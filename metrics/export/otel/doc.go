// Package otel publishes [authsession.Manager] metrics through
// OpenTelemetry observable instruments.
//
// Each counter becomes an Int64ObservableCounter; each histogram bucket an
// Int64ObservableGauge. The caller owns the MeterProvider.
package otel
