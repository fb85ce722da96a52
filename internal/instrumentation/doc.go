// Package instrumentation provides OpenTelemetry metrics for the server.
//
// The Provider wires an SDK meter provider to a Prometheus exporter; the
// Metrics type records credential lifecycle outcomes, tool invocations and
// upstream API operations. When instrumentation is disabled every recorder is
// a no-op, so call sites never need nil checks.
package instrumentation
