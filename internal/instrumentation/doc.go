// Package instrumentation wires OpenTelemetry metrics and tracing for the
// scheduler: HTTP request counters, provider API operation timings, OAuth
// attempt counters, and booking outcomes. Metrics are exported via
// Prometheus by default; OTLP and stdout exporters are available for
// collector-based or development setups.
package instrumentation
