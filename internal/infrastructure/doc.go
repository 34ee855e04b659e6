// Package infrastructure wires the process-level concerns the pipeline
// components depend on but do not own: structured logging and the
// OpenTelemetry tracer provider.
package infrastructure
