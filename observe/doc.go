// Package observe provides the telemetry used across provider calls and
// search orchestration: OpenTelemetry tracing and metrics, a zap-backed
// structured logger, and a middleware that instruments individual provider
// operations.
//
// Exporter construction lives in the exporters subpackage.
package observe
