// Package telemetry provides the observability stack for the control plane:
// structured logging with zerolog, Prometheus metrics, and OpenTelemetry
// tracing. All components share one Config so a single block of the config
// file controls the whole stack.
package telemetry
