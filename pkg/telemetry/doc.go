// Package telemetry groups the observability concerns of the service.
//
// # Components
//
//   - logging: structured logging via log/slog (level, format, source)
//
// Prometheus metrics live next to the code they instrument: the admission
// service registers its collectors in pkg/admission, and pkg/server exposes
// the /metrics endpoint.
package telemetry
