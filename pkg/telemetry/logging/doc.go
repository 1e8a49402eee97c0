// Package logging configures structured logging for the service.
//
// The service logs through log/slog. This package turns the logging section
// of the configuration file into a slog handler (level, JSON or text format,
// optional source locations) that cmd/gatehouse installs as the process
// default. Packages then derive component loggers:
//
//	logger := slog.Default().With("component", "admission")
package logging
