// Package cli provides shared helpers for the gatehouse command line:
// error types with command context, signal handling for graceful shutdown,
// and output formatting for command results.
package cli
