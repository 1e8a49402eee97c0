// Package server provides the HTTP API for the admission control service.
//
// # Endpoints
//
//	POST /v1/check       admission check; 429 with Retry-After when denied
//	POST /v1/record      count a request without checking
//	GET  /v1/remaining   remaining budget for one (identity, operation)
//	GET  /v1/stats       per-operation status for one identity
//	POST /v1/reset       clear one (identity, operation) window
//	POST /v1/unblock     lift an identity's block early
//	GET  /v1/operations  list registered operation budgets
//	POST /v1/operations  register or replace a budget
//	POST /v1/sweep       trigger a cleanup pass
//	GET  /healthz        liveness probe
//	GET  /metrics        Prometheus metrics (when enabled)
//
// Validation failures are 400s; a denied check is a 429, never a 5xx.
package server
