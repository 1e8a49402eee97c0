// Package registry holds named admission budgets for operation classes.
//
// # Overview
//
// Every protected operation (login, search, media_upload, ...) has a budget:
// how many requests an identity may make inside a trailing window, and how
// long the identity is blocked once it exceeds that budget. The registry is
// seeded with a builtin default table and supports runtime registration of
// custom operations.
//
// # Lookup Semantics
//
// Lookup never fails. An unknown operation name falls back to the generic
// api_call budget (1000 requests per hour), so callers can guard new
// operations before an explicit budget exists for them:
//
//	reg := registry.New()
//	cfg := reg.Lookup("login")           // builtin entry
//	cfg = reg.Lookup("export_report")    // api_call fallback
//
// # Thread Safety
//
// The registry is read on every admission check and written rarely, so reads
// take a shared RWMutex lock and snapshots are returned by value.
package registry
