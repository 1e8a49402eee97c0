// Package audit records admission denials for later inspection.
//
// # Overview
//
// Every denied check is worth keeping: it is the raw material for abuse
// investigations and for tuning operation budgets. The recorder receives
// denial events from the admission service, assigns each a UUID, and writes
// it to a storage backend asynchronously so the admission hot path never
// waits on I/O.
//
// Two backends ship with the package:
//
//   - MemoryStorage: bounded in-memory ring, for tests and dev setups
//   - SQLiteStorage: durable single-file database with WAL journaling
//
// # Usage
//
//	storage, err := audit.NewSQLiteStorage(audit.DefaultSQLiteConfig())
//	recorder := audit.NewRecorder(storage, nil)
//	svc := admission.NewService(admission.WithAuditor(recorder))
//	defer recorder.Close()
//
// Dropped events (full buffer) are counted, logged, and never block the
// caller.
package audit
