package storage

// Package storage provides an optional audit trail for the reconciler and
// the execution dispatcher:
//   - one row per reconciliation outcome
//   - one row per trigger firing
//
// Schedules themselves are never persisted here; what is currently scheduled
// lives inside the engine.
