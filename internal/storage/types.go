package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// ReconcileEntry records one reconciliation outcome.
// Keep it compact and schema-stable.
type ReconcileEntry struct {
	At         time.Time
	ScheduleID int64
	TenantID   int64
	Outcome    string
	OK         bool
	Error      string
	TookMS     int64
}

// FiringEntry records one trigger firing and its dispatch result.
type FiringEntry struct {
	At         time.Time
	ScheduleID int64
	Trigger    string
	OK         bool
	Error      string
	TookMS     int64
}
