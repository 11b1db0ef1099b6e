package config

// Config is the whole process configuration. Accepted as YAML or JSON;
// unknown fields are rejected. All durations are Go duration strings
// (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// API is the job catalog / execution endpoint.
	API APIConfig `json:"api"`

	// Queue is the schedule-change notification transport. Optional; without
	// it only the startup bulk load feeds the reconciler.
	Queue *QueueConfig `json:"queue,omitempty"`

	Engine    EngineConfig    `json:"engine,omitempty"`
	Reconcile ReconcileConfig `json:"reconcile,omitempty"`
	Dispatch  DispatchConfig  `json:"dispatch,omitempty"`

	// Storage enables the reconciliation/firing audit trail.
	Storage *StorageConfig `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type APIConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Timeout  string `json:"timeout,omitempty"`
}

type QueueConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Name    string `json:"name,omitempty"`
}

// EngineConfig controls the firing worker pool.
//
// Defaults (when fields are omitted/zero):
//   - max_concurrent: 10
//   - queue_size: 256
type EngineConfig struct {
	MaxConcurrent int `json:"max_concurrent,omitempty"`
	QueueSize     int `json:"queue_size,omitempty"`
}

type ReconcileConfig struct {
	// BulkWorkers bounds fan-out during the startup bulk load. Default 8.
	BulkWorkers int `json:"bulk_workers,omitempty"`
}

type DispatchConfig struct {
	// RatePerSec caps outbound run calls. 0 disables the limiter.
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./schedsync.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}
