package audit

import (
	"time"
)

// Severity levels for history events
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// PersistentEvent is an event as written to disk, carrying the hash
// chain for tamper detection
type PersistentEvent struct {
	*Event
	Severity     Severity `json:"severity"`
	PreviousHash string   `json:"previous_hash,omitempty"` // For tamper detection
	EventHash    string   `json:"event_hash"`              // Hash of this event
}

// PersistentConfig holds configuration for persistent history logging
type PersistentConfig struct {
	LogDir        string        // Directory to store history logs
	RotationSize  int64         // Rotate log file when it exceeds this size (bytes)
	RotationTime  time.Duration // Rotate log file after this duration
	Compress      bool          // Compress rotated log files
	RetentionDays int           // Delete logs older than this many days
}

// DefaultPersistentConfig returns default configuration
func DefaultPersistentConfig() *PersistentConfig {
	return &PersistentConfig{
		LogDir:        "./data/history",
		RotationSize:  100 * 1024 * 1024, // 100MB
		RotationTime:  24 * time.Hour,    // Daily
		Compress:      true,
		RetentionDays: 365, // 1 year
	}
}

// HistoryStatistics holds statistics about the persistent history log
type HistoryStatistics struct {
	TotalEvents   int64     `json:"total_events"`
	TotalFiles    int       `json:"total_files"`
	TotalSize     int64     `json:"total_size_bytes"`
	BytesWritten  int64     `json:"bytes_written"`
	CurrentFile   string    `json:"current_file"`
	LastRotation  time.Time `json:"last_rotation"`
	RetentionDays int       `json:"retention_days"`
}
