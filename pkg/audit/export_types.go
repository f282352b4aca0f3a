package audit

import "time"

// ExportFormat represents the format for exporting history logs
type ExportFormat string

const (
	FormatJSON   ExportFormat = "json"
	FormatCSV    ExportFormat = "csv"
	FormatJSONL  ExportFormat = "jsonl" // JSON Lines (one JSON object per line)
	FormatSyslog ExportFormat = "syslog"
)

// ExportOptions holds options for exporting history logs
type ExportOptions struct {
	Format     ExportFormat
	StartTime  *time.Time
	EndTime    *time.Time
	Severity   Severity
	Action     Action
	ProjectID  string
	EntityType EntityType
	Limit      int  // Maximum number of events to export (0 = unlimited)
	Pretty     bool // Pretty-print JSON output
}

// Exporter handles exporting history logs to various formats
type Exporter struct {
	logDir string
}

// NewExporter creates a new history log exporter
func NewExporter(logDir string) *Exporter {
	return &Exporter{
		logDir: logDir,
	}
}

// ReportStatistics holds statistical data for reports
type ReportStatistics struct {
	TotalEvents int
	BySeverity  map[Severity]int
	ByAction    map[Action]int
	ByStatus    map[Status]int
	TopProjects []ProjectStat
	TopEntities []EntityStat
}

// ProjectStat holds statistics for a project
type ProjectStat struct {
	ProjectID string
	Count     int
}

// EntityStat holds statistics for an entity
type EntityStat struct {
	EntityType EntityType
	EntityID   string
	Count      int
}
