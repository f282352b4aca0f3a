package api

import (
	"time"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
	"github.com/dd0wney/cluso-tara/pkg/store"
)

// API Request/Response Types

// ProjectResponse represents a stored project in API responses. The
// revision and fingerprint come from the store; the project document
// itself always carries freshly recalculated derived values.
type ProjectResponse struct {
	Project     *model.Project `json:"project"`
	Revision    int64          `json:"revision"`
	Fingerprint string         `json:"fingerprint"`
	SavedAt     time.Time      `json:"saved_at"`
}

// ProjectListResponse represents the project listing
type ProjectListResponse struct {
	Projects []*store.ProjectSummary `json:"projects"`
	Count    int                     `json:"count"`
}

// MutationResponse represents the outcome of an entity mutation. Every
// mutation recalculates the project before persisting, so the response
// carries the pass summary alongside the new revision.
type MutationResponse struct {
	ProjectID   string         `json:"project_id"`
	Revision    int64          `json:"revision"`
	Fingerprint string         `json:"fingerprint"`
	Entity      any            `json:"entity,omitempty"`
	Stats       risk.Stats     `json:"stats"`
	Warnings    []risk.Warning `json:"warnings,omitempty"`
}

// RecalculationRequest represents an explicit recalculation request.
// When Configurations is present the pass runs as a what-if preview
// under exactly those active configuration ids and nothing is persisted;
// when absent the project's own active set applies and the result is
// saved.
type RecalculationRequest struct {
	Configurations *[]string `json:"configurations,omitempty"`
}

// RecalculationResponse represents recalculation results
type RecalculationResponse struct {
	ProjectID   string         `json:"project_id"`
	Persisted   bool           `json:"persisted"`
	Revision    int64          `json:"revision,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Stats       risk.Stats     `json:"stats"`
	Warnings    []risk.Warning `json:"warnings,omitempty"`
	RiskByLevel map[string]int `json:"risk_by_level"`
	Time        string         `json:"time"`
}

// ImportResponse represents the outcome of importing a project file
type ImportResponse struct {
	ProjectID   string         `json:"project_id"`
	Title       string         `json:"title"`
	Revision    int64          `json:"revision"`
	Fingerprint string         `json:"fingerprint"`
	Stats       risk.Stats     `json:"stats"`
	Warnings    []risk.Warning `json:"warnings,omitempty"`
}

// HistoryResponse represents a page of host-side history events
type HistoryResponse struct {
	Events []*audit.Event `json:"events"`
	Count  int            `json:"count"`
}

// ProjectHistoryResponse represents a page of a project's own
// append-only history log, newest entry first.
type ProjectHistoryResponse struct {
	Entries []*model.HistoryEntry `json:"entries"`
	Count   int                   `json:"count"`
	Total   int                   `json:"total"`
}

// LinkResponse represents the outcome of a node link change
type LinkResponse struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Linked   bool   `json:"linked"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
