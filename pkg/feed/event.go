package feed

import (
	"fmt"
	"time"
)

// EventType identifies what happened to a project
type EventType string

// Topic names for subscriptions
const (
	EventProjectCreated      EventType = "project.created"
	EventProjectUpdated      EventType = "project.updated"
	EventProjectDeleted      EventType = "project.deleted"
	EventProjectImported     EventType = "project.imported"
	EventProjectRecalculated EventType = "project.recalculated"
)

// Event is a change summary pushed to feed consumers. Recalculation
// events carry the derived risk distribution so dashboards and external
// document generators can react without re-reading the project.
type Event struct {
	Type         EventType      `json:"type"`
	ProjectID    string         `json:"project_id"`
	ProjectName  string         `json:"project_name,omitempty"`
	Revision     int64          `json:"revision,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	RiskByLevel  map[string]int `json:"risk_by_level,omitempty"`
	WarningCount int            `json:"warning_count,omitempty"`
}

// NewEvent creates a feed event for a project change
func NewEvent(eventType EventType, projectID, projectName string, revision int64) *Event {
	return &Event{
		Type:        eventType,
		ProjectID:   projectID,
		ProjectName: projectName,
		Revision:    revision,
		Timestamp:   time.Now().UTC(),
	}
}

// NewRecalculated creates a recalculation summary event
func NewRecalculated(projectID, projectName string, revision int64, riskByLevel map[string]int, warningCount int) *Event {
	event := NewEvent(EventProjectRecalculated, projectID, projectName, revision)
	event.RiskByLevel = riskByLevel
	event.WarningCount = warningCount
	return event
}

// Topic returns the broadcast topic for an event type
func Topic(eventType EventType) string {
	return string(eventType)
}

// ProjectTopic returns the per-project topic for an event type
func ProjectTopic(eventType EventType, projectID string) string {
	return fmt.Sprintf("%s.%s", eventType, projectID)
}
