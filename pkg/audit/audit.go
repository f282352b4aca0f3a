package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action types for history events
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionImport      Action = "import"
	ActionExport      Action = "export"
	ActionRecalculate Action = "recalculate"
)

// EntityType identifies the kind of entity an event refers to
type EntityType string

const (
	EntityProject       EntityType = "project"
	EntityAsset         EntityType = "asset"
	EntityDamage        EntityType = "damage_scenario"
	EntityThreat        EntityType = "threat"
	EntityScenario      EntityType = "threat_scenario"
	EntityNode          EntityType = "attack_tree_node"
	EntityConfiguration EntityType = "configuration"
	EntityControl       EntityType = "control"
	EntityGoal          EntityType = "goal"
	EntityPolicy        EntityType = "policy"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Event represents a single history log entry
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	ProjectID    string         `json:"project_id,omitempty"`
	Actor        string         `json:"actor,omitempty"` // Free-form origin marker: "cli", "api", a username
	Action       Action         `json:"action"`
	EntityType   EntityType     `json:"entity_type"`
	EntityID     string         `json:"entity_id,omitempty"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Detail       string         `json:"detail,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Filter represents filtering criteria for history events
type Filter struct {
	ProjectID  string
	Actor      string
	Action     Action
	EntityType EntityType
	EntityID   string
	Status     Status
	StartTime  *time.Time
	EndTime    *time.Time
}

// Recorder is the interface for history recording implementations.
// Both the in-memory HistoryLog and PersistentHistoryLog implement it.
type Recorder interface {
	// Record appends a history event
	Record(event *Event) error

	// GetEventCount returns the number of events recorded
	GetEventCount() int64
}

// HistoryLog keeps recent history events in a circular buffer
type HistoryLog struct {
	events     []*Event
	bufferSize int
	index      int
	count      int
	mu         sync.RWMutex
}

// NewHistoryLog creates a new in-memory history log with specified buffer size
func NewHistoryLog(bufferSize int) *HistoryLog {
	return &HistoryLog{
		events:     make([]*Event, bufferSize),
		bufferSize: bufferSize,
		index:      0,
		count:      0,
	}
}

// Record appends a history event
func (l *HistoryLog) Record(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Set timestamp and ID if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	// Store in circular buffer
	l.events[l.index] = event
	l.index = (l.index + 1) % l.bufferSize

	// Track total count (up to buffer size)
	if l.count < l.bufferSize {
		l.count++
	}

	return nil
}

// GetEvents retrieves history events with optional filtering
func (l *HistoryLog) GetEvents(filter *Filter) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Event, 0, l.count)

	// Iterate through all stored events
	for i := 0; i < l.count; i++ {
		// Calculate the actual index in the circular buffer
		idx := (l.index - l.count + i + l.bufferSize) % l.bufferSize
		event := l.events[idx]

		if event == nil {
			continue
		}

		// Apply filters
		if filter != nil {
			if filter.ProjectID != "" && event.ProjectID != filter.ProjectID {
				continue
			}
			if filter.Actor != "" && event.Actor != filter.Actor {
				continue
			}
			if filter.Action != "" && event.Action != filter.Action {
				continue
			}
			if filter.EntityType != "" && event.EntityType != filter.EntityType {
				continue
			}
			if filter.EntityID != "" && event.EntityID != filter.EntityID {
				continue
			}
			if filter.Status != "" && event.Status != filter.Status {
				continue
			}
			if filter.StartTime != nil && event.Timestamp.Before(*filter.StartTime) {
				continue
			}
			if filter.EndTime != nil && event.Timestamp.After(*filter.EndTime) {
				continue
			}
		}

		result = append(result, event)
	}

	return result
}

// GetRecentEvents returns the N most recent events
func (l *HistoryLog) GetRecentEvents(n int) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}

	result := make([]*Event, 0, n)

	// Get the most recent N events
	for i := 0; i < n; i++ {
		idx := (l.index - 1 - i + l.bufferSize) % l.bufferSize
		if l.events[idx] != nil {
			result = append(result, l.events[idx])
		}
	}

	return result
}

// GetEventCount returns the total number of events currently stored
func (l *HistoryLog) GetEventCount() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(l.count)
}

// Clear removes all events from the log
func (l *HistoryLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = make([]*Event, l.bufferSize)
	l.index = 0
	l.count = 0
}

// Helper function to create a standard event
func NewEvent(projectID string, action Action, entityType EntityType, entityID string, status Status) *Event {
	return &Event{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		ProjectID:  projectID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     status,
	}
}

// Helper function to create a failed event with error message
func NewFailedEvent(projectID string, action Action, entityType EntityType, entityID, errorMsg string) *Event {
	return &Event{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		ProjectID:    projectID,
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		Status:       StatusFailure,
		ErrorMessage: errorMsg,
	}
}

// String returns a human-readable representation of an event
func (e *Event) String() string {
	return fmt.Sprintf("[%s] project=%s %s %s %s (status: %s)",
		e.Timestamp.Format(time.RFC3339),
		e.ProjectID,
		e.Action,
		e.EntityType,
		e.EntityID,
		e.Status,
	)
}
