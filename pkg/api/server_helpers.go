package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/feed"
	"github.com/dd0wney/cluso-tara/pkg/logging"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
	"github.com/dd0wney/cluso-tara/pkg/store"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("encoding JSON response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	s.respondJSON(w, status, response)
}

// respondStoreError maps a store failure onto the right status code.
func (s *Server) respondStoreError(w http.ResponseWriter, err error, operation string) {
	if model.IsNotFound(err) {
		s.respondError(w, http.StatusNotFound, "Project not found")
		return
	}
	s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, operation))
}

// recordEvent appends one event to the server-side history log.
func (s *Server) recordEvent(event *audit.Event) {
	if s.history == nil {
		return
	}
	event.Actor = "api"
	if err := s.history.Record(event); err != nil {
		s.log.Warn("history record failed", logging.Error(err))
	}
}

// afterRecalc reports a persisted recalculation to metrics and the feed.
func (s *Server) afterRecalc(trigger string, stats risk.Stats, warnings []risk.Warning, stored *store.StoredProject, eventType feed.EventType, elapsed time.Duration) {
	dist := risk.Distribution(stored.Project)

	if s.metrics != nil {
		s.metrics.RecordRecalculation(trigger, elapsed,
			stats.Scenarios, stats.TreesEvaluated,
			stats.ManualFallbacks, stats.UnreachableTrees)
		if counts := risk.CountByCode(warnings); len(counts) > 0 {
			byCode := make(map[string]int, len(counts))
			for code, n := range counts {
				byCode[string(code)] = n
			}
			s.metrics.RecordRecalculationWarnings(byCode)
		}
		s.metrics.SetRiskDistribution(dist)
	}

	if s.feed != nil {
		event := feed.NewEvent(eventType, stored.Project.ID, stored.Project.Title, stored.Revision)
		event.RiskByLevel = dist
		event.WarningCount = len(warnings)
		s.feed.Publish(event)
	}
}

// mutation describes one entity change flowing through applyMutation.
type mutation struct {
	action     audit.Action
	entityType audit.EntityType
	entityID   string
	detail     string
	status     int // success status code, 0 means 200

	// apply performs the change on the loaded project.
	apply func(p *model.Project) error
	// entity, when set, looks up the changed entity on the recalculated
	// project for the response body.
	entity func(p *model.Project) any
}

// applyMutation is the single write path of the API: load the stored
// snapshot, apply the change, recalculate the whole project, persist the
// result, then record history and notify observers. A mutation is only
// persisted together with its recalculation, so stored derived values
// can never lag the raw entities they were computed from.
func (s *Server) applyMutation(w http.ResponseWriter, r *http.Request, projectID string, m mutation) {
	ctx := r.Context()

	stored, err := s.store.Get(ctx, projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}

	project := stored.Project
	if err := m.apply(project); err != nil {
		status := http.StatusBadRequest
		switch {
		case model.IsNotFound(err):
			status = http.StatusNotFound
		case model.IsDuplicate(err):
			status = http.StatusConflict
		}
		s.recordEvent(audit.NewFailedEvent(projectID, m.action, m.entityType, m.entityID, err.Error()))
		s.respondError(w, status, err.Error())
		return
	}

	start := time.Now()
	result, err := s.recalc.Recalculate(project)
	if err != nil {
		s.recordEvent(audit.NewFailedEvent(projectID, m.action, m.entityType, m.entityID, err.Error()))
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "recalculate project"))
		return
	}
	elapsed := time.Since(start)

	updated := result.Project
	updated.Touch()
	updated.AppendHistory(&model.HistoryEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Action:     string(m.action),
		EntityType: string(m.entityType),
		EntityID:   m.entityID,
		Detail:     m.detail,
	})

	saved, err := s.store.Save(ctx, updated)
	if err != nil {
		s.recordEvent(audit.NewFailedEvent(projectID, m.action, m.entityType, m.entityID, err.Error()))
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "save project"))
		return
	}

	s.recordEvent(audit.NewEvent(projectID, m.action, m.entityType, m.entityID, audit.StatusSuccess))
	s.afterRecalc("mutation", result.Stats, result.Warnings, saved, feed.EventProjectUpdated, elapsed)

	s.log.Info("project mutated",
		logging.ProjectID(projectID),
		logging.String("action", string(m.action)),
		logging.String("entity_type", string(m.entityType)),
		logging.String("entity_id", m.entityID),
		logging.Int64("revision", saved.Revision),
		logging.WarningCount(len(result.Warnings)))

	response := MutationResponse{
		ProjectID:   projectID,
		Revision:    saved.Revision,
		Fingerprint: saved.Fingerprint,
		Stats:       result.Stats,
		Warnings:    result.Warnings,
	}
	if m.entity != nil {
		response.Entity = m.entity(saved.Project)
	}

	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	s.respondJSON(w, status, response)
}
