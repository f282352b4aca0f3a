package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/feed"
	"github.com/dd0wney/cluso-tara/pkg/logging"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).
		Get(func() { s.listProjects(w, r) }).
		Post(func() { s.createProject(w, r) }).
		NotAllowed()
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "list projects"))
		return
	}

	s.respondJSON(w, http.StatusOK, ProjectListResponse{
		Projects: summaries,
		Count:    len(summaries),
	})
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req validation.ProjectRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateProjectRequest(&req) })
	if decoder.RespondError() {
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	ctx := r.Context()
	if _, err := s.store.Get(ctx, id); err == nil {
		s.recordEvent(audit.NewFailedEvent(id, audit.ActionCreate, audit.EntityProject, id, "project already exists"))
		s.respondError(w, http.StatusConflict, "Project already exists")
		return
	} else if !model.IsNotFound(err) {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "load project"))
		return
	}

	project := model.NewProject(id, req.Title)
	project.Description = req.Description
	project.AppendHistory(&model.HistoryEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Action:     string(audit.ActionCreate),
		EntityType: string(audit.EntityProject),
		EntityID:   id,
	})

	// A fresh project recalculates trivially; running the pass anyway
	// keeps the no-stale-snapshot rule unconditional.
	result, err := s.recalc.Recalculate(project)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "recalculate project"))
		return
	}

	saved, err := s.store.Save(ctx, result.Project)
	if err != nil {
		s.recordEvent(audit.NewFailedEvent(id, audit.ActionCreate, audit.EntityProject, id, err.Error()))
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "save project"))
		return
	}

	s.recordEvent(audit.NewEvent(id, audit.ActionCreate, audit.EntityProject, id, audit.StatusSuccess))
	if s.feed != nil {
		s.feed.Publish(feed.NewEvent(feed.EventProjectCreated, saved.Project.ID, saved.Project.Title, saved.Revision))
	}

	s.log.Info("project created",
		logging.ProjectID(id),
		logging.String("title", req.Title))

	s.respondJSON(w, http.StatusCreated, ProjectResponse{
		Project:     saved.Project,
		Revision:    saved.Revision,
		Fingerprint: saved.Fingerprint,
		SavedAt:     saved.SavedAt,
	})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, projectID string) {
	stored, err := s.store.Get(r.Context(), projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}

	s.respondJSON(w, http.StatusOK, ProjectResponse{
		Project:     stored.Project,
		Revision:    stored.Revision,
		Fingerprint: stored.Fingerprint,
		SavedAt:     stored.SavedAt,
	})
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.ProjectRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateProjectRequest(&req) })
	if decoder.RespondError() {
		return
	}

	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityProject,
		entityID:   projectID,
		detail:     "retitled",
		apply: func(p *model.Project) error {
			p.Title = req.Title
			p.Description = req.Description
			return nil
		},
	})
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request, projectID string) {
	ctx := r.Context()

	stored, err := s.store.Get(ctx, projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}

	if err := s.store.Delete(ctx, projectID); err != nil {
		s.recordEvent(audit.NewFailedEvent(projectID, audit.ActionDelete, audit.EntityProject, projectID, err.Error()))
		s.respondStoreError(w, err, "delete project")
		return
	}

	s.recordEvent(audit.NewEvent(projectID, audit.ActionDelete, audit.EntityProject, projectID, audit.StatusSuccess))
	if s.feed != nil {
		s.feed.Publish(feed.NewEvent(feed.EventProjectDeleted, projectID, stored.Project.Title, stored.Revision))
	}

	s.log.Info("project deleted", logging.ProjectID(projectID))

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// listCollection serves one entity collection straight from the stored
// snapshot.
func (s *Server) listCollection(w http.ResponseWriter, r *http.Request, projectID, collection string) {
	stored, err := s.store.Get(r.Context(), projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}

	p := stored.Project
	var body any
	switch collection {
	case "assets":
		body = p.Assets
	case "damage-scenarios":
		body = p.DamageScenarios
	case "threats":
		body = p.Threats
	case "threat-scenarios":
		body = p.Scenarios
	case "nodes":
		body = p.Nodes
	case "configurations":
		body = p.Configurations
	case "controls":
		body = p.Controls
	case "goals":
		body = p.Goals
	default:
		s.respondError(w, http.StatusNotFound, "Unknown collection")
		return
	}
	s.respondJSON(w, http.StatusOK, body)
}
