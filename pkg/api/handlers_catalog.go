package api

import (
	"net/http"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

// Handlers for the catalog entities: TOE configurations, security
// controls and security goals. Configuration changes matter to the
// engine (they gate attack-tree nodes); controls and goals are carried
// for the analysis record and never influence derivation.

func (s *Server) createConfiguration(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.ConfigurationRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateConfigurationRequest(&req) })
	if decoder.RespondError() {
		return
	}

	configuration := &model.ToeConfiguration{ID: req.ID, Description: req.Description, Active: req.Active}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionCreate,
		entityType: audit.EntityConfiguration,
		entityID:   configuration.ID,
		status:     http.StatusCreated,
		apply:      func(p *model.Project) error { return p.AddConfiguration(configuration) },
		entity:     func(p *model.Project) any { c, _ := p.GetConfiguration(configuration.ID); return c },
	})
}

func (s *Server) getConfiguration(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.getEntity(w, r, projectID, func(p *model.Project) (any, error) {
		return p.GetConfiguration(entityID)
	})
}

// updateConfiguration flips or rewrites a TOE configuration. Toggling
// the active flag changes which attack-tree nodes are reachable, so the
// recalculated derived values in the response reflect the new variant.
func (s *Server) updateConfiguration(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	var req validation.ConfigurationRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateConfigurationRequest(&req) })
	if decoder.RespondError() || !s.bindEntityID(w, &req.ID, entityID) {
		return
	}

	configuration := &model.ToeConfiguration{ID: req.ID, Description: req.Description, Active: req.Active}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityConfiguration,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.UpdateConfiguration(configuration) },
		entity:     func(p *model.Project) any { c, _ := p.GetConfiguration(entityID); return c },
	})
}

func (s *Server) deleteConfiguration(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionDelete,
		entityType: audit.EntityConfiguration,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.DeleteConfiguration(entityID) },
	})
}

func (s *Server) createControl(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.ControlRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateControlRequest(&req) })
	if decoder.RespondError() {
		return
	}

	control := &model.SecurityControl{ID: req.ID, Title: req.Title, Description: req.Description, ScenarioIDs: req.ScenarioIDs}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionCreate,
		entityType: audit.EntityControl,
		entityID:   control.ID,
		status:     http.StatusCreated,
		apply:      func(p *model.Project) error { return p.AddControl(control) },
		entity:     func(p *model.Project) any { c, _ := p.GetControl(control.ID); return c },
	})
}

func (s *Server) getControl(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.getEntity(w, r, projectID, func(p *model.Project) (any, error) {
		return p.GetControl(entityID)
	})
}

func (s *Server) updateControl(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	var req validation.ControlRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateControlRequest(&req) })
	if decoder.RespondError() || !s.bindEntityID(w, &req.ID, entityID) {
		return
	}

	control := &model.SecurityControl{ID: req.ID, Title: req.Title, Description: req.Description, ScenarioIDs: req.ScenarioIDs}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityControl,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.UpdateControl(control) },
		entity:     func(p *model.Project) any { c, _ := p.GetControl(entityID); return c },
	})
}

func (s *Server) deleteControl(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionDelete,
		entityType: audit.EntityControl,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.DeleteControl(entityID) },
	})
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.GoalRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateGoalRequest(&req) })
	if decoder.RespondError() {
		return
	}

	goal := &model.SecurityGoal{ID: req.ID, Title: req.Title, Description: req.Description, ScenarioIDs: req.ScenarioIDs}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionCreate,
		entityType: audit.EntityGoal,
		entityID:   goal.ID,
		status:     http.StatusCreated,
		apply:      func(p *model.Project) error { return p.AddGoal(goal) },
		entity:     func(p *model.Project) any { g, _ := p.GetGoal(goal.ID); return g },
	})
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.getEntity(w, r, projectID, func(p *model.Project) (any, error) {
		return p.GetGoal(entityID)
	})
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	var req validation.GoalRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateGoalRequest(&req) })
	if decoder.RespondError() || !s.bindEntityID(w, &req.ID, entityID) {
		return
	}

	goal := &model.SecurityGoal{ID: req.ID, Title: req.Title, Description: req.Description, ScenarioIDs: req.ScenarioIDs}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityGoal,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.UpdateGoal(goal) },
		entity:     func(p *model.Project) any { g, _ := p.GetGoal(entityID); return g },
	})
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionDelete,
		entityType: audit.EntityGoal,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.DeleteGoal(entityID) },
	})
}
