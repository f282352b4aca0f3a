package api

import (
	"net/http"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

func threatFromRequest(req *validation.ThreatRequest) (*model.Threat, error) {
	initial, err := model.ParseFeasibility(req.InitialFeasibility)
	if err != nil {
		return nil, err
	}
	residual, err := model.ParseFeasibility(req.ResidualFeasibility)
	if err != nil {
		return nil, err
	}
	return &model.Threat{
		ID:                  req.ID,
		AssetID:             req.AssetID,
		Title:               req.Title,
		Description:         req.Description,
		DamageScenarioIDs:   req.DamageScenarioIDs,
		InitialFeasibility:  initial,
		ResidualFeasibility: residual,
	}, nil
}

func scenarioFromRequest(req *validation.ScenarioRequest) *model.ThreatScenario {
	scenario := &model.ThreatScenario{
		ID:                req.ID,
		ThreatID:          req.ThreatID,
		Title:             req.Title,
		Description:       req.Description,
		DamageScenarioIDs: req.DamageScenarioIDs,
	}
	if req.Potential != nil {
		scenario.ManualPotential = model.AttackPotential{
			Time:      req.Potential.Time,
			Expertise: req.Potential.Expertise,
			Knowledge: req.Potential.Knowledge,
			Access:    req.Potential.Access,
			Equipment: req.Potential.Equipment,
		}
	}
	return scenario
}

func (s *Server) createThreat(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.ThreatRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateThreatRequest(&req) })
	if decoder.RespondError() {
		return
	}

	threat, err := threatFromRequest(&req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionCreate,
		entityType: audit.EntityThreat,
		entityID:   threat.ID,
		status:     http.StatusCreated,
		apply:      func(p *model.Project) error { return p.AddThreat(threat) },
		entity:     func(p *model.Project) any { t, _ := p.GetThreat(threat.ID); return t },
	})
}

func (s *Server) getThreat(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.getEntity(w, r, projectID, func(p *model.Project) (any, error) {
		return p.GetThreat(entityID)
	})
}

func (s *Server) updateThreat(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	var req validation.ThreatRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateThreatRequest(&req) })
	if decoder.RespondError() || !s.bindEntityID(w, &req.ID, entityID) {
		return
	}

	threat, err := threatFromRequest(&req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityThreat,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.UpdateThreat(threat) },
		entity:     func(p *model.Project) any { t, _ := p.GetThreat(entityID); return t },
	})
}

// deleteThreat removes the threat. Scenarios that referenced it are kept
// and fall back to their manual tuples; the pass summary in the response
// carries the resulting missing_threat warnings.
func (s *Server) deleteThreat(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionDelete,
		entityType: audit.EntityThreat,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.DeleteThreat(entityID) },
	})
}

func (s *Server) createScenario(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.ScenarioRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateScenarioRequest(&req) })
	if decoder.RespondError() {
		return
	}

	scenario := scenarioFromRequest(&req)
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionCreate,
		entityType: audit.EntityScenario,
		entityID:   scenario.ID,
		status:     http.StatusCreated,
		apply:      func(p *model.Project) error { return p.AddScenario(scenario) },
		entity:     func(p *model.Project) any { sc, _ := p.GetScenario(scenario.ID); return sc },
	})
}

func (s *Server) getScenario(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.getEntity(w, r, projectID, func(p *model.Project) (any, error) {
		return p.GetScenario(entityID)
	})
}

// updateScenario replaces the scenario's raw fields. Whatever derived
// values the request carried are discarded by the recalculation that
// every mutation runs before persisting.
func (s *Server) updateScenario(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	var req validation.ScenarioRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateScenarioRequest(&req) })
	if decoder.RespondError() || !s.bindEntityID(w, &req.ID, entityID) {
		return
	}

	scenario := scenarioFromRequest(&req)
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityScenario,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.UpdateScenario(scenario) },
		entity:     func(p *model.Project) any { sc, _ := p.GetScenario(entityID); return sc },
	})
}

func (s *Server) deleteScenario(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionDelete,
		entityType: audit.EntityScenario,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.DeleteScenario(entityID) },
	})
}
