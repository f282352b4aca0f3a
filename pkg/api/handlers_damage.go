package api

import (
	"net/http"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

func damageFromRequest(req *validation.DamageScenarioRequest) (*model.DamageScenario, error) {
	severity, err := model.ParseImpact(req.Severity)
	if err != nil {
		return nil, err
	}
	return &model.DamageScenario{
		ID:       req.ID,
		Title:    req.Title,
		Category: model.ImpactCategory(req.Category),
		Severity: severity,
	}, nil
}

func (s *Server) createDamageScenario(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.DamageScenarioRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateDamageScenarioRequest(&req) })
	if decoder.RespondError() {
		return
	}

	damage, err := damageFromRequest(&req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionCreate,
		entityType: audit.EntityDamage,
		entityID:   damage.ID,
		status:     http.StatusCreated,
		apply:      func(p *model.Project) error { return p.AddDamageScenario(damage) },
		entity:     func(p *model.Project) any { d, _ := p.GetDamageScenario(damage.ID); return d },
	})
}

func (s *Server) getDamageScenario(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.getEntity(w, r, projectID, func(p *model.Project) (any, error) {
		return p.GetDamageScenario(entityID)
	})
}

func (s *Server) updateDamageScenario(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	var req validation.DamageScenarioRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateDamageScenarioRequest(&req) })
	if decoder.RespondError() || !s.bindEntityID(w, &req.ID, entityID) {
		return
	}

	damage, err := damageFromRequest(&req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityDamage,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.UpdateDamageScenario(damage) },
		entity:     func(p *model.Project) any { d, _ := p.GetDamageScenario(entityID); return d },
	})
}

// deleteDamageScenario removes the damage scenario; the model prunes its
// id from every threat and threat-scenario reference list, and the
// recalculation that follows rewrites the aggregated impacts.
func (s *Server) deleteDamageScenario(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionDelete,
		entityType: audit.EntityDamage,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.DeleteDamageScenario(entityID) },
	})
}
