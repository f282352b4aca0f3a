package api

import (
	"net/http"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

// getEntity serves one entity looked up on the stored snapshot.
func (s *Server) getEntity(w http.ResponseWriter, r *http.Request, projectID string, lookup func(*model.Project) (any, error)) {
	stored, err := s.store.Get(r.Context(), projectID)
	if err != nil {
		s.respondStoreError(w, err, "load project")
		return
	}
	entity, err := lookup(stored.Project)
	if err != nil {
		if model.IsNotFound(err) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "look up entity"))
		return
	}
	s.respondJSON(w, http.StatusOK, entity)
}

func assetFromRequest(req *validation.AssetRequest) *model.Asset {
	return &model.Asset{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
	}
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.AssetRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateAssetRequest(&req) })
	if decoder.RespondError() {
		return
	}

	asset := assetFromRequest(&req)
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionCreate,
		entityType: audit.EntityAsset,
		entityID:   asset.ID,
		status:     http.StatusCreated,
		apply:      func(p *model.Project) error { return p.AddAsset(asset) },
		entity:     func(p *model.Project) any { a, _ := p.GetAsset(asset.ID); return a },
	})
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.getEntity(w, r, projectID, func(p *model.Project) (any, error) {
		return p.GetAsset(entityID)
	})
}

func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	var req validation.AssetRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateAssetRequest(&req) })
	if decoder.RespondError() || !s.bindEntityID(w, &req.ID, entityID) {
		return
	}

	asset := assetFromRequest(&req)
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityAsset,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.UpdateAsset(asset) },
		entity:     func(p *model.Project) any { a, _ := p.GetAsset(entityID); return a },
	})
}

func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionDelete,
		entityType: audit.EntityAsset,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.DeleteAsset(entityID) },
	})
}
