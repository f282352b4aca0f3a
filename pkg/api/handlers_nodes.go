package api

import (
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

func nodeFromRequest(req *validation.NodeRequest) *model.AttackTreeNode {
	node := &model.AttackTreeNode{
		ID:             req.ID,
		Kind:           model.NodeKindAttack,
		Title:          req.Title,
		Description:    req.Description,
		Links:          req.Links,
		Gate:           model.Gate(req.Gate),
		Configurations: req.Configurations,
		Tags:           req.Tags,
	}
	if req.Potential != nil {
		node.Potential = &model.AttackPotential{
			Time:      req.Potential.Time,
			Expertise: req.Potential.Expertise,
			Knowledge: req.Potential.Knowledge,
			Access:    req.Potential.Access,
			Equipment: req.Potential.Equipment,
		}
	}
	return node
}

// createNode adds an attack-tree node. Links may point at nodes that do
// not exist yet; the recalculation run by the mutation reports them as
// dangling-link warnings instead of rejecting the request, so trees can
// be entered top-down.
func (s *Server) createNode(w http.ResponseWriter, r *http.Request, projectID string) {
	var req validation.NodeRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateNodeRequest(&req) })
	if decoder.RespondError() {
		return
	}

	node := nodeFromRequest(&req)
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionCreate,
		entityType: audit.EntityNode,
		entityID:   node.ID,
		status:     http.StatusCreated,
		apply:      func(p *model.Project) error { return p.AddNode(node) },
		entity:     func(p *model.Project) any { n, _ := p.GetNode(node.ID); return n },
	})
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.getEntity(w, r, projectID, func(p *model.Project) (any, error) {
		return p.GetNode(entityID)
	})
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	var req validation.NodeRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).Validate(func() error { return validation.ValidateNodeRequest(&req) })
	if decoder.RespondError() || !s.bindEntityID(w, &req.ID, entityID) {
		return
	}

	node := nodeFromRequest(&req)
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityNode,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.UpdateNode(node) },
		entity:     func(p *model.Project) any { n, _ := p.GetNode(entityID); return n },
	})
}

// deleteNode removes the node and, in the same mutation, its id from
// every remaining node's link list, so the recalculation that follows
// never sees the deleted id.
func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request, projectID, entityID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionDelete,
		entityType: audit.EntityNode,
		entityID:   entityID,
		apply:      func(p *model.Project) error { return p.DeleteNode(entityID) },
	})
}

func (s *Server) linkNodes(w http.ResponseWriter, r *http.Request, projectID, parentID, childID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityNode,
		entityID:   parentID,
		detail:     fmt.Sprintf("linked %s -> %s", parentID, childID),
		apply:      func(p *model.Project) error { return p.LinkNodes(parentID, childID) },
		entity: func(p *model.Project) any {
			return LinkResponse{ParentID: parentID, ChildID: childID, Linked: true}
		},
	})
}

func (s *Server) unlinkNodes(w http.ResponseWriter, r *http.Request, projectID, parentID, childID string) {
	s.applyMutation(w, r, projectID, mutation{
		action:     audit.ActionUpdate,
		entityType: audit.EntityNode,
		entityID:   parentID,
		detail:     fmt.Sprintf("unlinked %s -> %s", parentID, childID),
		apply:      func(p *model.Project) error { return p.UnlinkNodes(parentID, childID) },
		entity: func(p *model.Project) any {
			return LinkResponse{ParentID: parentID, ChildID: childID, Linked: false}
		},
	})
}
