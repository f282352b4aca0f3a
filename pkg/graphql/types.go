package graphql

import (
	"encoding/json"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
	"github.com/dd0wney/cluso-tara/pkg/store"
	"github.com/graphql-go/graphql"
)

// Object types for the read-only project query surface. Each type
// resolves straight off the model structs; mutations stay on the REST
// API where every write runs the recalculation pass.

func newPotentialType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Potential",
		Fields: graphql.Fields{
			"value": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if pot, ok := p.Source.(model.Potential); ok {
						return pot.Value, nil
					}
					return nil, nil
				},
			},
			"reachable": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if pot, ok := p.Source.(model.Potential); ok {
						return pot.Reachable, nil
					}
					return nil, nil
				},
			},
		},
	})
}

func newDerivedType(potentialType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "DerivedValues",
		Fields: graphql.Fields{
			"potential": &graphql.Field{
				Type: potentialType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(model.DerivedValues); ok {
						return d.Potential, nil
					}
					return nil, nil
				},
			},
			"feasibility": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(model.DerivedValues); ok {
						return d.Feasibility.String(), nil
					}
					return nil, nil
				},
			},
			"impact": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(model.DerivedValues); ok {
						return d.Impact.String(), nil
					}
					return nil, nil
				},
			},
			"risk": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(model.DerivedValues); ok {
						return d.Risk.String(), nil
					}
					return nil, nil
				},
			},
			"treatment": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(model.DerivedValues); ok {
						return string(d.Treatment), nil
					}
					return nil, nil
				},
			},
		},
	})
}

func newScenarioType(derivedType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "ThreatScenario",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*model.ThreatScenario); ok {
						return s.ID, nil
					}
					return nil, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*model.ThreatScenario); ok {
						return s.Title, nil
					}
					return nil, nil
				},
			},
			"threatId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*model.ThreatScenario); ok {
						return s.ThreatID, nil
					}
					return nil, nil
				},
			},
			"damageScenarioIds": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*model.ThreatScenario); ok {
						return s.DamageScenarioIDs, nil
					}
					return nil, nil
				},
			},
			"manualPotential": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*model.ThreatScenario); ok {
						return s.ManualPotential.Sum(), nil
					}
					return nil, nil
				},
			},
			"derived": &graphql.Field{
				Type: derivedType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*model.ThreatScenario); ok {
						return s.Derived, nil
					}
					return nil, nil
				},
			},
		},
	})
}

func newThreatType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Threat",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if t, ok := p.Source.(*model.Threat); ok {
						return t.ID, nil
					}
					return nil, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if t, ok := p.Source.(*model.Threat); ok {
						return t.Title, nil
					}
					return nil, nil
				},
			},
			"assetId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if t, ok := p.Source.(*model.Threat); ok {
						return t.AssetID, nil
					}
					return nil, nil
				},
			},
			"damageScenarioIds": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if t, ok := p.Source.(*model.Threat); ok {
						return t.DamageScenarioIDs, nil
					}
					return nil, nil
				},
			},
			"initialFeasibility": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if t, ok := p.Source.(*model.Threat); ok {
						return t.InitialFeasibility.String(), nil
					}
					return nil, nil
				},
			},
			"residualFeasibility": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if t, ok := p.Source.(*model.Threat); ok {
						return t.ResidualFeasibility.String(), nil
					}
					return nil, nil
				},
			},
		},
	})
}

func newAssetType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Asset",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if a, ok := p.Source.(*model.Asset); ok {
						return a.ID, nil
					}
					return nil, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if a, ok := p.Source.(*model.Asset); ok {
						return a.Title, nil
					}
					return nil, nil
				},
			},
			"description": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if a, ok := p.Source.(*model.Asset); ok {
						return a.Description, nil
					}
					return nil, nil
				},
			},
		},
	})
}

func newDamageType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "DamageScenario",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(*model.DamageScenario); ok {
						return d.ID, nil
					}
					return nil, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(*model.DamageScenario); ok {
						return d.Title, nil
					}
					return nil, nil
				},
			},
			"category": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(*model.DamageScenario); ok {
						return d.Category.String(), nil
					}
					return nil, nil
				},
			},
			"severity": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if d, ok := p.Source.(*model.DamageScenario); ok {
						return d.Severity.String(), nil
					}
					return nil, nil
				},
			},
		},
	})
}

func newNodeType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "AttackTreeNode",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if n, ok := p.Source.(*model.AttackTreeNode); ok {
						return n.ID, nil
					}
					return nil, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if n, ok := p.Source.(*model.AttackTreeNode); ok {
						return n.Title, nil
					}
					return nil, nil
				},
			},
			"gate": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if n, ok := p.Source.(*model.AttackTreeNode); ok {
						return string(n.Gate), nil
					}
					return nil, nil
				},
			},
			"links": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if n, ok := p.Source.(*model.AttackTreeNode); ok {
						return n.Links, nil
					}
					return nil, nil
				},
			},
			"tags": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if n, ok := p.Source.(*model.AttackTreeNode); ok {
						return n.Tags, nil
					}
					return nil, nil
				},
			},
			"configurations": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if n, ok := p.Source.(*model.AttackTreeNode); ok {
						return n.Configurations, nil
					}
					return nil, nil
				},
			},
			"potential": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if n, ok := p.Source.(*model.AttackTreeNode); ok && n.Potential != nil {
						return n.Potential.Sum(), nil
					}
					return nil, nil
				},
			},
		},
	})
}

func newSummaryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "ProjectSummary",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*store.ProjectSummary); ok {
						return s.ID, nil
					}
					return nil, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*store.ProjectSummary); ok {
						return s.Title, nil
					}
					return nil, nil
				},
			},
			"revision": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*store.ProjectSummary); ok {
						return int(s.Revision), nil
					}
					return nil, nil
				},
			},
			"threats": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*store.ProjectSummary); ok {
						return s.Threats, nil
					}
					return nil, nil
				},
			},
			"scenarios": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*store.ProjectSummary); ok {
						return s.Scenarios, nil
					}
					return nil, nil
				},
			},
			"savedAt": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if s, ok := p.Source.(*store.ProjectSummary); ok {
						return s.SavedAt.Format(timeFormat), nil
					}
					return nil, nil
				},
			},
		},
	})
}

func newProjectType(types *schemaTypes) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Project",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Project.ID, nil
					}
					return nil, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Project.Title, nil
					}
					return nil, nil
				},
			},
			"description": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Project.Description, nil
					}
					return nil, nil
				},
			},
			"revision": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return int(sp.Revision), nil
					}
					return nil, nil
				},
			},
			"fingerprint": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Fingerprint, nil
					}
					return nil, nil
				},
			},
			"savedAt": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.SavedAt.Format(timeFormat), nil
					}
					return nil, nil
				},
			},
			"assets": &graphql.Field{
				Type: graphql.NewList(types.asset),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Project.Assets, nil
					}
					return nil, nil
				},
			},
			"damageScenarios": &graphql.Field{
				Type: graphql.NewList(types.damage),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Project.DamageScenarios, nil
					}
					return nil, nil
				},
			},
			"threats": &graphql.Field{
				Type: graphql.NewList(types.threat),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Project.Threats, nil
					}
					return nil, nil
				},
			},
			"threatScenarios": &graphql.Field{
				Type: graphql.NewList(types.scenario),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Project.Scenarios, nil
					}
					return nil, nil
				},
			},
			"nodes": &graphql.Field{
				Type: graphql.NewList(types.node),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						return sp.Project.Nodes, nil
					}
					return nil, nil
				},
			},
			// Risk distribution as a JSON object keyed by level name.
			"riskByLevel": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if sp, ok := p.Source.(*store.StoredProject); ok {
						data, err := json.Marshal(risk.Distribution(sp.Project))
						if err != nil {
							return nil, err
						}
						return string(data), nil
					}
					return nil, nil
				},
			},
		},
	})
}
