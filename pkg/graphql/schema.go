// Package graphql exposes stored projects through a read-only GraphQL
// query surface. Writes stay on the REST API, where every mutation runs
// the recalculation pass before persisting; this package never touches
// derived values, it only reports them.
package graphql

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-tara/pkg/store"
	"github.com/graphql-go/graphql"
)

const timeFormat = time.RFC3339

// schemaTypes bundles the object types shared between the Query fields.
type schemaTypes struct {
	potential *graphql.Object
	derived   *graphql.Object
	scenario  *graphql.Object
	threat    *graphql.Object
	asset     *graphql.Object
	damage    *graphql.Object
	node      *graphql.Object
	summary   *graphql.Object
	project   *graphql.Object
}

func newSchemaTypes() *schemaTypes {
	t := &schemaTypes{
		potential: newPotentialType(),
		threat:    newThreatType(),
		asset:     newAssetType(),
		damage:    newDamageType(),
		node:      newNodeType(),
		summary:   newSummaryType(),
	}
	t.derived = newDerivedType(t.potential)
	t.scenario = newScenarioType(t.derived)
	t.project = newProjectType(t)
	return t
}

// GenerateSchema builds the query schema over the given project store.
func GenerateSchema(projects store.ProjectStore) (graphql.Schema, error) {
	types := newSchemaTypes()

	queryFields := graphql.Fields{
		"health": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return "ok", nil
			},
		},
		"project": &graphql.Field{
			Type: types.project,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{
					Type: graphql.NewNonNull(graphql.ID),
				},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				id, ok := p.Args["id"].(string)
				if !ok {
					return nil, fmt.Errorf("id argument must be a string")
				}
				stored, err := projects.Get(p.Context, id)
				if err != nil {
					return nil, err
				}
				return stored, nil
			},
		},
		"projects": &graphql.Field{
			Type: graphql.NewList(types.summary),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return projects.List(p.Context)
			},
		},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: queryFields,
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}

	return schema, nil
}
