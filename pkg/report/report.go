// Package report renders read-only documents over a project: the risk
// register as CSV or Markdown, a per-tree attack-path narrative, and a
// Graphviz rendering of the attack trees with the cheapest attack
// marked. Every renderer recalculates the project first and works on
// the recalculated snapshot, so a report can never show stale derived
// values. Nothing in this package mutates its input.
package report

import (
	"sort"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
)

// Generator renders reports. It is stateless apart from the
// recalculator it runs before every rendering and is safe for
// concurrent use.
type Generator struct {
	recalc *risk.ProjectRecalculator
}

// NewGenerator builds a report generator. A nil recalculator selects
// one over the default policy tables.
func NewGenerator(recalc *risk.ProjectRecalculator) *Generator {
	if recalc == nil {
		recalc = risk.NewProjectRecalculator(nil)
	}
	return &Generator{recalc: recalc}
}

// Register row sources.
const (
	sourceTree   = "attack tree"
	sourceManual = "manual"
)

// registerRow is one line of the risk register.
type registerRow struct {
	ScenarioID    string
	ScenarioTitle string
	ThreatID      string
	ThreatTitle   string
	AssetTitle    string
	Source        string
	Potential     model.Potential
	Feasibility   model.FeasibilityRating
	Impact        model.Impact
	Risk          model.RiskLevel
	Treatment     model.Treatment
}

// registerRows recalculates the project and flattens its scenarios
// into register rows, worst risk first, id order within a level.
func (g *Generator) registerRows(p *model.Project) ([]registerRow, *risk.Result, error) {
	result, err := g.recalc.Recalculate(p)
	if err != nil {
		return nil, nil, err
	}

	proj := result.Project
	threats := proj.ThreatIndex()
	assets := proj.AssetIndex()

	rows := make([]registerRow, 0, len(proj.Scenarios))
	for _, s := range proj.Scenarios {
		row := registerRow{
			ScenarioID:    s.ID,
			ScenarioTitle: s.Title,
			ThreatID:      s.ThreatID,
			Source:        sourceManual,
			Potential:     s.Derived.Potential,
			Feasibility:   s.Derived.Feasibility,
			Impact:        s.Derived.Impact,
			Risk:          s.Derived.Risk,
			Treatment:     s.Derived.Treatment,
		}
		if t, ok := threats[s.ThreatID]; ok {
			row.ThreatTitle = t.Title
			if a, ok := assets[t.AssetID]; ok {
				row.AssetTitle = a.Title
			}
			if _, ok := result.Trees[t.ID]; ok {
				row.Source = sourceTree
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Risk != rows[j].Risk {
			return rows[i].Risk > rows[j].Risk
		}
		return rows[i].ScenarioID < rows[j].ScenarioID
	})
	return rows, result, nil
}

// treeRoots returns the evaluated attack-tree root ids in id order so
// reports render trees deterministically.
func treeRoots(result *risk.Result) []string {
	roots := make([]string, 0, len(result.Trees))
	for id := range result.Trees {
		roots = append(roots, id)
	}
	sort.Strings(roots)
	return roots
}
