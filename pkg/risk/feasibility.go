package risk

import (
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/policy"
)

// FeasibilityClassifier maps aggregated attack potentials onto ordinal
// feasibility ratings through a banded threshold table. Higher potential
// means a harder attack, so it classifies less feasible.
type FeasibilityClassifier struct {
	table policy.FeasibilityTable
}

func NewFeasibilityClassifier(table policy.FeasibilityTable) *FeasibilityClassifier {
	return &FeasibilityClassifier{table: table}
}

// Classify returns the rating for a resolved potential. An unreachable
// potential always rates least feasible, regardless of the table.
func (c *FeasibilityClassifier) Classify(p model.Potential) model.FeasibilityRating {
	if !p.Reachable {
		return model.FeasibilityVeryLow
	}
	for _, band := range c.table.Bands {
		if p.Value <= band.Max {
			return band.Rating
		}
	}
	return c.table.Above
}
