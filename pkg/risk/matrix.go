package risk

import (
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/policy"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

// RiskMatrixResolver crosses feasibility and impact through a policy
// matrix to a risk level, and maps risk levels to treatment decisions.
type RiskMatrixResolver struct {
	matrix     policy.RiskMatrix
	treatments map[model.RiskLevel]model.Treatment
}

func NewRiskMatrixResolver(matrix policy.RiskMatrix, treatments map[model.RiskLevel]model.Treatment) *RiskMatrixResolver {
	return &RiskMatrixResolver{matrix: matrix, treatments: treatments}
}

// Resolve returns the risk level for a feasibility rating and an impact
// level. Out-of-range ordinals clamp to the matrix bounds.
func (r *RiskMatrixResolver) Resolve(feasibility model.FeasibilityRating, impact model.Impact) model.RiskLevel {
	if len(r.matrix.Levels) == 0 {
		return model.RiskVeryLow
	}
	row := validation.ClampInt(int(impact), 0, len(r.matrix.Levels)-1)
	cells := r.matrix.Levels[row]
	if len(cells) == 0 {
		return model.RiskVeryLow
	}
	col := validation.ClampInt(int(feasibility), 0, len(cells)-1)
	return cells[col]
}

// Treatment returns the configured treatment decision for a risk level.
// Levels missing from the policy default to retaining the risk.
func (r *RiskMatrixResolver) Treatment(level model.RiskLevel) model.Treatment {
	if t, ok := r.treatments[level]; ok {
		return t
	}
	return model.TreatmentRetain
}
