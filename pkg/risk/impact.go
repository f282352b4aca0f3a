package risk

import "github.com/dd0wney/cluso-tara/pkg/model"

// ImpactAggregator resolves damage-scenario references to the worst-case
// severity among them.
type ImpactAggregator struct {
	damages map[string]*model.DamageScenario
}

func NewImpactAggregator(damages map[string]*model.DamageScenario) *ImpactAggregator {
	return &ImpactAggregator{damages: damages}
}

// Aggregate returns the maximum severity among the references that
// resolve, along with the ids that did not. No resolving references
// means no modeled impact.
func (ia *ImpactAggregator) Aggregate(ids []string) (model.Impact, []string) {
	worst := model.ImpactNone
	var missing []string
	for _, id := range ids {
		damage, ok := ia.damages[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if damage.Severity > worst {
			worst = damage.Severity
		}
	}
	return worst, missing
}
