package risk

import (
	"testing"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/policy"
)

func defaultResolver() *RiskMatrixResolver {
	p := policy.Default()
	return NewRiskMatrixResolver(p.Matrix, p.Treatments)
}

func TestResolveDefaultMatrix(t *testing.T) {
	r := defaultResolver()

	tests := []struct {
		name        string
		feasibility model.FeasibilityRating
		impact      model.Impact
		want        model.RiskLevel
	}{
		{"no impact stays very low", model.FeasibilityHigh, model.ImpactNone, model.RiskVeryLow},
		{"minor and high", model.FeasibilityHigh, model.ImpactMinor, model.RiskLow},
		{"moderate and medium", model.FeasibilityMedium, model.ImpactModerate, model.RiskMedium},
		{"major and medium", model.FeasibilityMedium, model.ImpactMajor, model.RiskHigh},
		{"severe and high is critical", model.FeasibilityHigh, model.ImpactSevere, model.RiskCritical},
		{"severe but barely feasible", model.FeasibilityVeryLow, model.ImpactSevere, model.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.feasibility, tt.impact); got != tt.want {
				t.Errorf("Resolve(%s, %s) = %s, want %s", tt.feasibility, tt.impact, got, tt.want)
			}
		})
	}
}

func TestResolveClampsOutOfRange(t *testing.T) {
	r := defaultResolver()

	if got := r.Resolve(model.FeasibilityRating(99), model.ImpactSevere); got != model.RiskCritical {
		t.Errorf("Expected clamp to the highest feasibility column, got %s", got)
	}
	if got := r.Resolve(model.FeasibilityHigh, model.Impact(99)); got != model.RiskCritical {
		t.Errorf("Expected clamp to the severe row, got %s", got)
	}
	if got := r.Resolve(model.FeasibilityRating(-1), model.ImpactNone); got != model.RiskVeryLow {
		t.Errorf("Expected clamp to the lowest column, got %s", got)
	}
}

func TestResolveEmptyMatrix(t *testing.T) {
	r := NewRiskMatrixResolver(policy.RiskMatrix{}, nil)

	if got := r.Resolve(model.FeasibilityHigh, model.ImpactSevere); got != model.RiskVeryLow {
		t.Errorf("Expected very_low from an empty matrix, got %s", got)
	}
}

func TestTreatmentDefaults(t *testing.T) {
	r := defaultResolver()

	tests := []struct {
		level model.RiskLevel
		want  model.Treatment
	}{
		{model.RiskVeryLow, model.TreatmentRetain},
		{model.RiskLow, model.TreatmentRetain},
		{model.RiskMedium, model.TreatmentReduce},
		{model.RiskHigh, model.TreatmentReduce},
		{model.RiskCritical, model.TreatmentAvoid},
	}

	for _, tt := range tests {
		if got := r.Treatment(tt.level); got != tt.want {
			t.Errorf("Treatment(%s) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestTreatmentMissingLevelRetains(t *testing.T) {
	r := NewRiskMatrixResolver(policy.Default().Matrix, map[model.RiskLevel]model.Treatment{})

	if got := r.Treatment(model.RiskCritical); got != model.TreatmentRetain {
		t.Errorf("Expected retain fallback, got %s", got)
	}
}
