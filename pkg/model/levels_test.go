package model

import (
	"encoding/json"
	"testing"
)

func TestImpactOrdering(t *testing.T) {
	ordered := []Impact{ImpactNone, ImpactMinor, ImpactModerate, ImpactMajor, ImpactSevere}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("expected %v < %v", ordered[i-1], ordered[i])
		}
	}
}

func TestFeasibilityOrdering(t *testing.T) {
	// Ascending means more feasible: a High rating is easier to achieve
	// than a VeryLow one.
	ordered := []FeasibilityRating{FeasibilityVeryLow, FeasibilityLow, FeasibilityMedium, FeasibilityHigh}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("expected %v < %v", ordered[i-1], ordered[i])
		}
	}
}

func TestRiskLevelOrdering(t *testing.T) {
	ordered := []RiskLevel{RiskVeryLow, RiskLow, RiskMedium, RiskHigh, RiskCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("expected %v < %v", ordered[i-1], ordered[i])
		}
	}
}

func TestParseImpact(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Impact
		wantErr bool
	}{
		{"severe", "severe", ImpactSevere, false},
		{"none", "none", ImpactNone, false},
		{"empty defaults to none", "", ImpactNone, false},
		{"unknown", "catastrophic", ImpactNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseImpact(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseImpact(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseImpact(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFeasibility(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FeasibilityRating
		wantErr bool
	}{
		{"high", "high", FeasibilityHigh, false},
		{"very low", "very_low", FeasibilityVeryLow, false},
		{"empty defaults to very low", "", FeasibilityVeryLow, false},
		{"unknown", "impossible", FeasibilityVeryLow, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeasibility(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFeasibility(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFeasibility(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RiskLevel
		wantErr bool
	}{
		{"critical", "critical", RiskCritical, false},
		{"medium", "medium", RiskMedium, false},
		{"empty defaults to very low", "", RiskVeryLow, false},
		{"unknown", "extreme", RiskVeryLow, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRiskLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRiskLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRiskLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelJSONRoundTrip(t *testing.T) {
	type derived struct {
		Feasibility FeasibilityRating `json:"feasibility"`
		Impact      Impact            `json:"impact"`
		Risk        RiskLevel         `json:"risk"`
	}

	in := derived{Feasibility: FeasibilityMedium, Impact: ImpactMajor, Risk: RiskHigh}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"feasibility":"medium","impact":"major","risk":"high"}`
	if string(data) != expected {
		t.Errorf("Marshal = %s, want %s", data, expected)
	}

	var out derived
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestLevelUnmarshalRejectsUnknown(t *testing.T) {
	var i Impact
	if err := json.Unmarshal([]byte(`"apocalyptic"`), &i); err == nil {
		t.Error("expected error for unknown impact name")
	}
}

func TestImpactCategoryString(t *testing.T) {
	tests := []struct {
		category ImpactCategory
		want     string
	}{
		{CategorySafety, "safety"},
		{CategoryFinancial, "financial"},
		{CategoryOperational, "operational"},
		{CategoryPrivacy, "privacy"},
		{ImpactCategory(""), ""},
	}

	for _, tt := range tests {
		if got := tt.category.String(); got != tt.want {
			t.Errorf("ImpactCategory(%q).String() = %q, want %q", string(tt.category), got, tt.want)
		}
	}
}

func TestGateValid(t *testing.T) {
	tests := []struct {
		gate  Gate
		valid bool
	}{
		{GateNone, true},
		{GateAnd, true},
		{GateOr, true},
		{Gate("XOR"), false},
	}

	for _, tt := range tests {
		if got := tt.gate.Valid(); got != tt.valid {
			t.Errorf("Gate(%q).Valid() = %v, want %v", tt.gate, got, tt.valid)
		}
	}
}
