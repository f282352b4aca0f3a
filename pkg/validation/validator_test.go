package validation

import (
	"strings"
	"testing"
)

// TestValidateNodeRequest tests attack-tree node request validation
func TestValidateNodeRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         NodeRequest
		expectError bool
		errorField  string
	}{
		{
			name: "Valid leaf node",
			req: NodeRequest{
				ID:        "AT_001",
				Title:     "Flash modified firmware",
				Potential: &PotentialRequest{Time: 4, Expertise: 6, Knowledge: 3},
			},
			expectError: false,
		},
		{
			name: "Valid internal OR node",
			req: NodeRequest{
				ID:    "THR_001",
				Gate:  "OR",
				Links: []string{"AT_001", "AT_002"},
				Tags:  []string{"attack-root"},
			},
			expectError: false,
		},
		{
			name: "Valid internal AND node",
			req: NodeRequest{
				ID:    "AT_010",
				Gate:  "AND",
				Links: []string{"AT_011", "AT_012"},
			},
			expectError: false,
		},
		{
			name: "Gated node with configurations",
			req: NodeRequest{
				ID:             "AT_020",
				Potential:      &PotentialRequest{Time: 1},
				Configurations: []string{"CFG_DEBUG"},
			},
			expectError: false,
		},
		{
			name:        "Missing id - invalid",
			req:         NodeRequest{Gate: "OR", Links: []string{"AT_001"}},
			expectError: true,
			errorField:  "ID",
		},
		{
			name: "Unknown gate - invalid",
			req: NodeRequest{
				ID:    "AT_030",
				Gate:  "XOR",
				Links: []string{"AT_001"},
			},
			expectError: true,
			errorField:  "Gate",
		},
		{
			name: "Tuple and gate together - invalid",
			req: NodeRequest{
				ID:        "AT_031",
				Gate:      "AND",
				Links:     []string{"AT_001"},
				Potential: &PotentialRequest{Time: 1},
			},
			expectError: true,
			errorField:  "Gate",
		},
		{
			name: "Leaf with child links - invalid",
			req: NodeRequest{
				ID:        "AT_032",
				Potential: &PotentialRequest{Time: 1},
				Links:     []string{"AT_001"},
			},
			expectError: true,
			errorField:  "Links",
		},
		{
			name: "Negative tuple component - invalid",
			req: NodeRequest{
				ID:        "AT_033",
				Potential: &PotentialRequest{Time: -1},
			},
			expectError: true,
			errorField:  "Time",
		},
		{
			name: "Id with invalid characters - invalid",
			req: NodeRequest{
				ID:        "AT 034",
				Potential: &PotentialRequest{},
			},
			expectError: true,
			errorField:  "id",
		},
		{
			name: "Id starting with punctuation - invalid",
			req: NodeRequest{
				ID:        "_AT_035",
				Potential: &PotentialRequest{},
			},
			expectError: true,
			errorField:  "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeRequest(&tt.req)

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if tt.expectError && err != nil && tt.errorField != "" {
				if !strings.Contains(err.Error(), tt.errorField) {
					t.Errorf("Expected error for field %s, but got: %v", tt.errorField, err)
				}
			}
		})
	}
}

// TestValidateThreatRequest tests threat request validation
func TestValidateThreatRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         ThreatRequest
		expectError bool
		errorField  string
	}{
		{
			name: "Valid threat",
			req: ThreatRequest{
				ID:                 "THR_001",
				AssetID:            "AS_001",
				Title:              "Spoof brake command",
				DamageScenarioIDs:  []string{"DS_001"},
				InitialFeasibility: "medium",
			},
			expectError: false,
		},
		{
			name: "Missing title - invalid",
			req: ThreatRequest{
				ID: "THR_002",
			},
			expectError: true,
			errorField:  "Title",
		},
		{
			name: "Unknown feasibility name - invalid",
			req: ThreatRequest{
				ID:                 "THR_003",
				Title:              "T",
				InitialFeasibility: "certain",
			},
			expectError: true,
			errorField:  "InitialFeasibility",
		},
		{
			name: "Bad damage scenario id - invalid",
			req: ThreatRequest{
				ID:                "THR_004",
				Title:             "T",
				DamageScenarioIDs: []string{"DS 001"},
			},
			expectError: true,
			errorField:  "DamageScenarioIDs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThreatRequest(&tt.req)

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if tt.expectError && err != nil && tt.errorField != "" {
				if !strings.Contains(err.Error(), tt.errorField) {
					t.Errorf("Expected error for field %s, but got: %v", tt.errorField, err)
				}
			}
		})
	}
}

// TestValidateDamageScenarioRequest tests damage scenario request validation
func TestValidateDamageScenarioRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         DamageScenarioRequest
		expectError bool
	}{
		{
			name: "Valid damage scenario",
			req: DamageScenarioRequest{
				ID:       "DS_001",
				Title:    "Loss of braking",
				Category: "safety",
				Severity: "severe",
			},
			expectError: false,
		},
		{
			name: "Empty category and severity - valid",
			req: DamageScenarioRequest{
				ID:    "DS_002",
				Title: "Unclassified",
			},
			expectError: false,
		},
		{
			name: "Unknown severity - invalid",
			req: DamageScenarioRequest{
				ID:       "DS_003",
				Title:    "D",
				Severity: "catastrophic",
			},
			expectError: true,
		},
		{
			name: "Unknown category - invalid",
			req: DamageScenarioRequest{
				ID:       "DS_004",
				Title:    "D",
				Category: "reputational",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDamageScenarioRequest(&tt.req)

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

// TestValidateScenarioRequest tests threat scenario request validation
func TestValidateScenarioRequest(t *testing.T) {
	valid := ScenarioRequest{
		ID:                "TS_001",
		ThreatID:          "THR_001",
		Title:             "OBD access in workshop",
		DamageScenarioIDs: []string{"DS_001", "DS_002"},
		Potential:         &PotentialRequest{Time: 4, Expertise: 6, Knowledge: 3},
	}
	if err := ValidateScenarioRequest(&valid); err != nil {
		t.Errorf("Expected no error but got: %v", err)
	}

	if err := ValidateScenarioRequest(nil); err == nil {
		t.Error("Expected error for nil request")
	}

	negative := valid
	negative.Potential = &PotentialRequest{Access: -2}
	if err := ValidateScenarioRequest(&negative); err == nil {
		t.Error("Expected error for negative tuple component")
	}
}

// TestValidateID tests identifier validation
func TestValidateID(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		expectError bool
	}{
		{"Simple id", "THR_001", false},
		{"Id with dash", "AT-42", false},
		{"Id with dots", "ds.brake.loss", false},
		{"Single character", "a", false},
		{"Empty id", "", true},
		{"Id with space", "THR 001", true},
		{"Id with slash", "THR/001", true},
		{"Id starting with underscore", "_THR", true},
		{"Id too long", strings.Repeat("a", 65), true},
		{"Id at max length", strings.Repeat("a", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)

			if tt.expectError && err == nil {
				t.Errorf("Expected error for id '%s' but got nil", tt.id)
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error for id '%s' but got: %v", tt.id, err)
			}
		})
	}
}
