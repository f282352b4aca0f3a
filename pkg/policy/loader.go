package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-tara/pkg/model"
)

// File schema. Levels are written by name so policy files stay readable
// next to the generated reports:
//
//	feasibility:
//	  bands:
//	    - max: 9
//	      rating: high
//	    - max: 13
//	      rating: medium
//	    - max: 19
//	      rating: low
//	  above: very_low
//	risk_matrix:
//	  none:     [very_low, very_low, very_low, very_low]
//	  minor:    [very_low, very_low, low, low]
//	  moderate: [very_low, low, medium, medium]
//	  major:    [low, medium, high, high]
//	  severe:   [low, medium, high, critical]
//	treatments:
//	  very_low: retain
//	  low: retain
//	  medium: reduce
//	  high: reduce
//	  critical: avoid
type policyFile struct {
	Feasibility struct {
		Bands []struct {
			Max    int    `yaml:"max"`
			Rating string `yaml:"rating"`
		} `yaml:"bands"`
		Above string `yaml:"above"`
	} `yaml:"feasibility"`
	RiskMatrix map[string][]string `yaml:"risk_matrix"`
	Treatments map[string]string   `yaml:"treatments"`
}

// Load reads and validates a policy file. The returned policy has passed
// the same invariant checks as the compiled-in default.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates policy YAML.
func Parse(data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	p := &Policy{}

	for i, band := range file.Feasibility.Bands {
		rating, err := model.ParseFeasibility(band.Rating)
		if err != nil {
			return nil, fmt.Errorf("feasibility band %d: %w", i, err)
		}
		p.Feasibility.Bands = append(p.Feasibility.Bands, FeasibilityBand{Max: band.Max, Rating: rating})
	}
	above, err := model.ParseFeasibility(file.Feasibility.Above)
	if err != nil {
		return nil, fmt.Errorf("feasibility above rating: %w", err)
	}
	p.Feasibility.Above = above

	p.Matrix.Levels = make([][]model.RiskLevel, impactCount)
	for impact := model.ImpactNone; impact <= model.ImpactSevere; impact++ {
		names, ok := file.RiskMatrix[impact.String()]
		if !ok {
			return nil, fmt.Errorf("risk matrix: missing row for impact %s", impact)
		}
		row := make([]model.RiskLevel, 0, len(names))
		for f, name := range names {
			level, err := model.ParseRiskLevel(name)
			if err != nil {
				return nil, fmt.Errorf("risk matrix row %s column %d: %w", impact, f, err)
			}
			row = append(row, level)
		}
		p.Matrix.Levels[impact] = row
	}

	p.Treatments = make(map[model.RiskLevel]model.Treatment, len(file.Treatments))
	for riskName, treatmentName := range file.Treatments {
		risk, err := model.ParseRiskLevel(riskName)
		if err != nil {
			return nil, fmt.Errorf("treatments: %w", err)
		}
		switch treatment := model.Treatment(treatmentName); treatment {
		case model.TreatmentRetain, model.TreatmentReduce, model.TreatmentShare, model.TreatmentAvoid:
			p.Treatments[risk] = treatment
		default:
			return nil, fmt.Errorf("treatments: unknown treatment %q for %s", treatmentName, risk)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
