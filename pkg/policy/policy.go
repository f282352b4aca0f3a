// Package policy holds the organizational rating tables the risk engine
// evaluates against: the attack-potential band table, the risk matrix,
// and the treatment defaults. The tables are data; classification logic
// lives in the risk package. Compiled-in defaults are provided, and any
// loaded replacement must pass the same monotonicity validation.
package policy

import (
	"fmt"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

// FeasibilityBand maps one attack-potential range to a rating. A band
// covers all potentials up to and including Max that no earlier band
// covered.
type FeasibilityBand struct {
	Max    int
	Rating model.FeasibilityRating
}

// FeasibilityTable is the monotonic step function from scalar attack
// potential to feasibility rating. Bands are ascending by Max; Above is
// the rating for potentials beyond the last band. Low potential means a
// cheap attack, so ratings fall as Max rises.
type FeasibilityTable struct {
	Bands []FeasibilityBand
	Above model.FeasibilityRating
}

// RiskMatrix is the total lookup table from (impact, feasibility) to
// risk level. Rows are indexed by impact ordinal, columns by feasibility
// ordinal.
type RiskMatrix struct {
	Levels [][]model.RiskLevel
}

// Policy bundles the three tables a project is assessed against.
type Policy struct {
	Feasibility FeasibilityTable
	Matrix      RiskMatrix
	Treatments  map[model.RiskLevel]model.Treatment
}

// Default returns the compiled-in policy. The band boundaries follow the
// common attack-potential calibration where a summed potential of 13
// still rates medium feasibility and 20 or more rates very low.
func Default() *Policy {
	return &Policy{
		Feasibility: FeasibilityTable{
			Bands: []FeasibilityBand{
				{Max: 9, Rating: model.FeasibilityHigh},
				{Max: 13, Rating: model.FeasibilityMedium},
				{Max: 19, Rating: model.FeasibilityLow},
			},
			Above: model.FeasibilityVeryLow,
		},
		Matrix: RiskMatrix{
			Levels: [][]model.RiskLevel{
				// columns: very_low, low, medium, high feasibility
				{model.RiskVeryLow, model.RiskVeryLow, model.RiskVeryLow, model.RiskVeryLow}, // none
				{model.RiskVeryLow, model.RiskVeryLow, model.RiskLow, model.RiskLow},         // minor
				{model.RiskVeryLow, model.RiskLow, model.RiskMedium, model.RiskMedium},       // moderate
				{model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskHigh},            // major
				{model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical},        // severe
			},
		},
		Treatments: map[model.RiskLevel]model.Treatment{
			model.RiskVeryLow:  model.TreatmentRetain,
			model.RiskLow:      model.TreatmentRetain,
			model.RiskMedium:   model.TreatmentReduce,
			model.RiskHigh:     model.TreatmentReduce,
			model.RiskCritical: model.TreatmentAvoid,
		},
	}
}

// impactCount and feasibilityCount pin the matrix dimensions to the
// model's level sets.
const (
	impactCount      = int(model.ImpactSevere) + 1
	feasibilityCount = int(model.FeasibilityHigh) + 1
)

// Validate checks the structural and monotonicity invariants: band maxes
// strictly ascending with non-increasing ratings, a total risk matrix
// that never decreases along either axis, and a treatment entry for
// every risk level.
func (p *Policy) Validate() error {
	cv := validation.NewConfigValidator("Policy")

	cv.NonEmptySlice("Feasibility.Bands", len(p.Feasibility.Bands))

	maxes := make([]int, len(p.Feasibility.Bands))
	for i, band := range p.Feasibility.Bands {
		maxes[i] = band.Max
		cv.NonNegative(fmt.Sprintf("Feasibility.Bands[%d].Max", i), band.Max)
		if !band.Rating.Valid() {
			cv.Custom(fmt.Sprintf("Feasibility.Bands[%d].Rating", i), func() error {
				return fmt.Errorf("rating %d out of range", int(band.Rating))
			})
		}
	}
	cv.Ascending("Feasibility.Bands", maxes)

	// Higher potential must never rate more feasible.
	cv.Custom("Feasibility.Bands", func() error {
		for i := 1; i < len(p.Feasibility.Bands); i++ {
			if p.Feasibility.Bands[i].Rating > p.Feasibility.Bands[i-1].Rating {
				return fmt.Errorf("band %d rates %s above band %d's %s",
					i, p.Feasibility.Bands[i].Rating, i-1, p.Feasibility.Bands[i-1].Rating)
			}
		}
		if n := len(p.Feasibility.Bands); n > 0 && p.Feasibility.Above > p.Feasibility.Bands[n-1].Rating {
			return fmt.Errorf("above-band rating %s exceeds last band's %s",
				p.Feasibility.Above, p.Feasibility.Bands[n-1].Rating)
		}
		return nil
	})

	if !p.Feasibility.Above.Valid() {
		cv.Custom("Feasibility.Above", func() error {
			return fmt.Errorf("rating %d out of range", int(p.Feasibility.Above))
		})
	}

	cv.Custom("Matrix", func() error {
		if len(p.Matrix.Levels) != impactCount {
			return fmt.Errorf("expected %d impact rows, got %d", impactCount, len(p.Matrix.Levels))
		}
		for i, row := range p.Matrix.Levels {
			if len(row) != feasibilityCount {
				return fmt.Errorf("impact row %d: expected %d feasibility columns, got %d", i, feasibilityCount, len(row))
			}
			for f, level := range row {
				if !level.Valid() {
					return fmt.Errorf("entry [%d][%d]: risk level %d out of range", i, f, int(level))
				}
			}
		}
		return nil
	})

	cv.Custom("Matrix", func() error {
		if len(p.Matrix.Levels) != impactCount {
			return nil // dimension error already reported
		}
		for i, row := range p.Matrix.Levels {
			if len(row) != feasibilityCount {
				return nil
			}
			for f := 1; f < len(row); f++ {
				if row[f] < row[f-1] {
					return fmt.Errorf("row %d: risk decreases from %s to %s as feasibility rises", i, row[f-1], row[f])
				}
			}
			if i > 0 {
				for f := range row {
					if row[f] < p.Matrix.Levels[i-1][f] {
						return fmt.Errorf("column %d: risk decreases from %s to %s as impact rises",
							f, p.Matrix.Levels[i-1][f], row[f])
					}
				}
			}
		}
		return nil
	})

	cv.Custom("Treatments", func() error {
		for r := model.RiskVeryLow; r <= model.RiskCritical; r++ {
			treatment, ok := p.Treatments[r]
			if !ok {
				return fmt.Errorf("no treatment for risk level %s", r)
			}
			switch treatment {
			case model.TreatmentRetain, model.TreatmentReduce, model.TreatmentShare, model.TreatmentAvoid:
			default:
				return fmt.Errorf("unknown treatment %q for risk level %s", treatment, r)
			}
		}
		return nil
	})

	return cv.Validate()
}
