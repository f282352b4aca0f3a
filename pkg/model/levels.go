package model

import (
	"encoding/json"
	"fmt"
)

// Impact is the ordinal severity of a damage scenario's consequence,
// ordered from no impact to severe.
type Impact int

const (
	// ImpactNone is the defined "no impact" value used when a scenario
	// links no existing damage scenarios.
	ImpactNone Impact = iota
	ImpactMinor
	ImpactModerate
	ImpactMajor
	ImpactSevere
)

// String returns the string representation of an impact level
func (i Impact) String() string {
	switch i {
	case ImpactNone:
		return "none"
	case ImpactMinor:
		return "minor"
	case ImpactModerate:
		return "moderate"
	case ImpactMajor:
		return "major"
	case ImpactSevere:
		return "severe"
	default:
		return "unknown"
	}
}

// ParseImpact converts a string to an Impact
func ParseImpact(s string) (Impact, error) {
	switch s {
	case "none", "":
		return ImpactNone, nil
	case "minor":
		return ImpactMinor, nil
	case "moderate":
		return ImpactModerate, nil
	case "major":
		return ImpactMajor, nil
	case "severe":
		return ImpactSevere, nil
	default:
		return ImpactNone, fmt.Errorf("unknown impact level %q", s)
	}
}

// Valid reports whether the impact is one of the defined levels
func (i Impact) Valid() bool {
	return i >= ImpactNone && i <= ImpactSevere
}

// MarshalJSON encodes the impact as its string name
func (i Impact) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON decodes the impact from its string name
func (i *Impact) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseImpact(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// FeasibilityRating is the ordinal classification of how achievable an
// attack is, ordered ascending: a higher rating means the attack is more
// feasible (requires less attacker effort).
type FeasibilityRating int

const (
	FeasibilityVeryLow FeasibilityRating = iota
	FeasibilityLow
	FeasibilityMedium
	FeasibilityHigh
)

// String returns the string representation of a feasibility rating
func (f FeasibilityRating) String() string {
	switch f {
	case FeasibilityVeryLow:
		return "very_low"
	case FeasibilityLow:
		return "low"
	case FeasibilityMedium:
		return "medium"
	case FeasibilityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseFeasibility converts a string to a FeasibilityRating
func ParseFeasibility(s string) (FeasibilityRating, error) {
	switch s {
	case "very_low", "":
		return FeasibilityVeryLow, nil
	case "low":
		return FeasibilityLow, nil
	case "medium":
		return FeasibilityMedium, nil
	case "high":
		return FeasibilityHigh, nil
	default:
		return FeasibilityVeryLow, fmt.Errorf("unknown feasibility rating %q", s)
	}
}

// Valid reports whether the rating is one of the defined levels
func (f FeasibilityRating) Valid() bool {
	return f >= FeasibilityVeryLow && f <= FeasibilityHigh
}

// MarshalJSON encodes the rating as its string name
func (f FeasibilityRating) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes the rating from its string name
func (f *FeasibilityRating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFeasibility(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// RiskLevel is the final ordinal classification of a threat scenario,
// combining feasibility and impact via the policy matrix.
type RiskLevel int

const (
	RiskVeryLow RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

// String returns the string representation of a risk level
func (r RiskLevel) String() string {
	switch r {
	case RiskVeryLow:
		return "very_low"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseRiskLevel converts a string to a RiskLevel
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "very_low", "":
		return RiskVeryLow, nil
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	case "critical":
		return RiskCritical, nil
	default:
		return RiskVeryLow, fmt.Errorf("unknown risk level %q", s)
	}
}

// Valid reports whether the level is one of the defined levels
func (r RiskLevel) Valid() bool {
	return r >= RiskVeryLow && r <= RiskCritical
}

// MarshalJSON encodes the level as its string name
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes the level from its string name
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Gate is the logic gate of an internal attack-tree node. A node with no
// gate and an attack-potential tuple is a leaf.
type Gate string

const (
	GateNone Gate = ""
	GateAnd  Gate = "AND"
	GateOr   Gate = "OR"
)

// Valid reports whether the gate is AND, OR, or absent
func (g Gate) Valid() bool {
	return g == GateNone || g == GateAnd || g == GateOr
}

// ImpactCategory classifies the kind of consequence a damage scenario
// describes. Categories are descriptive, not ordinal.
type ImpactCategory string

const (
	CategorySafety      ImpactCategory = "safety"
	CategoryFinancial   ImpactCategory = "financial"
	CategoryOperational ImpactCategory = "operational"
	CategoryPrivacy     ImpactCategory = "privacy"
)

// String returns the string representation of an impact category
func (c ImpactCategory) String() string {
	return string(c)
}

// Treatment is the decision recorded for a threat scenario once its risk
// level is known.
type Treatment string

const (
	TreatmentRetain Treatment = "retain"
	TreatmentReduce Treatment = "reduce"
	TreatmentShare  Treatment = "share"
	TreatmentAvoid  Treatment = "avoid"
)
