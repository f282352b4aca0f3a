package model

import (
	"strconv"
	"time"
)

// Node kinds and well-known role tags. Kind is a forward-compatibility
// tag; every node today is an attack step.
const (
	NodeKindAttack = "attack"

	TagAttackRoot     = "attack-root"
	TagCircumventRoot = "circumvent-root"
)

// AttackPotential is the five-component attacker effort estimate carried
// by leaf attack-tree nodes, and by threat scenarios as the manual
// fallback when no attack tree is modeled. All components are
// non-negative; the scalar potential of the tuple is the sum.
type AttackPotential struct {
	Time      int `json:"time"`
	Expertise int `json:"expertise"`
	Knowledge int `json:"knowledge"`
	Access    int `json:"access"`
	Equipment int `json:"equipment"`
}

// Sum returns the scalar attack potential of the tuple
func (ap AttackPotential) Sum() int {
	return ap.Time + ap.Expertise + ap.Knowledge + ap.Access + ap.Equipment
}

// Valid reports whether every component is non-negative
func (ap AttackPotential) Valid() bool {
	return ap.Time >= 0 && ap.Expertise >= 0 && ap.Knowledge >= 0 &&
		ap.Access >= 0 && ap.Equipment >= 0
}

// Potential is the resolved attack potential of a node or scenario.
// Unreachable subtrees carry no value; modelling this as an explicit tag
// instead of an "infinite" numeric sentinel keeps unreachable values out
// of sums and comparisons by construction.
type Potential struct {
	Value     int  `json:"value"`
	Reachable bool `json:"reachable"`
}

// ReachablePotential returns a reachable potential with the given value
func ReachablePotential(v int) Potential {
	return Potential{Value: v, Reachable: true}
}

// UnreachablePotential returns the unreachable potential
func UnreachablePotential() Potential {
	return Potential{}
}

// Plus returns the sum of two potentials. Unreachable dominates: if
// either operand is unreachable the result is unreachable.
func (p Potential) Plus(o Potential) Potential {
	if !p.Reachable || !o.Reachable {
		return UnreachablePotential()
	}
	return ReachablePotential(p.Value + o.Value)
}

// Less reports whether p is a strictly cheaper attack than o. Any
// reachable potential is cheaper than unreachable; two unreachable
// potentials are not ordered.
func (p Potential) Less(o Potential) bool {
	if !p.Reachable {
		return false
	}
	if !o.Reachable {
		return true
	}
	return p.Value < o.Value
}

// String renders the potential for logs and reports
func (p Potential) String() string {
	if !p.Reachable {
		return "unreachable"
	}
	return strconv.Itoa(p.Value)
}

// AttackTreeNode is a single step in a project's attack-tree graph.
// Exactly one of the two shapes is valid: a leaf carries an attack
// potential tuple and no gate; an internal node carries a gate and at
// least one link. Links are ordered child node ids, never embedded
// copies.
type AttackTreeNode struct {
	ID             string           `json:"id"`
	Kind           string           `json:"kind"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Links          []string         `json:"links,omitempty"`
	Gate           Gate             `json:"gate,omitempty"`
	Potential      *AttackPotential `json:"potential,omitempty"`
	Configurations []string         `json:"configurations,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
}

// IsLeaf reports whether the node has the leaf shape
func (n *AttackTreeNode) IsLeaf() bool {
	return n.Potential != nil && n.Gate == GateNone
}

// IsInternal reports whether the node has the internal shape
func (n *AttackTreeNode) IsInternal() bool {
	return n.Gate != GateNone && len(n.Links) > 0
}

// HasTag reports whether the node carries the given role tag
func (n *AttackTreeNode) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ActiveUnder reports whether the node participates in the graph for the
// given set of active TOE configuration ids. A node with no
// configuration gating is universally active; a gated node is active
// only if at least one of its configurations is in the active set.
func (n *AttackTreeNode) ActiveUnder(active map[string]bool) bool {
	if len(n.Configurations) == 0 {
		return true
	}
	for _, id := range n.Configurations {
		if active[id] {
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the node
func (n *AttackTreeNode) Clone() *AttackTreeNode {
	clone := *n
	clone.Links = append([]string(nil), n.Links...)
	clone.Configurations = append([]string(nil), n.Configurations...)
	clone.Tags = append([]string(nil), n.Tags...)
	if n.Potential != nil {
		p := *n.Potential
		clone.Potential = &p
	}
	return &clone
}

// ToeConfiguration represents a deployment or variant context of the
// target of evaluation. Attack-tree nodes gated to configurations are
// only reachable while one of their configurations is active.
type ToeConfiguration struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// Clone creates a copy of the configuration
func (c *ToeConfiguration) Clone() *ToeConfiguration {
	clone := *c
	return &clone
}

// DamageScenario describes a consequence of a successful attack, with an
// ordinal severity and a descriptive category.
type DamageScenario struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Category ImpactCategory `json:"category,omitempty"`
	Severity Impact         `json:"severity"`
}

// Clone creates a copy of the damage scenario
func (d *DamageScenario) Clone() *DamageScenario {
	clone := *d
	return &clone
}

// Asset is an item of the analyzed system that threats target.
type Asset struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Clone creates a copy of the asset
func (a *Asset) Clone() *Asset {
	clone := *a
	return &clone
}

// Threat is an analyst-identified threat against an asset. The initial
// and residual feasibility ratings are standalone manual entries,
// independent of any modeled attack tree; they are raw input, never
// derived. An attack tree belongs to the threat when a root-tagged node
// with the threat's id exists in the node collection.
type Threat struct {
	ID                  string            `json:"id"`
	AssetID             string            `json:"asset_id,omitempty"`
	Title               string            `json:"title"`
	Description         string            `json:"description,omitempty"`
	DamageScenarioIDs   []string          `json:"damage_scenario_ids,omitempty"`
	InitialFeasibility  FeasibilityRating `json:"initial_feasibility"`
	ResidualFeasibility FeasibilityRating `json:"residual_feasibility"`
}

// Clone creates a deep copy of the threat
func (t *Threat) Clone() *Threat {
	clone := *t
	clone.DamageScenarioIDs = append([]string(nil), t.DamageScenarioIDs...)
	return &clone
}

// DerivedValues are the recalculated fields of a threat scenario. They
// are created and overwritten exclusively by the recalculation pass and
// must never be edited directly.
type DerivedValues struct {
	Potential   Potential         `json:"potential"`
	Feasibility FeasibilityRating `json:"feasibility"`
	Impact      Impact            `json:"impact"`
	Risk        RiskLevel         `json:"risk"`
	Treatment   Treatment         `json:"treatment,omitempty"`
}

// ThreatScenario refines a threat into a concrete scenario with its own
// damage links, a manually entered attack-potential tuple used as a
// fallback when the threat has no attack tree, and the derived risk
// fields.
type ThreatScenario struct {
	ID                string          `json:"id"`
	ThreatID          string          `json:"threat_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	DamageScenarioIDs []string        `json:"damage_scenario_ids,omitempty"`
	ManualPotential   AttackPotential `json:"manual_potential"`
	Derived           DerivedValues   `json:"derived"`
}

// Clone creates a deep copy of the threat scenario
func (s *ThreatScenario) Clone() *ThreatScenario {
	clone := *s
	clone.DamageScenarioIDs = append([]string(nil), s.DamageScenarioIDs...)
	return &clone
}

// SecurityControl is a mitigation applied to one or more threat
// scenarios.
type SecurityControl struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ScenarioIDs []string `json:"scenario_ids,omitempty"`
}

// Clone creates a deep copy of the control
func (c *SecurityControl) Clone() *SecurityControl {
	clone := *c
	clone.ScenarioIDs = append([]string(nil), c.ScenarioIDs...)
	return &clone
}

// SecurityGoal is a high-level protection objective derived from the
// analysis.
type SecurityGoal struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ScenarioIDs []string `json:"scenario_ids,omitempty"`
}

// Clone creates a deep copy of the goal
func (g *SecurityGoal) Clone() *SecurityGoal {
	clone := *g
	clone.ScenarioIDs = append([]string(nil), g.ScenarioIDs...)
	return &clone
}

// HistoryEntry is one record of the project's append-only history log.
// Entries are appended by the surrounding application, never rewritten.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Clone creates a copy of the history entry
func (h *HistoryEntry) Clone() *HistoryEntry {
	clone := *h
	return &clone
}
