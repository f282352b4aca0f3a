package model

import (
	"fmt"
	"strings"
	"time"
)

// Project is the complete working set of one TARA analysis: every entity
// collection plus the append-only history log. It is the single ownership
// root; relationships between entities are id references resolved through
// the index maps, never embedded copies.
//
// A Project is a plain value with no internal locking. Callers that share
// one across goroutines must serialize access themselves; the engine and
// stores operate on deep clones.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Assets          []*Asset            `json:"assets"`
	DamageScenarios []*DamageScenario   `json:"damage_scenarios"`
	Threats         []*Threat           `json:"threats"`
	Scenarios       []*ThreatScenario   `json:"threat_scenarios"`
	Nodes           []*AttackTreeNode   `json:"attack_tree_nodes"`
	Configurations  []*ToeConfiguration `json:"configurations"`
	Controls        []*SecurityControl  `json:"controls"`
	Goals           []*SecurityGoal     `json:"goals"`

	History []*HistoryEntry `json:"history,omitempty"`
}

// NewProject creates an empty project with the given identity.
func NewProject(id, title string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the modification timestamp.
func (p *Project) Touch() {
	p.UpdatedAt = time.Now().UTC()
}

// NodeIndex builds an id-keyed map of attack-tree nodes. On duplicate ids
// the first occurrence wins, keeping lookups deterministic for data that
// arrived through import without validation.
func (p *Project) NodeIndex() map[string]*AttackTreeNode {
	idx := make(map[string]*AttackTreeNode, len(p.Nodes))
	for _, n := range p.Nodes {
		if _, exists := idx[n.ID]; !exists {
			idx[n.ID] = n
		}
	}
	return idx
}

// ThreatIndex builds an id-keyed map of threats. First occurrence wins.
func (p *Project) ThreatIndex() map[string]*Threat {
	idx := make(map[string]*Threat, len(p.Threats))
	for _, t := range p.Threats {
		if _, exists := idx[t.ID]; !exists {
			idx[t.ID] = t
		}
	}
	return idx
}

// ScenarioIndex builds an id-keyed map of threat scenarios. First
// occurrence wins.
func (p *Project) ScenarioIndex() map[string]*ThreatScenario {
	idx := make(map[string]*ThreatScenario, len(p.Scenarios))
	for _, s := range p.Scenarios {
		if _, exists := idx[s.ID]; !exists {
			idx[s.ID] = s
		}
	}
	return idx
}

// DamageIndex builds an id-keyed map of damage scenarios. First
// occurrence wins.
func (p *Project) DamageIndex() map[string]*DamageScenario {
	idx := make(map[string]*DamageScenario, len(p.DamageScenarios))
	for _, d := range p.DamageScenarios {
		if _, exists := idx[d.ID]; !exists {
			idx[d.ID] = d
		}
	}
	return idx
}

// AssetIndex builds an id-keyed map of assets. First occurrence wins.
func (p *Project) AssetIndex() map[string]*Asset {
	idx := make(map[string]*Asset, len(p.Assets))
	for _, a := range p.Assets {
		if _, exists := idx[a.ID]; !exists {
			idx[a.ID] = a
		}
	}
	return idx
}

// ConfigurationIndex builds an id-keyed map of TOE configurations. First
// occurrence wins.
func (p *Project) ConfigurationIndex() map[string]*ToeConfiguration {
	idx := make(map[string]*ToeConfiguration, len(p.Configurations))
	for _, c := range p.Configurations {
		if _, exists := idx[c.ID]; !exists {
			idx[c.ID] = c
		}
	}
	return idx
}

// ActiveConfigurationIDs returns the set of configuration ids currently
// flagged active. An empty set is valid: nodes without configuration
// gating stay universally active, gated nodes drop out.
func (p *Project) ActiveConfigurationIDs() map[string]bool {
	active := make(map[string]bool)
	for _, c := range p.Configurations {
		if c.Active {
			active[c.ID] = true
		}
	}
	return active
}

// AppendHistory appends an entry to the append-only history log.
func (p *Project) AppendHistory(entry *HistoryEntry) {
	if entry == nil {
		return
	}
	p.History = append(p.History, entry)
}

// ProjectStats summarizes collection sizes for logging and monitoring.
type ProjectStats struct {
	Assets          int `json:"assets"`
	DamageScenarios int `json:"damage_scenarios"`
	Threats         int `json:"threats"`
	Scenarios       int `json:"threat_scenarios"`
	Nodes           int `json:"attack_tree_nodes"`
	Configurations  int `json:"configurations"`
	Controls        int `json:"controls"`
	Goals           int `json:"goals"`
	HistoryEntries  int `json:"history_entries"`
}

// Stats returns the current collection sizes.
func (p *Project) Stats() ProjectStats {
	return ProjectStats{
		Assets:          len(p.Assets),
		DamageScenarios: len(p.DamageScenarios),
		Threats:         len(p.Threats),
		Scenarios:       len(p.Scenarios),
		Nodes:           len(p.Nodes),
		Configurations:  len(p.Configurations),
		Controls:        len(p.Controls),
		Goals:           len(p.Goals),
		HistoryEntries:  len(p.History),
	}
}

// Clone returns a deep copy of the project. The engine recalculates on a
// clone so callers keep an untouched snapshot of their input.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	clone := &Project{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Assets != nil {
		clone.Assets = make([]*Asset, len(p.Assets))
		for i, a := range p.Assets {
			clone.Assets[i] = a.Clone()
		}
	}
	if p.DamageScenarios != nil {
		clone.DamageScenarios = make([]*DamageScenario, len(p.DamageScenarios))
		for i, d := range p.DamageScenarios {
			clone.DamageScenarios[i] = d.Clone()
		}
	}
	if p.Threats != nil {
		clone.Threats = make([]*Threat, len(p.Threats))
		for i, t := range p.Threats {
			clone.Threats[i] = t.Clone()
		}
	}
	if p.Scenarios != nil {
		clone.Scenarios = make([]*ThreatScenario, len(p.Scenarios))
		for i, s := range p.Scenarios {
			clone.Scenarios[i] = s.Clone()
		}
	}
	if p.Nodes != nil {
		clone.Nodes = make([]*AttackTreeNode, len(p.Nodes))
		for i, n := range p.Nodes {
			clone.Nodes[i] = n.Clone()
		}
	}
	if p.Configurations != nil {
		clone.Configurations = make([]*ToeConfiguration, len(p.Configurations))
		for i, c := range p.Configurations {
			clone.Configurations[i] = c.Clone()
		}
	}
	if p.Controls != nil {
		clone.Controls = make([]*SecurityControl, len(p.Controls))
		for i, c := range p.Controls {
			clone.Controls[i] = c.Clone()
		}
	}
	if p.Goals != nil {
		clone.Goals = make([]*SecurityGoal, len(p.Goals))
		for i, g := range p.Goals {
			clone.Goals[i] = g.Clone()
		}
	}
	if p.History != nil {
		clone.History = make([]*HistoryEntry, len(p.History))
		for i, h := range p.History {
			clone.History[i] = h.Clone()
		}
	}
	return clone
}

// Validate checks structural soundness: non-empty unique ids per
// collection, well-formed attack-potential tuples, and node shapes that
// are unambiguously leaf or internal. It reports every problem found, not
// just the first. Dangling id references are deliberately not validated
// here; the engine tolerates them and reports warnings instead.
func (p *Project) Validate() error {
	if p == nil {
		return ErrNilProject
	}

	var problems []string
	check := func(kind, id string, seen map[string]bool) {
		if id == "" {
			problems = append(problems, fmt.Sprintf("%s with empty id", kind))
			return
		}
		if seen[id] {
			problems = append(problems, fmt.Sprintf("duplicate %s id %q", kind, id))
			return
		}
		seen[id] = true
	}

	seen := make(map[string]bool, len(p.Assets))
	for _, a := range p.Assets {
		check(EntityAsset, a.ID, seen)
	}

	seen = make(map[string]bool, len(p.DamageScenarios))
	for _, d := range p.DamageScenarios {
		check(EntityDamage, d.ID, seen)
		if !d.Severity.Valid() {
			problems = append(problems, fmt.Sprintf("%s %q: severity out of range", EntityDamage, d.ID))
		}
	}

	seen = make(map[string]bool, len(p.Threats))
	for _, t := range p.Threats {
		check(EntityThreat, t.ID, seen)
		if !t.InitialFeasibility.Valid() {
			problems = append(problems, fmt.Sprintf("%s %q: initial feasibility out of range", EntityThreat, t.ID))
		}
		if !t.ResidualFeasibility.Valid() {
			problems = append(problems, fmt.Sprintf("%s %q: residual feasibility out of range", EntityThreat, t.ID))
		}
	}

	seen = make(map[string]bool, len(p.Scenarios))
	for _, s := range p.Scenarios {
		check(EntityScenario, s.ID, seen)
		if !s.ManualPotential.Valid() {
			problems = append(problems, fmt.Sprintf("%s %q: negative attack-potential component", EntityScenario, s.ID))
		}
	}

	seen = make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		check(EntityNode, n.ID, seen)
		if n.Potential != nil && !n.Potential.Valid() {
			problems = append(problems, fmt.Sprintf("%s %q: negative attack-potential component", EntityNode, n.ID))
		}
		if n.Potential != nil && n.Gate != GateNone {
			problems = append(problems, fmt.Sprintf("%s %q: carries both a leaf tuple and a gate", EntityNode, n.ID))
		}
	}

	seen = make(map[string]bool, len(p.Configurations))
	for _, c := range p.Configurations {
		check(EntityConfiguration, c.ID, seen)
	}

	seen = make(map[string]bool, len(p.Controls))
	for _, c := range p.Controls {
		check(EntityControl, c.ID, seen)
	}

	seen = make(map[string]bool, len(p.Goals))
	for _, g := range p.Goals {
		check(EntityGoal, g.ID, seen)
	}

	if len(problems) == 0 {
		return nil
	}
	return NewError("validate").Project(p.ID).
		Context(strings.Join(problems, "; ")).
		Cause(fmt.Errorf("%d problem(s)", len(problems))).
		Err()
}
