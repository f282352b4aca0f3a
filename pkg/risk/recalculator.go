package risk

import (
	"fmt"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/policy"
)

// Result is the outcome of one recalculation pass: the derived project
// snapshot, every warning raised, and the resolved tree aggregates.
type Result struct {
	// Project is a deep copy of the input with every derived field
	// rewritten. The input snapshot is never mutated.
	Project *model.Project `json:"project"`

	// Warnings lists the findings of the pass in deterministic order:
	// scenario-level findings first, then tree findings in traversal
	// order.
	Warnings []Warning `json:"warnings,omitempty"`

	// Trees holds the aggregate of each evaluated attack-tree root,
	// keyed by root node id.
	Trees map[string]Aggregate `json:"trees,omitempty"`

	// Nodes holds the aggregate of every node resolved during the pass,
	// roots included.
	Nodes map[string]Aggregate `json:"nodes,omitempty"`

	Stats Stats `json:"stats"`
}

// Stats summarizes a recalculation pass.
type Stats struct {
	Scenarios        int `json:"scenarios"`
	TreesEvaluated   int `json:"trees_evaluated"`
	ManualFallbacks  int `json:"manual_fallbacks"`
	UnreachableTrees int `json:"unreachable_trees"`
	Warnings         int `json:"warnings"`
}

// ProjectRecalculator derives every computed field of a project from its
// raw entities under a risk policy. A pass is a pure snapshot-to-snapshot
// function: it never mutates its input, never fails over modeling errors,
// and produces identical output for identical input, so callers may rerun
// it freely and must hold no locks around it.
type ProjectRecalculator struct {
	policy *policy.Policy
}

// NewProjectRecalculator builds a recalculator over the given policy.
// A nil policy selects the default tables.
func NewProjectRecalculator(p *policy.Policy) *ProjectRecalculator {
	if p == nil {
		p = policy.Default()
	}
	return &ProjectRecalculator{policy: p}
}

// Policy returns the policy the recalculator derives with.
func (r *ProjectRecalculator) Policy() *policy.Policy {
	return r.policy
}

// Recalculate runs a pass under the project's own active configurations.
func (r *ProjectRecalculator) Recalculate(project *model.Project) (*Result, error) {
	if project == nil {
		return nil, model.ErrNilProject
	}
	return r.RecalculateUnder(project, project.ActiveConfigurationIDs())
}

// RecalculateUnder runs a pass with an explicit active-configuration
// set, for what-if evaluation of a variant without flipping the stored
// configuration flags. With a nil or empty set only ungated nodes
// participate in tree evaluation.
func (r *ProjectRecalculator) RecalculateUnder(project *model.Project, active map[string]bool) (*Result, error) {
	if project == nil {
		return nil, model.ErrNilProject
	}

	derived := project.Clone()
	nodes := derived.NodeIndex()
	p := &pass{
		active:     active,
		threats:    derived.ThreatIndex(),
		nodes:      nodes,
		aggregator: NewTreeAggregator(nodes, active),
		classifier: NewFeasibilityClassifier(r.policy.Feasibility),
		impacts:    NewImpactAggregator(derived.DamageIndex()),
		resolver:   NewRiskMatrixResolver(r.policy.Matrix, r.policy.Treatments),
		result:     &Result{Project: derived, Trees: make(map[string]Aggregate)},
	}

	for _, scenario := range derived.Scenarios {
		p.recalculateScenario(scenario)
	}

	p.result.Warnings = append(p.result.Warnings, p.aggregator.Warnings()...)
	p.result.Nodes = p.aggregator.Results()
	p.result.Stats.Scenarios = len(derived.Scenarios)
	p.result.Stats.Warnings = len(p.result.Warnings)
	return p.result, nil
}

// pass bundles the per-pass state so the scenario loop stays readable.
type pass struct {
	active     map[string]bool
	threats    map[string]*model.Threat
	nodes      map[string]*model.AttackTreeNode
	aggregator *TreeAggregator
	classifier *FeasibilityClassifier
	impacts    *ImpactAggregator
	resolver   *RiskMatrixResolver
	result     *Result
}

// recalculateScenario derives one threat scenario: effective potential
// from the threat's attack tree when one is modeled, otherwise from the
// scenario's manual tuple, then feasibility, impact, risk, and treatment.
func (p *pass) recalculateScenario(scenario *model.ThreatScenario) {
	potential := model.ReachablePotential(scenario.ManualPotential.Sum())
	usedTree := false

	threat, ok := p.threats[scenario.ThreatID]
	if scenario.ThreatID != "" && !ok {
		p.warn(Warning{
			Code:       WarnMissingThreat,
			ScenarioID: scenario.ID,
			Detail:     fmt.Sprintf("threat %q does not exist", scenario.ThreatID),
		})
	}
	if ok {
		if root := p.treeRoot(threat.ID); root != nil {
			agg := p.aggregator.Evaluate(root.ID)
			p.result.Trees[root.ID] = agg
			potential = agg.Potential
			usedTree = true
			if !agg.Potential.Reachable {
				p.result.Stats.UnreachableTrees++
				p.warn(Warning{
					Code:       WarnUnreachableSubtree,
					NodeID:     root.ID,
					ScenarioID: scenario.ID,
					Detail:     "attack tree resolves unreachable under the active configurations",
				})
			}
		}
	}

	feasibility := p.classifier.Classify(potential)
	impact, missing := p.impacts.Aggregate(scenario.DamageScenarioIDs)
	for _, id := range missing {
		p.warn(Warning{
			Code:       WarnMissingDamage,
			ScenarioID: scenario.ID,
			Detail:     fmt.Sprintf("damage scenario %q does not exist", id),
		})
	}
	risk := p.resolver.Resolve(feasibility, impact)

	scenario.Derived = model.DerivedValues{
		Potential:   potential,
		Feasibility: feasibility,
		Impact:      impact,
		Risk:        risk,
		Treatment:   p.resolver.Treatment(risk),
	}

	if usedTree {
		p.result.Stats.TreesEvaluated++
	} else {
		p.result.Stats.ManualFallbacks++
	}
}

// treeRoot finds the attack-tree root modeled for a threat: the node
// whose id equals the threat's id, tagged as an attack root and active
// under the configuration set. Anything else means no tree is modeled
// and the scenario keeps its manual tuple.
func (p *pass) treeRoot(threatID string) *model.AttackTreeNode {
	root, ok := p.nodes[threatID]
	if !ok || !root.HasTag(model.TagAttackRoot) || !root.ActiveUnder(p.active) {
		return nil
	}
	return root
}

func (p *pass) warn(w Warning) {
	p.result.Warnings = append(p.result.Warnings, w)
}

// Distribution counts a project's threat scenarios by derived risk
// level, keyed by the level's string name. Consumers that react to
// recalculations (feed events, gauges, dashboards) share this shape.
func Distribution(p *model.Project) map[string]int {
	if p == nil {
		return nil
	}
	dist := make(map[string]int)
	for _, s := range p.Scenarios {
		dist[s.Derived.Risk.String()]++
	}
	return dist
}
