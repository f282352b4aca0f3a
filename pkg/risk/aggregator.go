package risk

import (
	"fmt"

	"github.com/dd0wney/cluso-tara/pkg/model"
)

// Aggregate is the resolved outcome for one attack-tree node: the
// aggregated attack potential and the node ids of the cheapest path
// that achieves it. An unreachable aggregate carries no path.
type Aggregate struct {
	Potential    model.Potential `json:"potential"`
	CriticalPath []string        `json:"critical_path,omitempty"`
}

// TreeAggregator evaluates attack trees bottom-up over an id-keyed node
// arena using an explicit work stack, never the call stack, so arbitrarily
// deep and even cyclic graphs cannot overflow.
//
// Each node is resolved exactly once per aggregator: results are memoized
// and shared across Evaluate calls, which makes shared subtrees (DAG
// diamonds) cheap and keeps a whole-project pass linear in nodes plus
// links. One aggregator must therefore only be used against a fixed node
// collection and active-configuration set; recalculation constructs a
// fresh one per pass.
//
// Resolution rules:
//   - leaf: the sum of its attack-potential components, reachable
//   - OR gate: the minimum child aggregate; ties go to the first link
//     in declaration order
//   - AND gate: the sum of all child aggregates
//   - links to nodes inactive under the configuration set are skipped as
//     if absent
//   - links to missing nodes are skipped and reported
//   - a link back onto the evaluation path is reported as a cycle, and
//     every node on that cycle resolves unreachable, sibling branches
//     notwithstanding
//   - malformed nodes (leaf tuple plus gate, gate without links, neither
//     tuple nor gate, negative tuple component) resolve unreachable and
//     are reported
//
// Unreachable dominates AND sums and loses every OR comparison, so a
// blocked branch can never make an attack look cheaper.
type TreeAggregator struct {
	nodes  map[string]*model.AttackTreeNode
	active map[string]bool

	memo     map[string]Aggregate
	poisoned map[string]bool
	warnings []Warning
}

// NewTreeAggregator builds an aggregator over the given node arena and
// active-configuration set. With a nil or empty set only ungated nodes
// participate.
func NewTreeAggregator(nodes map[string]*model.AttackTreeNode, active map[string]bool) *TreeAggregator {
	return &TreeAggregator{
		nodes:    nodes,
		active:   active,
		memo:     make(map[string]Aggregate),
		poisoned: make(map[string]bool),
	}
}

// frame is one entry of the explicit evaluation stack. A frame is pushed
// unexpanded; on first visit it either resolves immediately or records
// its effective children and waits below them for the combine visit.
type frame struct {
	id       string
	expanded bool
	children []string
}

// Evaluate resolves the aggregate for rootID. Missing roots resolve
// unreachable with a dangling-link warning; roots inactive under the
// configuration set resolve unreachable silently, matching a node that
// is absent from the graph.
func (a *TreeAggregator) Evaluate(rootID string) Aggregate {
	root, ok := a.nodes[rootID]
	if !ok {
		a.warn(Warning{
			Code:   WarnDanglingLink,
			NodeID: rootID,
			Detail: fmt.Sprintf("evaluation root %q does not exist", rootID),
		})
		return Aggregate{Potential: model.UnreachablePotential()}
	}
	if !root.ActiveUnder(a.active) {
		return Aggregate{Potential: model.UnreachablePotential()}
	}
	if agg, done := a.memo[rootID]; done {
		return agg
	}

	onPath := make(map[string]bool)
	var pathStack []string
	stack := []frame{{id: rootID}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if !top.expanded {
			if a.firstVisit(top, onPath, &pathStack, &stack) {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		agg := a.combine(a.nodes[top.id], top.children)
		if a.poisoned[top.id] {
			agg = Aggregate{Potential: model.UnreachablePotential()}
		}
		a.memo[top.id] = agg
		delete(onPath, top.id)
		pathStack = pathStack[:len(pathStack)-1]
		stack = stack[:len(stack)-1]
	}

	return a.memo[rootID]
}

// firstVisit handles the expansion visit of a frame. It reports true if
// the frame resolved immediately and should be popped, false if children
// were queued and the frame awaits its combine visit.
func (a *TreeAggregator) firstVisit(top *frame, onPath map[string]bool, pathStack *[]string, stack *[]frame) bool {
	if _, done := a.memo[top.id]; done {
		return true
	}

	node := a.nodes[top.id]
	if agg, resolved := a.resolveImmediate(node); resolved {
		a.memo[top.id] = agg
		return true
	}

	top.expanded = true
	onPath[top.id] = true
	*pathStack = append(*pathStack, top.id)

	var pending []string
	for _, childID := range node.Links {
		child, exists := a.nodes[childID]
		if !exists {
			a.warn(Warning{
				Code:   WarnDanglingLink,
				NodeID: top.id,
				Detail: fmt.Sprintf("link to missing node %q", childID),
			})
			continue
		}
		if !child.ActiveUnder(a.active) {
			continue
		}
		if onPath[childID] {
			a.poisonPath(*pathStack, childID)
			a.warn(Warning{
				Code:   WarnCyclicReference,
				NodeID: childID,
				Detail: fmt.Sprintf("link from %q re-enters the evaluation path", top.id),
			})
			top.children = append(top.children, childID)
			continue
		}
		top.children = append(top.children, childID)
		if _, done := a.memo[childID]; !done {
			pending = append(pending, childID)
		}
	}

	// Push in reverse so the first declared link resolves first.
	for i := len(pending) - 1; i >= 0; i-- {
		*stack = append(*stack, frame{id: pending[i]})
	}
	return false
}

// poisonPath marks every node between the back-edge target and the top
// of the evaluation path as lying on a cycle. Nodes linking to
// themselves, directly or transitively, must never resolve to a finite
// potential, whatever their sibling branches offer.
func (a *TreeAggregator) poisonPath(pathStack []string, target string) {
	for i := len(pathStack) - 1; i >= 0; i-- {
		a.poisoned[pathStack[i]] = true
		if pathStack[i] == target {
			return
		}
	}
}

// resolveImmediate handles nodes that resolve without descending into
// children. Internal nodes with at least one link return false.
func (a *TreeAggregator) resolveImmediate(node *model.AttackTreeNode) (Aggregate, bool) {
	unreachable := Aggregate{Potential: model.UnreachablePotential()}

	switch {
	case node.Potential != nil && node.Gate != model.GateNone:
		a.warnShape(node.ID, "carries both a leaf tuple and a gate")
		return unreachable, true
	case node.Potential != nil:
		if !node.Potential.Valid() {
			a.warnShape(node.ID, "negative attack-potential component")
			return unreachable, true
		}
		return Aggregate{
			Potential:    model.ReachablePotential(node.Potential.Sum()),
			CriticalPath: []string{node.ID},
		}, true
	case node.Gate == model.GateNone:
		a.warnShape(node.ID, "has neither a leaf tuple nor a gate")
		return unreachable, true
	case len(node.Links) == 0:
		a.warnShape(node.ID, fmt.Sprintf("%s gate with no child links", node.Gate))
		return unreachable, true
	}
	return Aggregate{}, false
}

// combine folds the memoized child aggregates of an internal node in
// link declaration order. A child absent from the memo is a back edge
// still on the path and contributes unreachable. An internal node whose
// effective children all vanished (dangling or inactive) resolves
// unreachable under either gate.
func (a *TreeAggregator) combine(node *model.AttackTreeNode, children []string) Aggregate {
	if len(children) == 0 {
		return Aggregate{Potential: model.UnreachablePotential()}
	}

	switch node.Gate {
	case model.GateOr:
		best := Aggregate{Potential: model.UnreachablePotential()}
		for _, childID := range children {
			child := a.childAggregate(childID)
			if child.Potential.Less(best.Potential) {
				best = child
			}
		}
		if !best.Potential.Reachable {
			return Aggregate{Potential: model.UnreachablePotential()}
		}
		path := make([]string, 0, len(best.CriticalPath)+1)
		path = append(path, node.ID)
		path = append(path, best.CriticalPath...)
		return Aggregate{Potential: best.Potential, CriticalPath: path}

	case model.GateAnd:
		total := model.ReachablePotential(0)
		path := []string{node.ID}
		for _, childID := range children {
			child := a.childAggregate(childID)
			total = total.Plus(child.Potential)
			path = append(path, child.CriticalPath...)
		}
		if !total.Reachable {
			return Aggregate{Potential: model.UnreachablePotential()}
		}
		return Aggregate{Potential: total, CriticalPath: path}
	}

	return Aggregate{Potential: model.UnreachablePotential()}
}

// childAggregate looks up a resolved child. A miss means the child is
// still on the evaluation path below an already-detected back edge.
func (a *TreeAggregator) childAggregate(id string) Aggregate {
	if agg, ok := a.memo[id]; ok {
		return agg
	}
	return Aggregate{Potential: model.UnreachablePotential()}
}

func (a *TreeAggregator) warn(w Warning) {
	a.warnings = append(a.warnings, w)
}

func (a *TreeAggregator) warnShape(nodeID, detail string) {
	a.warn(Warning{Code: WarnInvalidNodeShape, NodeID: nodeID, Detail: detail})
}

// Warnings returns the findings accumulated across every Evaluate call,
// in traversal order.
func (a *TreeAggregator) Warnings() []Warning {
	out := make([]Warning, len(a.warnings))
	copy(out, a.warnings)
	return out
}

// Results exposes every aggregate resolved so far, keyed by node id.
// Paths in the returned aggregates are shared and must not be mutated.
func (a *TreeAggregator) Results() map[string]Aggregate {
	out := make(map[string]Aggregate, len(a.memo))
	for id, agg := range a.memo {
		out[id] = agg
	}
	return out
}
