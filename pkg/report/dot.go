package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
)

// AttackTreeDOT writes every attack tree as a Graphviz digraph, one
// cluster per root. Edges on the cheapest attack are drawn bold red,
// nodes inactive under the active configurations are grayed out, and
// dangling links point at a dotted placeholder so modeling gaps are
// visible in the drawing.
func (g *Generator) AttackTreeDOT(w io.Writer, p *model.Project) error {
	result, err := g.recalc.Recalculate(p)
	if err != nil {
		return err
	}

	proj := result.Project
	nodes := proj.NodeIndex()
	active := proj.ActiveConfigurationIDs()

	var b strings.Builder
	b.WriteString("digraph attack_trees {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, fontname=\"Helvetica\"];\n")

	for i, rootID := range treeRoots(result) {
		agg := result.Trees[rootID]
		members := collectTree(rootID, nodes)
		critical := criticalEdges(rootID, nodes, active, result.Nodes)

		root := nodes[rootID]
		clusterLabel := rootID
		if root != nil && root.Title != "" {
			clusterLabel = root.Title
		}
		fmt.Fprintf(&b, "\n  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&b, "    label=\"%s\";\n", dotEscape(clusterLabel))

		for _, id := range members {
			writeDOTNode(&b, rootID, id, nodes[id], agg, active, critical)
		}
		for _, id := range members {
			node := nodes[id]
			if node == nil {
				continue
			}
			for _, childID := range node.Links {
				writeDOTEdge(&b, rootID, node, childID, nodes[childID], active, critical)
			}
		}
		b.WriteString("  }\n")
	}

	b.WriteString("}\n")
	_, err = io.WriteString(w, b.String())
	return err
}

// dotName namespaces a node id to its tree so a node shared between two
// trees renders once per cluster.
func dotName(rootID, id string) string {
	return fmt.Sprintf("\"%s/%s\"", dotEscape(rootID), dotEscape(id))
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return strings.ReplaceAll(s, "\n", " ")
}

func writeDOTNode(b *strings.Builder, rootID, id string, node *model.AttackTreeNode, rootAgg risk.Aggregate, active map[string]bool, critical map[dotEdge]bool) {
	name := dotName(rootID, id)

	if node == nil {
		fmt.Fprintf(b, "    %s [label=\"%s\\nmissing\", style=dotted, color=gray, fontcolor=gray];\n",
			name, dotEscape(id))
		return
	}

	label := node.Title
	if label == "" {
		label = id
	}
	switch {
	case node.IsLeaf():
		label += fmt.Sprintf("\\nAP %d", node.Potential.Sum())
	case node.Gate != model.GateNone:
		label += fmt.Sprintf("\\n%s", node.Gate)
	}

	attrs := []string{}
	if id == rootID {
		if rootAgg.Potential.Reachable {
			label += fmt.Sprintf("\\nresolved %s", rootAgg.Potential)
		} else {
			label += "\\nunreachable"
		}
		attrs = append(attrs, "peripheries=2")
	}

	switch {
	case !node.ActiveUnder(active):
		attrs = append(attrs, "style=dashed", "color=gray", "fontcolor=gray")
	case onCriticalPath(id, critical) || (id == rootID && rootAgg.Potential.Reachable):
		attrs = append(attrs, "color=red", "penwidth=2")
	}

	fmt.Fprintf(b, "    %s [label=\"%s\"", name, dotEscape(label))
	for _, a := range attrs {
		b.WriteString(", " + a)
	}
	b.WriteString("];\n")
}

func writeDOTEdge(b *strings.Builder, rootID string, parent *model.AttackTreeNode, childID string, child *model.AttackTreeNode, active map[string]bool, critical map[dotEdge]bool) {
	from := dotName(rootID, parent.ID)
	to := dotName(rootID, childID)

	switch {
	case child == nil || !child.ActiveUnder(active):
		fmt.Fprintf(b, "    %s -> %s [style=dashed, color=gray];\n", from, to)
	case critical[dotEdge{parent.ID, childID}]:
		fmt.Fprintf(b, "    %s -> %s [color=red, penwidth=2];\n", from, to)
	default:
		fmt.Fprintf(b, "    %s -> %s;\n", from, to)
	}
}

// onCriticalPath reports whether a node is an endpoint of any critical
// edge.
func onCriticalPath(id string, critical map[dotEdge]bool) bool {
	for e := range critical {
		if e.from == id || e.to == id {
			return true
		}
	}
	return false
}

// collectTree gathers the node ids of one tree in a deterministic
// breadth-first order, dangling link targets included so they can be
// rendered as placeholders. The visited guard makes shared subtrees
// and cycles safe.
func collectTree(rootID string, nodes map[string]*model.AttackTreeNode) []string {
	var order []string
	seen := map[string]bool{rootID: true}
	queue := []string{rootID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		node := nodes[id]
		if node == nil {
			continue
		}
		for _, childID := range node.Links {
			if seen[childID] {
				continue
			}
			seen[childID] = true
			queue = append(queue, childID)
		}
	}
	return order
}

// dotEdge is a parent-to-child link in one tree.
type dotEdge struct {
	from string
	to   string
}

// criticalEdges reproduces the gate fold of the evaluation pass to mark
// the cheapest attack: an OR node contributes its first minimal
// reachable child, an AND node contributes every effective child.
// Unreachable nodes contribute nothing.
func criticalEdges(rootID string, nodes map[string]*model.AttackTreeNode, active map[string]bool, aggs map[string]risk.Aggregate) map[dotEdge]bool {
	edges := make(map[dotEdge]bool)
	seen := make(map[string]bool)

	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true

		node := nodes[id]
		agg, ok := aggs[id]
		if node == nil || !ok || !agg.Potential.Reachable {
			return
		}

		switch node.Gate {
		case model.GateOr:
			for _, childID := range node.Links {
				child := nodes[childID]
				if child == nil || !child.ActiveUnder(active) {
					continue
				}
				childAgg, ok := aggs[childID]
				if !ok || !childAgg.Potential.Reachable {
					continue
				}
				if childAgg.Potential.Value == agg.Potential.Value {
					edges[dotEdge{id, childID}] = true
					walk(childID)
					return
				}
			}
		case model.GateAnd:
			for _, childID := range node.Links {
				child := nodes[childID]
				if child == nil || !child.ActiveUnder(active) {
					continue
				}
				edges[dotEdge{id, childID}] = true
				walk(childID)
			}
		}
	}

	if agg, ok := aggs[rootID]; ok && agg.Potential.Reachable {
		walk(rootID)
	}
	return edges
}
