package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
)

// AttackPathReport writes a Markdown narrative of every evaluated
// attack tree: the resolved potential of the root, its feasibility
// rating, the scenarios riding on the tree, and the cheapest attack
// as a step list. Unreachable trees are reported as such.
func (g *Generator) AttackPathReport(w io.Writer, p *model.Project) error {
	result, err := g.recalc.Recalculate(p)
	if err != nil {
		return err
	}

	proj := result.Project
	nodes := proj.NodeIndex()
	threats := proj.ThreatIndex()
	classifier := risk.NewFeasibilityClassifier(g.recalc.Policy().Feasibility)

	var b strings.Builder
	fmt.Fprintf(&b, "# Attack Paths: %s\n", p.Title)

	roots := treeRoots(result)
	if len(roots) == 0 {
		b.WriteString("\nNo attack trees are modeled; every scenario uses its manual attack-potential tuple.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, rootID := range roots {
		agg := result.Trees[rootID]
		root := nodes[rootID]

		title := rootID
		if root != nil && root.Title != "" {
			title = root.Title
		}
		fmt.Fprintf(&b, "\n## %s (%s)\n\n", title, rootID)

		if t, ok := threats[rootID]; ok && t.Title != "" {
			fmt.Fprintf(&b, "Threat: %s\n", t.Title)
		}
		for _, s := range proj.Scenarios {
			if s.ThreatID == rootID {
				fmt.Fprintf(&b, "Scenario: %s (%s), risk %s\n", s.Title, s.ID, s.Derived.Risk)
			}
		}

		if !agg.Potential.Reachable {
			b.WriteString("\nThe tree resolves unreachable under the active configurations; its scenarios rate least feasible.\n")
			continue
		}

		fmt.Fprintf(&b, "\nResolved attack potential: %s (feasibility %s)\n",
			agg.Potential, classifier.Classify(agg.Potential))
		b.WriteString("\nCheapest attack:\n")
		for i, id := range agg.CriticalPath {
			step := nodes[id]
			switch {
			case step == nil:
				fmt.Fprintf(&b, "%d. %s\n", i+1, id)
			case step.IsLeaf():
				fmt.Fprintf(&b, "%d. %s (%s), potential %d\n", i+1, step.Title, id, step.Potential.Sum())
			default:
				fmt.Fprintf(&b, "%d. %s (%s), %s gate\n", i+1, step.Title, id, step.Gate)
			}
		}
	}

	if n := result.Stats.Warnings; n > 0 {
		fmt.Fprintf(&b, "\n%d modeling warnings were raised during recalculation:\n\n", n)
		for _, warning := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning.String())
		}
	}

	_, err = io.WriteString(w, b.String())
	return err
}
