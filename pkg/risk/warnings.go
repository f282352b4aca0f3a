package risk

import (
	"fmt"
	"strings"
)

// WarningCode classifies a recalculation finding.
type WarningCode string

const (
	// WarnDanglingLink marks a child link whose target node does not exist.
	WarnDanglingLink WarningCode = "dangling_link"

	// WarnCyclicReference marks a link that re-enters a node already on
	// the evaluation path. Every node on the cycle resolves unreachable.
	WarnCyclicReference WarningCode = "cyclic_reference"

	// WarnUnreachableSubtree marks an evaluated attack-tree root whose
	// aggregate resolved unreachable.
	WarnUnreachableSubtree WarningCode = "unreachable_subtree"

	// WarnInvalidNodeShape marks a node that is neither a well-formed
	// leaf nor a well-formed internal node.
	WarnInvalidNodeShape WarningCode = "invalid_node_shape"

	// WarnMissingThreat marks a threat scenario whose threat reference
	// does not resolve.
	WarnMissingThreat WarningCode = "missing_threat"

	// WarnMissingDamage marks a damage-scenario reference that does not
	// resolve.
	WarnMissingDamage WarningCode = "missing_damage_scenario"
)

// Warning is a non-fatal finding raised during recalculation. The engine
// never fails a pass over modeling errors; it degrades the affected
// values and reports what it saw.
type Warning struct {
	Code       WarningCode `json:"code"`
	NodeID     string      `json:"node_id,omitempty"`
	ScenarioID string      `json:"scenario_id,omitempty"`
	Detail     string      `json:"detail"`
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(string(w.Code))
	if w.NodeID != "" {
		fmt.Fprintf(&b, " node=%s", w.NodeID)
	}
	if w.ScenarioID != "" {
		fmt.Fprintf(&b, " scenario=%s", w.ScenarioID)
	}
	if w.Detail != "" {
		b.WriteString(": ")
		b.WriteString(w.Detail)
	}
	return b.String()
}

// CountByCode tallies warnings per code, for stats and metrics.
func CountByCode(warnings []Warning) map[WarningCode]int {
	if len(warnings) == 0 {
		return nil
	}
	counts := make(map[WarningCode]int)
	for _, w := range warnings {
		counts[w.Code]++
	}
	return counts
}
