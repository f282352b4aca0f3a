package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-tara/pkg/model"
)

// reportProject models three scenarios: one riding an attack tree
// (critical risk), one on a tree made unreachable by an inactive
// configuration (very low), and one on its manual tuple (medium).
func reportProject() *model.Project {
	p := model.NewProject("PRJ_RPT", "Battery management system")
	p.Assets = append(p.Assets, &model.Asset{ID: "AS_001", Title: "Battery controller"})
	p.DamageScenarios = append(p.DamageScenarios,
		&model.DamageScenario{ID: "DS_001", Title: "Thermal runaway", Category: model.CategorySafety, Severity: model.ImpactSevere},
		&model.DamageScenario{ID: "DS_002", Title: "Degraded charging", Category: model.CategoryOperational, Severity: model.ImpactModerate},
	)
	p.Configurations = append(p.Configurations,
		&model.ToeConfiguration{ID: "CFG_PLANT", Description: "Plant mode", Active: false},
	)
	p.Threats = append(p.Threats,
		&model.Threat{ID: "THR_001", AssetID: "AS_001", Title: "CAN injection"},
		&model.Threat{ID: "THR_002", AssetID: "AS_001", Title: "Debug port abuse"},
		&model.Threat{ID: "THR_003", Title: "Firmware rollback"},
	)
	p.Scenarios = append(p.Scenarios,
		&model.ThreatScenario{
			ID: "TS_001", ThreatID: "THR_001", Title: "Spoofed cell telemetry",
			DamageScenarioIDs: []string{"DS_001"},
		},
		&model.ThreatScenario{
			ID: "TS_002", ThreatID: "THR_002", Title: "Plant-mode shell",
			DamageScenarioIDs: []string{"DS_002"},
		},
		&model.ThreatScenario{
			ID: "TS_003", ThreatID: "THR_003", Title: "Downgrade to buggy release",
			DamageScenarioIDs: []string{"DS_002"},
			ManualPotential:   model.AttackPotential{Time: 5, Expertise: 4, Knowledge: 3},
		},
	)
	p.Nodes = append(p.Nodes,
		&model.AttackTreeNode{
			ID: "THR_001", Kind: model.NodeKindAttack, Title: "Inject CAN frames",
			Gate: model.GateOr, Links: []string{"AT_001", "AT_002"},
			Tags: []string{model.TagAttackRoot},
		},
		&model.AttackTreeNode{
			ID: "AT_001", Kind: model.NodeKindAttack, Title: "Compromise gateway",
			Potential: &model.AttackPotential{Time: 4, Expertise: 3, Knowledge: 1},
		},
		&model.AttackTreeNode{
			ID: "AT_002", Kind: model.NodeKindAttack, Title: "Tap into CAN bus",
			Potential: &model.AttackPotential{Time: 2, Expertise: 2, Knowledge: 1, Access: 1},
		},
		&model.AttackTreeNode{
			ID: "THR_002", Kind: model.NodeKindAttack, Title: "Open debug shell",
			Gate: model.GateAnd, Links: []string{"AT_003"},
			Tags: []string{model.TagAttackRoot},
		},
		&model.AttackTreeNode{
			ID: "AT_003", Kind: model.NodeKindAttack, Title: "Enter plant mode",
			Potential:      &model.AttackPotential{Time: 1},
			Configurations: []string{"CFG_PLANT"},
		},
	)
	return p
}

func TestRiskRegisterCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGenerator(nil).RiskRegisterCSV(&buf, reportProject()); err != nil {
		t.Fatalf("RiskRegisterCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d records", len(records))
	}
	if records[0][0] != "ScenarioID" || records[0][9] != "Risk" {
		t.Errorf("Unexpected header: %v", records[0])
	}

	// Worst risk first: TS_001 critical, TS_003 medium, TS_002 very low.
	order := []string{records[1][0], records[2][0], records[3][0]}
	want := []string{"TS_001", "TS_003", "TS_002"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected row order %v, got %v", want, order)
		}
	}

	top := records[1]
	if top[3] != "CAN injection" || top[4] != "Battery controller" {
		t.Errorf("Expected threat and asset titles, got %v", top)
	}
	if top[5] != "attack tree" || top[6] != "6" {
		t.Errorf("Expected tree-sourced potential 6, got source %q potential %q", top[5], top[6])
	}
	if top[9] != "critical" || top[10] != "avoid" {
		t.Errorf("Expected critical/avoid, got %q/%q", top[9], top[10])
	}

	unreachable := records[3]
	if unreachable[5] != "attack tree" || unreachable[6] != "unreachable" {
		t.Errorf("Expected unreachable tree row, got %v", unreachable)
	}
	if unreachable[7] != "very_low" || unreachable[9] != "very_low" {
		t.Errorf("Expected very_low feasibility and risk, got %v", unreachable)
	}

	manual := records[2]
	if manual[5] != "manual" || manual[6] != "12" {
		t.Errorf("Expected manual potential 12, got %v", manual)
	}
}

func TestRiskRegisterMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGenerator(nil).RiskRegisterMarkdown(&buf, reportProject()); err != nil {
		t.Fatalf("RiskRegisterMarkdown failed: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "# Risk Register: Battery management system") {
		t.Errorf("Missing title heading:\n%s", out)
	}
	if !strings.Contains(out, "worst risk critical") {
		t.Errorf("Missing worst-risk summary:\n%s", out)
	}
	if !strings.Contains(out, "1 modeling warnings") {
		t.Errorf("Expected the unreachable-tree warning to be counted:\n%s", out)
	}

	first := strings.Index(out, "| TS_001 ")
	second := strings.Index(out, "| TS_003 ")
	third := strings.Index(out, "| TS_002 ")
	if first < 0 || second < 0 || third < 0 || !(first < second && second < third) {
		t.Errorf("Rows out of order (positions %d, %d, %d):\n%s", first, second, third, out)
	}
}

func TestRiskRegisterMarkdownEscapesPipes(t *testing.T) {
	p := reportProject()
	p.Scenarios[0].Title = "Spoofed | telemetry"

	var buf bytes.Buffer
	if err := NewGenerator(nil).RiskRegisterMarkdown(&buf, p); err != nil {
		t.Fatalf("RiskRegisterMarkdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), `Spoofed \| telemetry`) {
		t.Error("Pipe in a title must be escaped in table cells")
	}
}

func TestAttackPathReport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGenerator(nil).AttackPathReport(&buf, reportProject()); err != nil {
		t.Fatalf("AttackPathReport failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "## Inject CAN frames (THR_001)") {
		t.Errorf("Missing tree heading:\n%s", out)
	}
	if !strings.Contains(out, "Resolved attack potential: 6 (feasibility high)") {
		t.Errorf("Missing resolved potential line:\n%s", out)
	}

	// The cheapest attack walks the OR into the cheaper leaf.
	if !strings.Contains(out, "1. Inject CAN frames (THR_001), OR gate") ||
		!strings.Contains(out, "2. Tap into CAN bus (AT_002), potential 6") {
		t.Errorf("Missing cheapest-attack steps:\n%s", out)
	}
	if strings.Contains(out, "Compromise gateway (AT_001), potential") {
		t.Errorf("The expensive branch must not appear as a step:\n%s", out)
	}

	if !strings.Contains(out, "## Open debug shell (THR_002)") ||
		!strings.Contains(out, "resolves unreachable under the active configurations") {
		t.Errorf("Missing unreachable tree section:\n%s", out)
	}
	if !strings.Contains(out, "1 modeling warnings") {
		t.Errorf("Missing warning listing:\n%s", out)
	}
}

func TestAttackPathReportNoTrees(t *testing.T) {
	p := reportProject()
	p.Nodes = nil

	var buf bytes.Buffer
	if err := NewGenerator(nil).AttackPathReport(&buf, p); err != nil {
		t.Fatalf("AttackPathReport failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No attack trees are modeled") {
		t.Errorf("Missing no-trees notice:\n%s", buf.String())
	}
}

func TestAttackTreeDOT(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGenerator(nil).AttackTreeDOT(&buf, reportProject()); err != nil {
		t.Fatalf("AttackTreeDOT failed: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "digraph attack_trees {") || !strings.HasSuffix(out, "}\n") {
		t.Errorf("Not a digraph:\n%s", out)
	}
	if strings.Count(out, "{") != strings.Count(out, "}") {
		t.Errorf("Unbalanced braces:\n%s", out)
	}
	if strings.Count(out, "subgraph cluster_") != 2 {
		t.Errorf("Expected one cluster per tree:\n%s", out)
	}

	// The OR resolves through AT_002; that edge is marked, AT_001's is not.
	if !strings.Contains(out, `"THR_001/THR_001" -> "THR_001/AT_002" [color=red, penwidth=2];`) {
		t.Errorf("Cheapest-attack edge not marked:\n%s", out)
	}
	if !strings.Contains(out, `"THR_001/THR_001" -> "THR_001/AT_001";`) {
		t.Errorf("Expensive branch should be an unmarked edge:\n%s", out)
	}

	// The inactive plant-mode leaf is grayed, with a gray edge.
	if !strings.Contains(out, "style=dashed, color=gray, fontcolor=gray];") {
		t.Errorf("Inactive node not grayed:\n%s", out)
	}
	if !strings.Contains(out, `"THR_002/THR_002" -> "THR_002/AT_003" [style=dashed, color=gray];`) {
		t.Errorf("Edge to inactive node not grayed:\n%s", out)
	}

	if !strings.Contains(out, "resolved 6") || !strings.Contains(out, "unreachable") {
		t.Errorf("Root labels missing resolved potentials:\n%s", out)
	}
}

func TestAttackTreeDOTDanglingLink(t *testing.T) {
	p := model.NewProject("PRJ_DOT", "Dangling")
	p.Threats = append(p.Threats, &model.Threat{ID: "THR_001", Title: "T"})
	p.Scenarios = append(p.Scenarios, &model.ThreatScenario{ID: "TS_001", ThreatID: "THR_001", Title: "S"})
	p.Nodes = append(p.Nodes,
		&model.AttackTreeNode{
			ID: "THR_001", Title: "Root", Gate: model.GateOr,
			Links: []string{"AT_001", "AT_404"},
			Tags:  []string{model.TagAttackRoot},
		},
		&model.AttackTreeNode{ID: "AT_001", Title: "Leaf", Potential: &model.AttackPotential{Time: 3}},
	)

	var buf bytes.Buffer
	if err := NewGenerator(nil).AttackTreeDOT(&buf, p); err != nil {
		t.Fatalf("AttackTreeDOT failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, `AT_404\nmissing`) {
		t.Errorf("Missing-node placeholder absent:\n%s", out)
	}
	if !strings.Contains(out, `"THR_001/THR_001" -> "THR_001/AT_404" [style=dashed, color=gray];`) {
		t.Errorf("Dangling edge not grayed:\n%s", out)
	}
}

func TestReportsDoNotMutateInput(t *testing.T) {
	p := reportProject()
	p.Scenarios[0].Derived.Risk = model.RiskVeryLow // stale on purpose

	gen := NewGenerator(nil)
	var buf bytes.Buffer
	if err := gen.RiskRegisterCSV(&buf, p); err != nil {
		t.Fatalf("RiskRegisterCSV failed: %v", err)
	}
	if err := gen.RiskRegisterMarkdown(&buf, p); err != nil {
		t.Fatalf("RiskRegisterMarkdown failed: %v", err)
	}
	if err := gen.AttackPathReport(&buf, p); err != nil {
		t.Fatalf("AttackPathReport failed: %v", err)
	}
	if err := gen.AttackTreeDOT(&buf, p); err != nil {
		t.Fatalf("AttackTreeDOT failed: %v", err)
	}

	if p.Scenarios[0].Derived.Risk != model.RiskVeryLow {
		t.Error("Rendering must not rewrite the input project's derived values")
	}
}
