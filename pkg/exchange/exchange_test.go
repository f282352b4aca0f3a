package exchange

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
)

// testProject builds a small project with one modeled attack tree
// (OR root, leaf sums 8 and 6) and one scenario riding on it.
func testProject() *model.Project {
	p := model.NewProject("PRJ_EX", "Telematics unit")
	p.Assets = append(p.Assets, &model.Asset{ID: "AS_001", Title: "CAN gateway"})
	p.DamageScenarios = append(p.DamageScenarios, &model.DamageScenario{
		ID:       "DS_001",
		Title:    "Remote vehicle control",
		Category: model.CategorySafety,
		Severity: model.ImpactMajor,
	})
	p.Threats = append(p.Threats, &model.Threat{
		ID:      "THR_001",
		AssetID: "AS_001",
		Title:   "Firmware tampering",
	})
	p.Scenarios = append(p.Scenarios, &model.ThreatScenario{
		ID:                "TS_001",
		ThreatID:          "THR_001",
		Title:             "Tampered OTA image",
		DamageScenarioIDs: []string{"DS_001"},
	})
	p.Nodes = append(p.Nodes,
		&model.AttackTreeNode{
			ID:    "THR_001",
			Kind:  model.NodeKindAttack,
			Title: "Install tampered firmware",
			Gate:  model.GateOr,
			Links: []string{"AT_001", "AT_002"},
			Tags:  []string{model.TagAttackRoot},
		},
		&model.AttackTreeNode{
			ID:        "AT_001",
			Kind:      model.NodeKindAttack,
			Title:     "Break signing key",
			Potential: &model.AttackPotential{Time: 4, Expertise: 3, Knowledge: 1},
		},
		&model.AttackTreeNode{
			ID:        "AT_002",
			Kind:      model.NodeKindAttack,
			Title:     "Exploit parser bug",
			Potential: &model.AttackPotential{Time: 2, Expertise: 2, Knowledge: 1, Access: 1},
		},
	)
	return p
}

func TestExportImportRoundTrip(t *testing.T) {
	exported, err := Export(testProject(), nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if exported.Fingerprint == "" {
		t.Fatal("Export produced no fingerprint")
	}
	if len(exported.Warnings) != 0 {
		t.Errorf("Expected clean recalculation, got warnings: %v", exported.Warnings)
	}

	imported, err := Import(exported.Data, nil)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported.Fingerprint != exported.Fingerprint {
		t.Errorf("Round trip changed fingerprint: exported %s, imported %s",
			exported.Fingerprint, imported.Fingerprint)
	}
	if imported.Project.ID != "PRJ_EX" {
		t.Errorf("Expected project PRJ_EX, got %s", imported.Project.ID)
	}
	if imported.Stats.Scenarios != 1 || imported.Stats.TreesEvaluated != 1 {
		t.Errorf("Unexpected recalculation stats: %+v", imported.Stats)
	}

	// A second export of the imported project must be byte-stable in
	// content (the envelope timestamp differs).
	again, err := Export(imported.Project, nil)
	if err != nil {
		t.Fatalf("Second export failed: %v", err)
	}
	if again.Fingerprint != exported.Fingerprint {
		t.Errorf("Second export changed fingerprint: %s vs %s",
			again.Fingerprint, exported.Fingerprint)
	}
}

func TestExportRefreshesDerivedValues(t *testing.T) {
	p := testProject()
	p.Scenarios[0].Derived = model.DerivedValues{
		Potential:   model.ReachablePotential(99),
		Feasibility: model.FeasibilityVeryLow,
		Risk:        model.RiskVeryLow,
	}

	exported, err := Export(p, nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var file File
	if err := json.Unmarshal(exported.Data, &file); err != nil {
		t.Fatalf("Exported file does not parse: %v", err)
	}
	derived := file.Project.Scenarios[0].Derived
	if derived.Potential.Value != 6 || !derived.Potential.Reachable {
		t.Errorf("Expected recalculated potential 6, got %s", derived.Potential)
	}
	if derived.Feasibility != model.FeasibilityHigh {
		t.Errorf("Expected feasibility %s, got %s", model.FeasibilityHigh, derived.Feasibility)
	}
	if derived.Risk != model.RiskHigh {
		t.Errorf("Expected risk %s, got %s", model.RiskHigh, derived.Risk)
	}

	// The input project keeps its stale values.
	if p.Scenarios[0].Derived.Potential.Value != 99 {
		t.Error("Export mutated its input project")
	}
}

func TestImportAlwaysRecalculates(t *testing.T) {
	// A hand-authored file without a fingerprint, carrying derived
	// values that disagree with the project content.
	p := testProject()
	p.Nodes = nil
	p.Scenarios[0].ManualPotential = model.AttackPotential{Time: 10, Expertise: 5, Knowledge: 3, Access: 2}
	p.Scenarios[0].Derived = model.DerivedValues{
		Potential:   model.ReachablePotential(1),
		Feasibility: model.FeasibilityHigh,
		Risk:        model.RiskCritical,
	}
	data, err := json.Marshal(&File{
		Format:        FormatName,
		FormatVersion: FormatVersion,
		Project:       p,
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	imported, err := Import(data, nil)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	derived := imported.Project.Scenarios[0].Derived
	if derived.Potential.Value != 20 {
		t.Errorf("Expected manual fallback potential 20, got %s", derived.Potential)
	}
	if derived.Feasibility != model.FeasibilityVeryLow {
		t.Errorf("Expected feasibility %s, got %s", model.FeasibilityVeryLow, derived.Feasibility)
	}
	if derived.Risk != model.RiskLow {
		t.Errorf("Expected risk %s, got %s", model.RiskLow, derived.Risk)
	}
	if imported.Stats.ManualFallbacks != 1 {
		t.Errorf("Expected one manual fallback, got %d", imported.Stats.ManualFallbacks)
	}
}

func TestImportRejectsWrongFormat(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing marker", `{"format_version": 1, "project": {"id": "PRJ"}}`},
		{"foreign document", `{"format": "something-else", "format_version": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import([]byte(tt.data), nil)
			if !errors.Is(err, ErrNotProjectFile) {
				t.Errorf("Expected ErrNotProjectFile, got %v", err)
			}
		})
	}
}

func TestImportRejectsNewerVersion(t *testing.T) {
	data := `{"format": "cluso-tara-project", "format_version": 99, "project": {"id": "PRJ", "title": "T"}}`

	_, err := Import([]byte(data), nil)
	if !errors.Is(err, ErrVersionTooNew) {
		t.Errorf("Expected ErrVersionTooNew, got %v", err)
	}
}

func TestImportRejectsMissingProject(t *testing.T) {
	data := `{"format": "cluso-tara-project", "format_version": 1}`

	_, err := Import([]byte(data), nil)
	if !errors.Is(err, ErrNotProjectFile) {
		t.Errorf("Expected ErrNotProjectFile, got %v", err)
	}
}

func TestImportRejectsTamperedContent(t *testing.T) {
	exported, err := Export(testProject(), nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	tampered := strings.Replace(string(exported.Data), "Telematics unit", "Tampered title", 1)
	if tampered == string(exported.Data) {
		t.Fatal("Tampering had no effect on the file")
	}

	_, err = Import([]byte(tampered), nil)
	if !errors.Is(err, ErrFingerprintMismatch) {
		t.Errorf("Expected ErrFingerprintMismatch, got %v", err)
	}
}

func TestImportAcceptsMissingFingerprint(t *testing.T) {
	data, err := json.Marshal(&File{
		Format:        FormatName,
		FormatVersion: FormatVersion,
		Project:       testProject(),
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	imported, err := Import(data, nil)
	if err != nil {
		t.Fatalf("Import of unfingerprinted file failed: %v", err)
	}
	if imported.Fingerprint == "" {
		t.Error("Import should fingerprint the recalculated project")
	}
}

func TestImportRejectsInvalidStructure(t *testing.T) {
	p := testProject()
	p.Scenarios = append(p.Scenarios, &model.ThreatScenario{
		ID:       "TS_001",
		ThreatID: "THR_001",
		Title:    "Duplicate id",
	})
	data, err := json.Marshal(&File{
		Format:        FormatName,
		FormatVersion: FormatVersion,
		Project:       p,
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	_, err = Import(data, nil)
	if err == nil {
		t.Fatal("Expected structural validation error")
	}
	if !model.IsDuplicate(err) {
		t.Errorf("Expected duplicate id error, got %v", err)
	}
}

func TestImportMalformedJSON(t *testing.T) {
	_, err := Import([]byte("{not json"), nil)
	if err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestExportNilProject(t *testing.T) {
	_, err := Export(nil, nil)
	if !errors.Is(err, model.ErrNilProject) {
		t.Errorf("Expected ErrNilProject, got %v", err)
	}
}

func TestExportFileImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.json")
	recalc := risk.NewProjectRecalculator(nil)

	exported, err := ExportFile(path, testProject(), recalc)
	if err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Exported file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("Exported file is empty")
	}

	imported, err := ImportFile(path, recalc)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if imported.Fingerprint != exported.Fingerprint {
		t.Errorf("Disk round trip changed fingerprint: %s vs %s",
			exported.Fingerprint, imported.Fingerprint)
	}
}

func TestImportFileMissing(t *testing.T) {
	_, err := ImportFile(filepath.Join(t.TempDir(), "absent.json"), nil)
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}
