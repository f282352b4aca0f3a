package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/validation"
)

func TestRecalculateProject(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	seedScenario(t, server, "PRJ_RECALC")

	rr := doRequest(t, server, http.MethodPost, "/projects/PRJ_RECALC/recalculate", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d. Body: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp RecalculationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if !resp.Persisted {
		t.Error("Expected the pass to be persisted")
	}
	if resp.Stats.Scenarios != 1 || resp.Stats.ManualFallbacks != 1 {
		t.Errorf("Expected 1 scenario via manual fallback, got %+v", resp.Stats)
	}
	// Manual tuple {4,6,3,0,0} sums to 13: medium feasibility, and with
	// the linked major damage scenario the matrix lands on high risk.
	if resp.RiskByLevel["high"] != 1 {
		t.Errorf("Expected one high-risk scenario, got %v", resp.RiskByLevel)
	}

	rr = doRequest(t, server, http.MethodGet, "/projects/PRJ_RECALC/threat-scenarios/TS_001", nil)
	var scenario model.ThreatScenario
	if err := json.Unmarshal(rr.Body.Bytes(), &scenario); err != nil {
		t.Fatalf("Failed to parse scenario: %v", err)
	}
	if scenario.Derived.Potential.Value != 13 {
		t.Errorf("Expected potential 13, got %s", scenario.Derived.Potential)
	}
	if scenario.Derived.Feasibility != model.FeasibilityMedium {
		t.Errorf("Expected medium feasibility, got %s", scenario.Derived.Feasibility)
	}
	if scenario.Derived.Impact != model.ImpactMajor {
		t.Errorf("Expected major impact, got %s", scenario.Derived.Impact)
	}
	if scenario.Derived.Risk != model.RiskHigh {
		t.Errorf("Expected high risk, got %s", scenario.Derived.Risk)
	}

	t.Logf("✓ Recalculation derived potential=%s feasibility=%s risk=%s",
		scenario.Derived.Potential, scenario.Derived.Feasibility, scenario.Derived.Risk)
}

// TestRecalculateWhatIf checks that a configuration-scoped pass is a
// preview: it reports the variant's outcome without persisting anything.
func TestRecalculateWhatIf(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	seedScenario(t, server, "PRJ_WHATIF")

	// A tree whose only leaf is gated to a configuration.
	steps := []struct {
		path string
		body any
	}{
		{"/configurations", validation.ConfigurationRequest{ID: "CFG_EU", Description: "EU variant", Active: true}},
		{"/nodes", validation.NodeRequest{
			ID: "AT_GATED", Potential: &validation.PotentialRequest{Time: 2},
			Configurations: []string{"CFG_EU"},
		}},
		{"/nodes", validation.NodeRequest{
			ID: "THR_001", Gate: "OR", Links: []string{"AT_GATED"}, Tags: []string{"attack-root"},
		}},
	}
	for _, step := range steps {
		rr := doRequest(t, server, http.MethodPost, "/projects/PRJ_WHATIF"+step.path, step.body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("Seeding %s failed: %d %s", step.path, rr.Code, rr.Body.String())
		}
	}

	before := doRequest(t, server, http.MethodGet, "/projects/PRJ_WHATIF", nil)
	var beforeResp ProjectResponse
	if err := json.Unmarshal(before.Body.Bytes(), &beforeResp); err != nil {
		t.Fatalf("Failed to parse project: %v", err)
	}

	// Preview with no configurations active: the gated leaf drops out
	// and the tree resolves unreachable.
	rr := doRequest(t, server, http.MethodPost, "/projects/PRJ_WHATIF/recalculate",
		RecalculationRequest{Configurations: &[]string{}})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d. Body: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp RecalculationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Persisted {
		t.Error("What-if pass must not persist")
	}
	if resp.Stats.UnreachableTrees != 1 {
		t.Errorf("Expected 1 unreachable tree in the variant, got %+v", resp.Stats)
	}

	after := doRequest(t, server, http.MethodGet, "/projects/PRJ_WHATIF", nil)
	var afterResp ProjectResponse
	if err := json.Unmarshal(after.Body.Bytes(), &afterResp); err != nil {
		t.Fatalf("Failed to parse project: %v", err)
	}
	if afterResp.Revision != beforeResp.Revision {
		t.Errorf("What-if changed the stored revision: %d -> %d", beforeResp.Revision, afterResp.Revision)
	}

	t.Logf("✓ What-if pass previewed %d warnings without persisting", len(resp.Warnings))
}

func TestExportImportRoundTrip(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	seedScenario(t, server, "PRJ_PORT")

	rr := doRequest(t, server, http.MethodGet, "/projects/PRJ_PORT/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Export failed: status %d, body %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}
	exported := rr.Body.Bytes()

	// Importing over the existing project without replace conflicts.
	req, rr2 := newRawRequest(t, http.MethodPost, "/import", exported)
	server.Handler().ServeHTTP(rr2, req)
	if rr2.Code != http.StatusConflict {
		t.Errorf("Expected status %d importing over existing project, got %d", http.StatusConflict, rr2.Code)
	}

	req, rr2 = newRawRequest(t, http.MethodPost, "/import?replace=true", exported)
	server.Handler().ServeHTTP(rr2, req)
	if rr2.Code != http.StatusCreated {
		t.Fatalf("Import failed: status %d, body %s", rr2.Code, rr2.Body.String())
	}

	var resp ImportResponse
	if err := json.Unmarshal(rr2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.ProjectID != "PRJ_PORT" {
		t.Errorf("Expected project PRJ_PORT, got %s", resp.ProjectID)
	}

	// The re-imported project must carry the same derived values.
	rr = doRequest(t, server, http.MethodGet, "/projects/PRJ_PORT/threat-scenarios/TS_001", nil)
	var scenario model.ThreatScenario
	if err := json.Unmarshal(rr.Body.Bytes(), &scenario); err != nil {
		t.Fatalf("Failed to parse scenario: %v", err)
	}
	if scenario.Derived.Potential.Value != 13 || scenario.Derived.Risk != model.RiskHigh {
		t.Errorf("Round trip changed derived values: %+v", scenario.Derived)
	}

	t.Logf("✓ Export/import round trip preserved derivation")
}

func TestImportRejectsGarbage(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req, rr := newRawRequest(t, http.MethodPost, "/import", []byte("not json"))
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d for malformed file, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestReports(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	seedScenario(t, server, "PRJ_REP")

	tests := []struct {
		kind        string
		contentType string
		mustContain string
	}{
		{"register.csv", "text/csv; charset=utf-8", "TS_001"},
		{"register.md", "text/markdown; charset=utf-8", "| TS_001"},
		{"attack-paths.md", "text/markdown; charset=utf-8", "Attack"},
		{"trees.dot", "text/vnd.graphviz; charset=utf-8", "digraph"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rr := doRequest(t, server, http.MethodGet, "/projects/PRJ_REP/reports/"+tt.kind, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status %d, got %d. Body: %s", http.StatusOK, rr.Code, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Expected content type %q, got %q", tt.contentType, ct)
			}
			if !strings.Contains(rr.Body.String(), tt.mustContain) {
				t.Errorf("Report %s missing %q. Body: %.200s", tt.kind, tt.mustContain, rr.Body.String())
			}
		})
	}

	rr := doRequest(t, server, http.MethodGet, "/projects/PRJ_REP/reports/unknown.xyz", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status %d for unknown report, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestProjectHistory(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	seedScenario(t, server, "PRJ_HIST")

	rr := doRequest(t, server, http.MethodGet, "/projects/PRJ_HIST/history", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp ProjectHistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	// Creation plus four entity mutations.
	if resp.Total != 5 {
		t.Errorf("Expected 5 history entries, got %d", resp.Total)
	}
	if resp.Count == 0 || resp.Entries[0].EntityType != "threat_scenario" {
		t.Errorf("Expected the newest entry first (threat_scenario), got %+v", resp.Entries)
	}

	rr = doRequest(t, server, http.MethodGet, "/projects/PRJ_HIST/history?limit=2", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 2 || resp.Total != 5 {
		t.Errorf("Expected page of 2 out of 5, got count=%d total=%d", resp.Count, resp.Total)
	}

	t.Logf("✓ Project history paged newest-first")
}

func TestHostHistory(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	seedScenario(t, server, "PRJ_AUDIT")

	rr := doRequest(t, server, http.MethodGet, "/history?project=PRJ_AUDIT&action=create", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp HistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 5 {
		t.Errorf("Expected 5 create events, got %d", resp.Count)
	}
	for _, event := range resp.Events {
		if event.Actor != "api" {
			t.Errorf("Expected actor api, got %q", event.Actor)
		}
	}
}
