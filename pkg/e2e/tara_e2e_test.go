package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-tara/pkg/api"
	"github.com/dd0wney/cluso-tara/pkg/feed"
	"github.com/dd0wney/cluso-tara/pkg/logging"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/store"
)

// startTestServer wires a full API server over a file store in a
// temporary directory, the way tara-server does at startup.
func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	projectStore, err := store.NewFileStore(store.DefaultFileStoreConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { projectStore.Close() })

	eventFeed := feed.New(feed.Options{})
	t.Cleanup(func() { eventFeed.Close() })

	apiServer, err := api.NewServer(api.Options{
		Store:  projectStore,
		Feed:   eventFeed,
		Logger: logging.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(apiServer.Shutdown)

	server := httptest.NewServer(apiServer.Handler())
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, out), "response body: %s", data)
	}
	return resp
}

func createEntity(t *testing.T, baseURL, projectID, collection string, body any) {
	t.Helper()
	var mut api.MutationResponse
	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/projects/%s/%s", baseURL, projectID, collection), body, &mut)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create %s", collection)
}

func getProject(t *testing.T, baseURL, projectID string) *model.Project {
	t.Helper()
	var pr api.ProjectResponse
	resp := doJSON(t, http.MethodGet, baseURL+"/projects/"+projectID, nil, &pr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, pr.Project)
	return pr.Project
}

func findScenario(t *testing.T, p *model.Project, id string) *model.ThreatScenario {
	t.Helper()
	for _, s := range p.Scenarios {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("scenario %s not in project", id)
	return nil
}

// TestAnalysisWorkflow walks a complete analyst session: build the
// record set, watch derived values update after every mutation, model
// an attack tree, export and re-import, and prune the tree again.
func TestAnalysisWorkflow(t *testing.T) {
	server := startTestServer(t)
	baseURL := server.URL

	// Step 1: project shell.
	var created api.ProjectResponse
	resp := doJSON(t, http.MethodPost, baseURL+"/projects", map[string]any{
		"id":    "PRJ_001",
		"title": "Telematics Unit TARA",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "PRJ_001", created.Project.ID)
	require.Equal(t, int64(1), created.Revision)

	// Step 2: raw entities.
	createEntity(t, baseURL, "PRJ_001", "assets", map[string]any{
		"id": "ASSET_001", "title": "Telematics control unit",
	})
	createEntity(t, baseURL, "PRJ_001", "damage-scenarios", map[string]any{
		"id": "DS_MAJOR", "title": "Vehicle immobilized", "category": "operational", "severity": "major",
	})
	createEntity(t, baseURL, "PRJ_001", "damage-scenarios", map[string]any{
		"id": "DS_MINOR", "title": "Diagnostic data exposed", "category": "privacy", "severity": "minor",
	})
	createEntity(t, baseURL, "PRJ_001", "threats", map[string]any{
		"id": "THR_001", "asset_id": "ASSET_001", "title": "Remote takeover",
		"damage_scenario_ids": []string{"DS_MAJOR", "DS_MINOR"},
	})
	createEntity(t, baseURL, "PRJ_001", "threat-scenarios", map[string]any{
		"id": "TS_001", "threat_id": "THR_001", "title": "Takeover via cellular interface",
		"damage_scenario_ids": []string{"DS_MAJOR"},
		"potential":           map[string]int{"time": 4, "expertise": 6, "knowledge": 3, "access": 0, "equipment": 0},
	})

	// Step 3: with no attack tree the manual tuple rules. 13 lands in
	// the medium band; major impact at medium feasibility is high risk.
	project := getProject(t, baseURL, "PRJ_001")
	scenario := findScenario(t, project, "TS_001")
	require.True(t, scenario.Derived.Potential.Reachable)
	assert.Equal(t, 13, scenario.Derived.Potential.Value)
	assert.Equal(t, model.FeasibilityMedium, scenario.Derived.Feasibility)
	assert.Equal(t, model.ImpactMajor, scenario.Derived.Impact)
	assert.Equal(t, model.RiskHigh, scenario.Derived.Risk)
	assert.Equal(t, model.TreatmentReduce, scenario.Derived.Treatment)

	// Step 4: model the attack tree. The root carries the threat's id,
	// entered top-down so its links dangle until the leaves arrive.
	createEntity(t, baseURL, "PRJ_001", "nodes", map[string]any{
		"id": "THR_001", "title": "Take over telematics unit", "gate": "OR",
		"links": []string{"AT_CELL", "AT_USB"}, "tags": []string{"attack-root"},
	})
	createEntity(t, baseURL, "PRJ_001", "nodes", map[string]any{
		"id": "AT_CELL", "title": "Exploit cellular stack",
		"potential": map[string]int{"time": 4, "expertise": 4, "knowledge": 2, "access": 0, "equipment": 0},
	})
	createEntity(t, baseURL, "PRJ_001", "nodes", map[string]any{
		"id": "AT_USB", "title": "Malicious USB update",
		"potential": map[string]int{"time": 2, "expertise": 2, "knowledge": 1, "access": 1, "equipment": 0},
	})

	// Step 5: the tree now overrides the manual tuple. OR picks the
	// cheaper leaf (6), which rates high feasibility and high risk.
	project = getProject(t, baseURL, "PRJ_001")
	scenario = findScenario(t, project, "TS_001")
	require.True(t, scenario.Derived.Potential.Reachable)
	assert.Equal(t, 6, scenario.Derived.Potential.Value)
	assert.Equal(t, model.FeasibilityHigh, scenario.Derived.Feasibility)
	assert.Equal(t, model.RiskHigh, scenario.Derived.Risk)

	// Step 6: explicit recalculation persists and reports the pass.
	var recalc api.RecalculationResponse
	resp = doJSON(t, http.MethodPost, baseURL+"/projects/PRJ_001/recalculate", nil, &recalc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, recalc.Persisted)
	assert.Equal(t, 1, recalc.Stats.Scenarios)
	assert.Equal(t, 1, recalc.Stats.TreesEvaluated)
	assert.Equal(t, 0, recalc.Stats.ManualFallbacks)
	assert.Equal(t, 1, recalc.RiskByLevel[model.RiskHigh.String()])

	// Step 7: a what-if pass under an explicit empty configuration set
	// is previewed, never persisted.
	var whatIf api.RecalculationResponse
	resp = doJSON(t, http.MethodPost, baseURL+"/projects/PRJ_001/recalculate", map[string]any{
		"configurations": []string{},
	}, &whatIf)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, whatIf.Persisted)

	// Step 8: reports render from the recalculated snapshot.
	for _, kind := range []string{"register.csv", "register.md", "attack-paths.md", "trees.dot"} {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/projects/PRJ_001/reports/"+kind, nil)
		require.NoError(t, err)
		reportResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(reportResp.Body)
		reportResp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, reportResp.StatusCode, "report %s", kind)
		assert.Contains(t, string(body), "TS_001", "report %s", kind)
	}

	// Step 9: export/import round trip keeps the content fingerprint.
	req, err := http.NewRequest(http.MethodGet, baseURL+"/projects/PRJ_001/export", nil)
	require.NoError(t, err)
	exportResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	exported, err := io.ReadAll(exportResp.Body)
	exportResp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, exportResp.StatusCode)

	beforeImport := getFingerprint(t, baseURL, "PRJ_001")

	var imported api.ImportResponse
	importReq, err := http.NewRequest(http.MethodPost, baseURL+"/import?replace=true", bytes.NewReader(exported))
	require.NoError(t, err)
	importResp, err := http.DefaultClient.Do(importReq)
	require.NoError(t, err)
	importBody, err := io.ReadAll(importResp.Body)
	importResp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, importResp.StatusCode, "import response: %s", importBody)
	require.NoError(t, json.Unmarshal(importBody, &imported))
	assert.Equal(t, beforeImport, imported.Fingerprint, "round trip must not change content")

	// Step 10: deleting a leaf prunes it from the root's links and the
	// next derivation routes over the surviving branch.
	resp = doJSON(t, http.MethodDelete, baseURL+"/projects/PRJ_001/nodes/AT_USB", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	project = getProject(t, baseURL, "PRJ_001")
	for _, n := range project.Nodes {
		assert.NotContains(t, n.Links, "AT_USB", "node %s still links the deleted id", n.ID)
	}
	scenario = findScenario(t, project, "TS_001")
	assert.Equal(t, 10, scenario.Derived.Potential.Value)

	// Step 11: deletion.
	resp = doJSON(t, http.MethodDelete, baseURL+"/projects/PRJ_001", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, http.MethodGet, baseURL+"/projects/PRJ_001", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func getFingerprint(t *testing.T, baseURL, projectID string) string {
	t.Helper()
	var pr api.ProjectResponse
	resp := doJSON(t, http.MethodGet, baseURL+"/projects/"+projectID, nil, &pr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return pr.Fingerprint
}

// TestImportRejectsMalformedFiles checks the boundary validation of the
// import endpoint: structural damage fails loudly instead of seeping in.
func TestImportRejectsMalformedFiles(t *testing.T) {
	server := startTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"wrong format marker", `{"format":"something-else","format_version":1,"project":{"id":"P"}}`},
		{"missing payload", `{"format":"cluso-tara-project","format_version":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/import", "application/json", bytes.NewReader([]byte(tc.body)))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

// TestHealthEndpoints checks the probe surface the deployment relies on.
func TestHealthEndpoints(t *testing.T) {
	server := startTestServer(t)

	for _, path := range []string{"/health", "/ready", "/live"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "probe %s", path)
	}
}
