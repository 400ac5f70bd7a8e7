package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecorisk/bowtie/pkg/auth"
	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/logging"
	"github.com/ecorisk/bowtie/pkg/metrics"
	"github.com/ecorisk/bowtie/pkg/vocab"
)

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	return NewServer(deps)
}

func sampleRows() []bowtie.Row {
	return []bowtie.Row{{
		Activity:             "Farming",
		Pressure:             "Nutrient runoff",
		PreventiveControl:    "Buffer strips",
		CentralProblem:       "Eutrophication",
		ProtectiveMitigation: "Wetland restoration program",
		Consequence:          "Algal bloom",
		Likelihood:           4,
		Severity:             5,
	}}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadSample(t *testing.T, h http.Handler) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/table",
		tableUploadRequest{Rows: sampleRows(), Seed: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestTableUploadJSON(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/table",
		tableUploadRequest{Rows: sampleRows(), Seed: 1})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp tableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "High", resp.Rows[0].RiskLevel.String())
	assert.Equal(t, 1, resp.Summary.ByLevel["High"])
}

func TestTableUploadCSV(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	csv := "Activity,Pressure,Central_Problem,Consequence,Likelihood,Severity\n" +
		"Farming,Runoff,Eutrophication,Algal bloom,4,5\n"

	req := httptest.NewRequest(http.MethodPost, "/api/table", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestTableUploadRejectsMissingFields(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rows := sampleRows()
	rows[0].CentralProblem = ""

	rec := doJSON(t, h, http.MethodPost, "/api/table", tableUploadRequest{Rows: rows})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Central_Problem")
}

func TestTableExportCSV(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	uploadSample(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/table/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Farming")
}

func TestTableExportEmpty(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/table/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTableExportUploadUnconfigured(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	uploadSample(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/table/export?upload=true", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestGraphEndpoint(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	uploadSample(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/graph?show_intermediate=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var graph struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 6, "no escalation factor in the sample row")
	assert.Len(t, graph.Edges, 5)
}

func TestGraphEndpointNoTable(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/graph", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGraphCaching(t *testing.T) {
	srv := newTestServer(t, Deps{})
	h := srv.Handler()
	uploadSample(t, h)

	doJSON(t, h, http.MethodGet, "/api/graph", nil)
	doJSON(t, h, http.MethodGet, "/api/graph", nil)

	hits, misses := srv.cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestUploadClearsCache(t *testing.T) {
	srv := newTestServer(t, Deps{})
	h := srv.Handler()
	uploadSample(t, h)
	doJSON(t, h, http.MethodGet, "/api/graph", nil)
	require.Equal(t, 1, srv.cache.Size())

	uploadSample(t, h)
	assert.Equal(t, 0, srv.cache.Size())
}

func TestRiskScoreVectors(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/risk/score", map[string]any{
		"likelihoods": []int{1, 3, 5},
		"severities":  []int{1, 3, 4},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Low", "Medium", "High"}, resp["levels"])
}

func TestRiskScoreLengthMismatch(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/risk/score", map[string]any{
		"likelihoods": []int{1, 2},
		"severities":  []int{1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVocabSuggest(t *testing.T) {
	vocabulary, err := vocab.Parse([]byte(
		"pressures:\n  - id: PRE01\n    name: Nutrient loading\n"))
	require.NoError(t, err)

	h := newTestServer(t, Deps{Vocabulary: vocabulary}).Handler()
	rec := doJSON(t, h, http.MethodGet,
		"/api/vocabulary/suggest?category=pressure&text=nutrient+loading", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PRE01")
}

func TestVocabSuggestMissingParams(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/vocabulary/suggest", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkflowLifecycle(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/workflow/sessions",
		sessionCreateRequest{ProjectName: "Baltic"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		ID   string `json:"id"`
		Step int    `json:"step"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.ID)

	base := "/api/workflow/sessions/" + session.ID

	rec = doJSON(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, "project name is set, step one passes")

	// Activities step fails without a draft.
	rec = doJSON(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	drafts := []map[string]any{{
		"activity":              "Farming",
		"pressure":              "Nutrient runoff",
		"preventive_control":    "",
		"escalation_factor":     "",
		"protective_mitigation": "",
		"consequence":           "Algal bloom",
		"likelihood":            4,
		"severity":              5,
	}}
	rec = doJSON(t, h, http.MethodPut, base, map[string]any{
		"central_problem": "Eutrophication",
		"drafts":          drafts,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for i := 0; i < 6; i++ {
		rec = doJSON(t, h, http.MethodPost, base+"/advance", nil)
		require.Equal(t, http.StatusOK, rec.Code,
			fmt.Sprintf("advance %d: %s", i, rec.Body.String()))
	}

	// At review: export and load as the current table.
	rec = doJSON(t, h, http.MethodPost, base+"/export?load=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/risk/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"High":1`)

	rec = doJSON(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkflowBack(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/workflow/sessions",
		sessionCreateRequest{ProjectName: "p"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var session struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = doJSON(t, h, http.MethodPost,
		"/api/workflow/sessions/"+session.ID+"/back", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "first step has no back")
}

func TestLoginUnconfigured(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login",
		loginRequest{Username: "u", Password: "p"})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager, err := auth.NewJWTManager(strings.Repeat("s", 32), time.Hour)
	require.NoError(t, err)
	users := auth.NewUserStore()
	_, err = users.CreateUser("viewer", "password123", auth.RoleViewer)
	require.NoError(t, err)
	_, err = users.CreateUser("assessor", "password123", auth.RoleAssessor)
	require.NoError(t, err)

	h := newTestServer(t, Deps{JWT: jwtManager, Users: users}).Handler()

	// No token: rejected.
	rec := doJSON(t, h, http.MethodGet, "/api/table", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Health stays open.
	rec = doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	login := func(username string) string {
		rec := doJSON(t, h, http.MethodPost, "/api/auth/login",
			loginRequest{Username: username, Password: "password123"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp["token"]
	}

	withToken := func(token, method, path string, body any) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			data, _ := json.Marshal(body)
			reader = bytes.NewReader(data)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	viewerToken := login("viewer")
	assessorToken := login("assessor")

	// Viewer can read but not write.
	rec = withToken(viewerToken, http.MethodGet, "/api/table", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = withToken(viewerToken, http.MethodPost, "/api/table",
		tableUploadRequest{Rows: sampleRows()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Assessor can write.
	rec = withToken(assessorToken, http.MethodPost, "/api/table",
		tableUploadRequest{Rows: sampleRows(), Seed: 1})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Garbage token: rejected.
	rec = withToken("garbage", http.MethodGet, "/api/table", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCapabilitiesWithoutInference(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/inference/capabilities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bayes_net":false`)
}

func TestPosteriorUnavailable(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/inference/posterior",
		posteriorRequest{Target: "risk"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGraphQLEndpoint(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	uploadSample(t, h)

	rec := doJSON(t, h, http.MethodPost, "/graphql",
		map[string]string{"query": `{ riskSummary { rows } }`})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":1`)
}

func TestCORSDefaultAllowsAnyOrigin(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfiguredOrigins(t *testing.T) {
	h := newTestServer(t, Deps{
		CORSOrigins: []string{"https://app.example.org"},
	}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.org",
		rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")

	// An origin outside the list gets no CORS grant but the request
	// itself still succeeds.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, Deps{
		CORSOrigins: []string{"https://app.example.org"},
	}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/table", nil)
	req.Header.Set("Origin", "https://app.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS",
		rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, Deps{}).Handler()
	uploadSample(t, h)
	doJSON(t, h, http.MethodGet, "/api/graph", nil)

	rec := doJSON(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bowtie_graph_builds_total")
	assert.Contains(t, rec.Body.String(), "bowtie_http_requests_total")
}
