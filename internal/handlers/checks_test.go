package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sndiag/internal/database"
	"sndiag/internal/notify"
	"sndiag/internal/servicenow"
	"sndiag/internal/testutil"
	"sndiag/internal/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockInstance serves a passing ServiceNow Table API and records the basic
// auth it receives.
func mockInstance(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var lastAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); ok {
			lastAuth = u + ":" + p
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/sys_properties"):
			if r.URL.Query().Get("sysparm_limit") == "1" {
				w.Write([]byte(`{"result":[]}`))
				return
			}
			w.Write([]byte(`{"result":[{"name":"glide.uxf.lib.embeddables.enabled","value":"true"}]}`))
		case strings.HasSuffix(r.URL.Path, "/v_plugin"):
			w.Write([]byte(`{"result":[{"active":"active"}]}`))
		case strings.HasSuffix(r.URL.Path, "/sys_cors_rule"):
			w.Write([]byte(`{"result":[{"active":"true"}]}`))
		case strings.HasSuffix(r.URL.Path, "/sys_ux_embeddable_macroponent"):
			w.Write([]byte(`{"result":[{"tag_name":"chat","active":"true","sys_id":"s1"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &lastAuth
}

func newTestHandler(t *testing.T, defaultInstance string) *ChecksHandler {
	t.Helper()
	client := servicenow.NewClient(5 * time.Second)
	return NewChecksHandler(client, defaultInstance, servicenow.Credentials{}, database.NewCheckRunRepo(), notify.NewManager())
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) web.Response {
	t.Helper()
	var resp web.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestConnect_UsesHeaders(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	srv, lastAuth := mockInstance(t)
	h := newTestHandler(t, srv.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect", nil)
	req.Header.Set("username", "header-user")
	req.Header.Set("password", "header-pass")
	w := httptest.NewRecorder()
	h.Connect(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "header-user:header-pass", *lastAuth)

	data, _ := resp.Data.(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "Connected", data["message"])
}

func TestConnect_BodyOverridesHeaders(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	srv, lastAuth := mockInstance(t)
	h := newTestHandler(t, "")

	body := strings.NewReader(`{"instance_url":"` + srv.URL + `","username":"body-user","password":"body-pass"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect", body)
	req.Header.Set("username", "header-user")
	req.Header.Set("password", "header-pass")
	w := httptest.NewRecorder()
	h.Connect(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "body-user:body-pass", *lastAuth)
}

func TestConnect_InstanceRequired(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	h := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect", nil)
	w := httptest.NewRecorder()
	h.Connect(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "INSTANCE_REQUIRED", resp.ErrorCode)
}

func TestConnect_InvalidBody(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	h := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	h.Connect(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "INVALID_BODY", resp.ErrorCode)
}

func TestEmbeddablesEnabled(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	srv, _ := mockInstance(t)
	h := newTestHandler(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checks/embeddables-enabled", nil)
	w := httptest.NewRecorder()
	h.EmbeddablesEnabled(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data, _ := resp.Data.(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, true, data["enabled"])
}

func TestCORSRule_DomainRequired(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	srv, _ := mockInstance(t)
	h := newTestHandler(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checks/cors-rule", nil)
	w := httptest.NewRecorder()
	h.CORSRule(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "INVALID_PARAM", resp.ErrorCode)
}

func TestEmbeddablesByName(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	srv, _ := mockInstance(t)
	h := newTestHandler(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checks/embeddables/by-name?name=chat", nil)
	w := httptest.NewRecorder()
	h.EmbeddablesByName(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data, _ := resp.Data.(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, true, data["found"])
	assert.Equal(t, true, data["all_active"])
}

func TestRunAll_RecordsHistory(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	srv, _ := mockInstance(t)
	h := newTestHandler(t, srv.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checks/run-all?domain=app.example.com", nil)
	w := httptest.NewRecorder()
	h.RunAll(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data, _ := resp.Data.(map[string]interface{})
	require.NotNil(t, data)
	for _, key := range []string{
		"embeddables_enabled", "embeddables_plugin", "client_access_plugin",
		"cors_rule", "embeddable_activation",
	} {
		assert.Contains(t, data, key)
	}

	runs, total, err := database.NewCheckRunRepo().List(database.CheckRunFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "report", runs[0].CheckName)
	assert.Equal(t, "rest", runs[0].Source)
	assert.True(t, runs[0].Success)
	assert.NotEmpty(t, runs[0].RunID)
}

func TestRunsList(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	repo := database.NewCheckRunRepo()
	require.NoError(t, repo.Create(&database.CheckRun{RunID: "r1", CheckName: "connect", Source: "rest", Success: true}))
	require.NoError(t, repo.Create(&database.CheckRun{RunID: "r2", CheckName: "report", Source: "mcp", Success: false}))

	h := NewRunsHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?source=mcp", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data, _ := resp.Data.(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, float64(1), data["total"])
}

func TestRunsList_RejectsUnsafeSortColumn(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	repo := database.NewCheckRunRepo()
	require.NoError(t, repo.Create(&database.CheckRun{RunID: "r1", CheckName: "connect", Source: "rest", Success: true}))

	h := NewRunsHandler()

	// sort_by comes straight off the query string; anything that is not a
	// known column must fall back to created_at instead of hitting raw SQL.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?sort_by=created_at%3B--broken", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data, _ := resp.Data.(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, float64(1), data["total"])
}
