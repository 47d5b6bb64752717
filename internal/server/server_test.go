package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"winnow-be/internal/bootstrap"
	"winnow-be/internal/config"
	"winnow-be/internal/pkg/logger"
	"winnow-be/pkg/toolscript"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLauncher stands in for the tool: it leaves a result file behind and
// prints a fixed progress script.
type scriptedLauncher struct {
	runFile  string
	report   string
	lines    []string
	payloads [][]byte
}

type scriptedProcess struct {
	stdout io.Reader
}

func (p *scriptedProcess) Stdout() io.Reader { return p.stdout }
func (p *scriptedProcess) Wait() error       { return nil }

func (l *scriptedLauncher) Start(ctx context.Context, payload []byte) (toolscript.Process, error) {
	l.payloads = append(l.payloads, payload)
	if err := os.WriteFile(l.runFile, []byte(l.report), 0o644); err != nil {
		return nil, err
	}
	return &scriptedProcess{stdout: strings.NewReader(strings.Join(l.lines, "\n") + "\n")}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app      *fiber.App
	cfg      *config.Config
	launcher *scriptedLauncher
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	root := t.TempDir()
	spaDir := filepath.Join(root, "www-data")
	require.NoError(t, os.MkdirAll(spaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(spaDir, "index.html"), []byte("<html>winnow</html>"), 0o644))

	cfg := &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			CorsAllowedOrigins: "*",
			SpaPath:            spaDir,
			OutcomeRetention:   time.Minute,
		},
		Storage: config.StorageConfig{Root: root},
		Tool:    config.ToolConfig{Timeout: time.Minute},
	}

	launcher := &scriptedLauncher{
		runFile: cfg.Storage.RunFile(),
		report:  `{"id":"RunOne-2024-01-0110:00:00","individual-reports":{"alice":{"keyword-contexts":[]}}}`,
		lines: []string{
			`{"type":"progress-message","content":"Reading collections"}`,
			`{"type":"progress","content":50}`,
			`{"type":"progress","content":100}`,
			`{"type":"progress-message","content":"Done"}`,
		},
	}

	container, err := bootstrap.NewContainer(cfg, logger.NewNopLogger(), bootstrap.Options{Launcher: launcher})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = container.Close()
	})
	require.NoError(t, container.Start(ctx))

	return testServer{app: New(cfg, container).GetApp(), cfg: cfg, launcher: launcher}
}

func (s testServer) do(t *testing.T, method, target string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req)
}

func (s testServer) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func (s testServer) upload(t *testing.T, target string, files map[string]string) (int, envelope) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte(content))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.send(t, req)
}

func TestRunWorkflow(t *testing.T) {
	s := newTestServer(t)

	// Catalogue
	code, _ := s.do(t, "POST", "/api/collections", map[string]interface{}{
		"id": "c1", "name": "Oral histories", "collection_count": 2, "shortenedName": "oral",
		"description": "", "themes": "", "notes": "",
	})
	require.Equal(t, http.StatusOK, code)

	code, env := s.upload(t, "/api/collections/c1/files", map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	require.Equal(t, http.StatusOK, code)
	assert.FileExists(t, filepath.Join(s.cfg.Storage.CollectionsDir(), "c1", "a.txt"))
	assert.Contains(t, string(env.Data), "b.txt")

	code, _ = s.do(t, "POST", "/api/keyword-lists", map[string]interface{}{
		"id": "k1", "name": "Conflict", "version": 1, "date_added": "2024-01-01", "included": "war,army", "excluded": "",
	})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, "PUT", "/api/keyword-lists/k1", map[string]interface{}{
		"name": "Conflict", "version": "2", "date_added": "2024-01-01", "included": []string{"war", "battle"}, "excluded": []string{"peace"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":"k1","name":"Conflict","version":"2","date-added":"2024-01-01","include":["war","battle"],"exclude":["peace"]}`, string(env.Data))

	// Staging
	code, env = s.do(t, "GET", "/api/current-run/progress", nil)
	require.Equal(t, http.StatusOK, code)
	var progress map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.EqualValues(t, 0, progress["total"])
	assert.Equal(t, "", progress["message"])

	code, env = s.do(t, "POST", "/api/current-run/name", map[string]interface{}{
		"data": map[string]string{"name": "Run One", "time": "2024-01-01 10:00:00"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"id":"RunOne-2024-01-0110:00:00"`)

	code, _ = s.do(t, "POST", "/api/current-run/collections", map[string]interface{}{"data": []string{"c1"}})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, "POST", "/api/current-run/keyword-lists", map[string]interface{}{"data": []string{"k1"}})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, "POST", "/api/current-run/metadata", map[string]interface{}{"data": "metadata1.csv"})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, "GET", "/api/current-run/report", nil)
	assert.Equal(t, http.StatusConflict, code, "no report before the launch finishes")

	// Launch
	code, env = s.do(t, "POST", "/api/current-run/launch", map[string]interface{}{"data": []string{"alice"}})
	require.Equal(t, http.StatusOK, code)
	var outcome map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &outcome))
	assert.Equal(t, "succeeded", outcome["status"])
	assert.EqualValues(t, 100, outcome["total"])
	assert.Equal(t, "Done", outcome["message"])

	require.Len(t, s.launcher.payloads, 1)
	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(s.launcher.payloads[0], &payload))
	assert.JSONEq(t, `["alice"]`, string(payload["interviewees"]))
	assert.Contains(t, string(payload["keywordList"]), `"battle"`)

	code, _ = s.do(t, "GET", "/api/current-run/outcomes/"+outcome["attemptId"].(string), nil)
	assert.Equal(t, http.StatusOK, code)

	// Report
	code, env = s.do(t, "GET", "/api/current-run/report", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "individual-reports")

	code, _ = s.do(t, "PUT", "/api/runs/keyword-contexts", map[string]interface{}{
		"individualRunName": "alice", "contexts": []string{"the war"},
	})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, "GET", "/api/runs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"keyword-contexts":["the war"]`)

	doc, err := os.ReadFile(s.cfg.Storage.DataFile())
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"RunOne-2024-01-0110:00:00"`)
	assert.Contains(t, string(doc), `"collection-count": 2`)

	// Metrics
	resp, err := s.app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	metricsBody, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(metricsBody), `winnow_run_outcomes_total{status="succeeded"} 1`)

	// Clients percent-encode the colons of timestamp-derived ids.
	code, _ = s.do(t, "DELETE", "/api/runs/"+encodeColons("RunOne-2024-01-0110:00:00"), nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = s.do(t, "GET", "/api/runs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "RunOne-2024-01-0110:00:00")
}

func encodeColons(id string) string {
	return strings.ReplaceAll(id, ":", "%3A")
}

func TestEncodedPathIds(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, "POST", "/api/keyword-lists", map[string]interface{}{
		"id": "k:1", "name": "Timed", "version": "1", "date_added": "2024-01-01 10:00:00", "included": "a", "excluded": "",
	})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, "PUT", "/api/keyword-lists/"+encodeColons("k:1"), map[string]interface{}{
		"name": "Timed", "version": "2", "date_added": "2024-01-01 10:00:00", "included": []string{"b"}, "excluded": []string{},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"id":"k:1"`)

	code, _ = s.do(t, "DELETE", "/api/keyword-lists/k%3A1", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, "POST", "/api/collections", map[string]interface{}{"id": "oral histories", "name": "Oral"})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, "DELETE", "/api/collections/oral%20histories", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestLaunchWithUnknownCollectionIsUnprocessable(t *testing.T) {
	s := newTestServer(t)

	s.do(t, "POST", "/api/current-run/name", map[string]interface{}{
		"data": map[string]string{"name": "Run", "time": "now"},
	})
	s.do(t, "POST", "/api/current-run/collections", map[string]interface{}{"data": []string{"ghost"}})

	code, env := s.do(t, "POST", "/api/current-run/launch", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, env.Success)
	assert.Empty(t, s.launcher.payloads)
}

func TestNotFoundAndValidation(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, "DELETE", "/api/collections/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, http.StatusNotFound, env.Code)

	code, _ = s.do(t, "DELETE", "/api/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, "PUT", "/api/keyword-lists/missing", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, "POST", "/api/collections", map[string]interface{}{"name": "no id"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, "POST", "/api/current-run/cancel", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, "GET", "/api/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetadataFiles(t *testing.T) {
	s := newTestServer(t)

	code, env := s.upload(t, "/api/metadata-files", map[string]string{"people.csv": "id,name"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"metadata`)

	code, env = s.do(t, "GET", "/api/metadata-files", nil)
	require.Equal(t, http.StatusOK, code)
	var res struct {
		Files []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Files, 1)
	assert.True(t, strings.HasPrefix(res.Files[0], "metadata"))
	assert.True(t, strings.HasSuffix(res.Files[0], ".csv"))
}

func TestSPAFallback(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/dashboard/42", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<html>winnow</html>", string(body))
}
