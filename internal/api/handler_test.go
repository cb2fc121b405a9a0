package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/towerroot/internal/api"
	"github.com/gyaneshwarpardhi/towerroot/internal/config"
	"github.com/gyaneshwarpardhi/towerroot/internal/engine"
	"github.com/gyaneshwarpardhi/towerroot/internal/report"
)

const sampleTower = `pbga (66)
xhth (57)
ebii (61)
havc (66)
ktlj (57)
fwft (72) -> ktlj, cntj, xhth
qoyq (66)
padx (45) -> pbga, havc, qoyq
tknk (41) -> ugml, padx, fwft
jptl (61)
ugml (68) -> gyxo, ebii, jptl
gyxo (61)
cntj (57)
`

type fixture struct {
	srv       *httptest.Server
	eng       *engine.Engine
	inputPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "towers.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleTower), 0o644))

	cfg := config.Default()
	cfg.Input.Path = path
	loader := config.NewStaticLoader(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	eng := engine.New(ctx, loader.Config().Engine)
	srv := httptest.NewServer(api.New(eng, loader, report.Default()))
	t.Cleanup(func() {
		srv.Close()
		eng.Shutdown()
		cancel()
	})
	return &fixture{srv: srv, eng: eng, inputPath: path}
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func decode(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &m), body)
	return m
}

func TestSort_TextBody(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/v1/sort?name=sample", "text/plain", sampleTower)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	m := decode(t, body)
	rep := m["report"].(map[string]interface{})
	assert.Equal(t, "tknk", rep["root"])
	assert.Equal(t, float64(13), rep["count"])
	assert.Equal(t, "sample", m["name"])
}

func TestSort_JSONBody(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/v1/sort?format=root", "application/json",
		`{"name":"small","lines":["a (1) -> b, c","b (2)","c (3)"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "a\n", body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestSort_JSONLinesNormalized(t *testing.T) {
	f := newFixture(t)
	lines := "a (1) -> b\n\n  b (2)  \n"
	_, textBody := f.do(t, http.MethodPost, "/v1/sort?format=plain", "text/plain", lines)

	resp, body := f.do(t, http.MethodPost, "/v1/sort?format=plain", "application/json",
		`{"lines":["a (1) -> b",""," b (2) "]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "b\na\n", body)
	assert.Equal(t, textBody, body)

	resp, body = f.do(t, http.MethodPost, "/v1/sort/batch", "application/json",
		`[{"lines":["r (1) -> x","","x (1)"]}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, float64(0), decode(t, body)["failed"])
}

func TestSort_Errors(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name   string
		path   string
		ctype  string
		body   string
		status int
		kind   string
	}{
		{"parse error", "/v1/sort", "text/plain", "a (1)\nabc 5\n", http.StatusBadRequest, "parse_error"},
		{"dangling", "/v1/sort", "text/plain", "a (1) -> zz\n", http.StatusUnprocessableEntity, "dangling_neighbor"},
		{"two roots", "/v1/sort", "text/plain", "a (1)\nb (1)\n", http.StatusUnprocessableEntity, "multiple_roots"},
		{"empty", "/v1/sort", "text/plain", "\n\n", http.StatusUnprocessableEntity, "empty"},
		{"bad json", "/v1/sort", "application/json", "{", http.StatusBadRequest, ""},
		{"unknown format", "/v1/sort?format=xml", "text/plain", sampleTower, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, tc.path, tc.ctype, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode, body)
			m := decode(t, body)
			assert.NotEmpty(t, m["error"])
			if tc.kind != "" {
				assert.Equal(t, tc.kind, m["kind"])
			}
		})
	}
}

func TestSort_ParseErrorLine(t *testing.T) {
	f := newFixture(t)
	_, body := f.do(t, http.MethodPost, "/v1/sort", "text/plain", "a (1) -> b\nb (2)\nabc 5\n")
	assert.Equal(t, float64(3), decode(t, body)["line"])
}

func TestSortBatch(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/v1/sort/batch", "application/json",
		`[{"name":"ok","lines":["r (1) -> x","x (1)"]},{"name":"bad","lines":["abc 5"]}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	m := decode(t, body)
	assert.Equal(t, float64(2), m["total"])
	assert.Equal(t, float64(1), m["failed"])
	results := m["results"].([]interface{})
	first := results[0].(map[string]interface{})
	assert.Equal(t, "r", first["report"].(map[string]interface{})["root"])
	assert.NotEmpty(t, results[1].(map[string]interface{})["error"])
}

func TestSortBatch_Limits(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/v1/sort/batch", "application/json", `[]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	big := "[" + strings.TrimSuffix(strings.Repeat(`{"lines":["a (1)"]},`, 101), ",") + "]"
	resp, _ = f.do(t, http.MethodPost, "/v1/sort/batch", "application/json", big)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTreeLifecycle(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/v1/tree", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/v1/tree/reload", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "tknk", decode(t, body)["root"])

	resp, body = f.do(t, http.MethodGet, "/v1/tree/root", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(13), decode(t, body)["nodes"])

	resp, body = f.do(t, http.MethodGet, "/v1/tree?format=plain", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Len(t, lines, 13)
	assert.Equal(t, "tknk", lines[12])

	resp, body = f.do(t, http.MethodGet, "/v1/tree", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode(t, body)["snapshot_id"])

	resp, _ = f.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A broken file keeps the previous tree.
	require.NoError(t, os.WriteFile(f.inputPath, []byte("a (1)\nb (1)\n"), 0o644))
	resp, _ = f.do(t, http.MethodPost, "/v1/tree/reload", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	_, body = f.do(t, http.MethodGet, "/v1/tree/root", "", "")
	assert.Equal(t, "tknk", decode(t, body)["root"])
}

func TestProbesAndMetrics(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, body)["status"])

	f.do(t, http.MethodPost, "/v1/sort", "text/plain", sampleTower)
	resp, body = f.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "towerroot_sorts_total")
}

func TestRequestIDPropagates(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}
