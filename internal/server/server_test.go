package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memtower/internal/config"
	"github.com/matzehuels/memtower/pkg/cache"
	"github.com/matzehuels/memtower/pkg/errors"
	"github.com/matzehuels/memtower/pkg/pipeline"
)

const testTrace = `{"events": [
	{"type": "scope_entry", "id": 1, "scope_type": "loop"},
	{"type": "allocation", "buffer_name": "A", "size": 256},
	{"type": "access", "buffer_name": "A", "mode": "w", "offset": 0},
	{"type": "access", "buffer_name": "A", "mode": "r", "offset": 8},
	{"type": "scope_exit", "id": 1},
	{"type": "deallocation", "buffer_name": "A"}
]}`

func newTestServer(t *testing.T, cfg config.Server) *httptest.Server {
	t.Helper()
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	s, err := New(cfg, pipeline.NewRunner(c, nil, logger), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.Server{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
}

func TestLayout(t *testing.T) {
	ts := newTestServer(t, config.Server{})

	resp := post(t, ts.URL+"/v1/layout?source=run.json", testTrace)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Cache") != "miss" {
		t.Errorf("X-Cache = %q, want miss", resp.Header.Get("X-Cache"))
	}
	var layout struct {
		Source     string `json:"source"`
		EventCount int    `json:"event_count"`
		Containers []struct {
			Name string `json:"name"`
		} `json:"containers"`
		Scopes []struct {
			Label string `json:"label"`
		} `json:"scopes"`
	}
	decode(t, resp, &layout)
	if layout.Source != "run.json" || layout.EventCount != 2 {
		t.Errorf("layout header = %+v", layout)
	}
	if len(layout.Containers) != 1 || layout.Containers[0].Name != "A" {
		t.Errorf("containers = %+v", layout.Containers)
	}
	if len(layout.Scopes) != 1 || layout.Scopes[0].Label != "Loop 1" {
		t.Errorf("scopes = %+v", layout.Scopes)
	}

	again := post(t, ts.URL+"/v1/layout?source=run.json", testTrace)
	if again.Header.Get("X-Cache") != "hit" {
		t.Errorf("second X-Cache = %q, want hit", again.Header.Get("X-Cache"))
	}
}

func TestRender(t *testing.T) {
	ts := newTestServer(t, config.Server{})

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"svg", "image/svg+xml", "<svg"},
		{"dot", "text/vnd.graphviz; charset=utf-8", "digraph scopes"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/render/"+tt.format+"?tooltips=true", testTrace)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q", got)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body lacks %q", tt.contains)
			}
		})
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(rules, []byte("in:\n  - A\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, config.Server{Rules: rules})

	resp := post(t, ts.URL+"/v1/stats", testTrace)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var s pipeline.Summary
	decode(t, resp, &s)
	if s.Containers != 1 || s.InputOnly != 256 || s.MedianReuseDistance != 1 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Buffers) != 1 || s.Buffers[0].Role != "input" {
		t.Errorf("buffers = %+v", s.Buffers)
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t, config.Server{MaxBodyBytes: 2048})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed trace", "/v1/layout", "{", http.StatusBadRequest, "INVALID_TRACE"},
		{"missing events", "/v1/stats", `{}`, http.StatusBadRequest, "MISSING_FIELD"},
		{"unknown format", "/v1/render/gif", testTrace, http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad shape", "/v1/layout?shape=xml", testTrace, http.StatusBadRequest, "INVALID_SHAPE"},
		{"bad width", "/v1/layout?target_width=wide", testTrace, http.StatusBadRequest, "INVALID_INPUT"},
		{"negative width", "/v1/layout?target_width=-5", testTrace, http.StatusBadRequest, "INVALID_DIMENSION"},
		{"too large", "/v1/layout", strings.Repeat(" ", 4096) + testTrace, http.StatusRequestEntityTooLarge, "INVALID_INPUT"},
		{"unknown route", "/v1/compile", testTrace, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorBody
			decode(t, resp, &body)
			if body.Code != tt.code {
				t.Errorf("code = %q (%s), want %q", body.Code, body.Message, tt.code)
			}
		})
	}
}

func TestWriteErrorBackend(t *testing.T) {
	s := &Server{logger: log.NewWithOptions(io.Discard, log.Options{})}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"timeout code", errors.New(errors.ErrCodeTimeout, "connect redis: timed out"), http.StatusGatewayTimeout, "TIMEOUT"},
		{"deadline", fmt.Errorf("render: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"network", errors.New(errors.ErrCodeNetwork, "connect mongodb"), http.StatusServiceUnavailable, "NETWORK_ERROR"},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/layout", nil)
			s.writeError(rec, req, tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body errorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
		})
	}
}

func TestNewRejectsBadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(`{"in": [{"type": "glob", "expr": "*"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	if _, err := New(config.Server{Rules: path}, pipeline.NewRunner(nil, nil, logger), logger); err == nil {
		t.Error("New accepted invalid rules")
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, config.Server{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if id := resp.Header.Get("X-Request-Id"); len(id) != 36 {
		t.Errorf("generated request id = %q, want a UUID", id)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if id := resp.Header.Get("X-Request-Id"); id != "abc-123" {
		t.Errorf("request id = %q, want the caller's abc-123", id)
	}
}
