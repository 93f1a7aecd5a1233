package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/pydevctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func seedCache(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"3.12.4/amd64/dev.msi":                    "dev",
		"3.12.4/amd64/dev_d.msi":                  "dev_d",
		"3.12.4/win32/dev.msi":                    "dev32",
		"3.12.4/python-3.12.4-embed-amd64.zip":    "zip",
		"3.13.0/arm64rc2/dev.msi":                 "arm",
		"3.13.0/python-3.13.0rc2-embed-arm64.zip": "zip-rc",
		"3.13.0/arm64rc/dev.msi":                  "ignored",
		"3.13.0rc2/arm64/dev.msi":                 "ignored",
		"scratch/notes.txt":                       "ignored",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func TestNewRejectsMissingRoot(t *testing.T) {
	testlog.Start(t)
	if _, err := New(Config{Root: filepath.Join(t.TempDir(), "missing")}); !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("expected ErrInvalidRoot, got %v", err)
	}
}

func TestServesArtifactsInFTPLayout(t *testing.T) {
	testlog.Start(t)
	s, err := New(Config{Root: seedCache(t)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + BasePath + "/3.12.4/amd64/dev_d.msi")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "dev_d" {
		t.Fatalf("unexpected response: %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + BasePath + "/3.12.4/amd64/missing.msi")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	s, err := New(Config{ID: "mirror-a", Root: seedCache(t)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"service":"mirror-a"`) {
		t.Fatalf("unexpected health: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pydev_http_requests_total") {
		t.Fatalf("unexpected metrics: %d %s", w.Code, w.Body.String())
	}
}

func TestVersionsEndpoint(t *testing.T) {
	testlog.Start(t)
	s, err := New(Config{Root: seedCache(t)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/versions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var body struct {
		Versions []CachedVersion `json:"versions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []CachedVersion{
		{Version: "3.12.4", Arches: []string{"amd64", "win32"}, Embed: []string{"python-3.12.4-embed-amd64.zip"}},
		{Version: "3.13.0", Arches: []string{"arm64rc2"}, Embed: []string{"python-3.13.0rc2-embed-arm64.zip"}},
	}
	if diff := cmp.Diff(want, body.Versions); diff != "" {
		t.Fatalf("versions mismatch (-want +got):\n%s", diff)
	}
}

func TestServeReturnsAfterCancel(t *testing.T) {
	testlog.Start(t)
	s, err := New(Config{Addr: "127.0.0.1:0", Root: seedCache(t)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
}

func TestServeFailsOnBusyAddr(t *testing.T) {
	testlog.Start(t)
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	s, err := New(Config{Addr: strings.TrimPrefix(ts.URL, "http://"), Root: seedCache(t)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Serve(context.Background()); err == nil {
		t.Fatalf("expected listen error on a bound address")
	}
}
