package embedzip

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/pydevctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func buildZip(t *testing.T, entries []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python-3.12.4-embed-amd64.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := zip.NewWriter(f)
	for _, name := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if strings.HasSuffix(name, "/") {
			continue
		}
		if _, err := fw.Write([]byte("data:" + name)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestExtractEmbeddableLayout(t *testing.T) {
	testlog.Start(t)
	zipPath := buildZip(t, []string{"python312.dll", "python312.zip", "python312._pth", "DLLs/", "libs/_ctypes.pyd"})
	dest := t.TempDir()

	files, err := Extract(zipPath, dest)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := []string{"python312.dll", "python312.zip", "python312._pth", "libs/_ctypes.pyd"}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	data, err := os.ReadFile(filepath.Join(dest, "python312.dll"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "data:python312.dll" {
		t.Fatalf("unexpected content: %q", data)
	}
	if info, err := os.Stat(filepath.Join(dest, "DLLs")); err != nil || !info.IsDir() {
		t.Fatalf("expected DLLs dir, err=%v", err)
	}
}

func TestExtractContainsTraversal(t *testing.T) {
	testlog.Start(t)
	zipPath := buildZip(t, []string{"../../escape.txt"})
	parent := t.TempDir()
	dest := filepath.Join(parent, "x64")

	files, err := Extract(zipPath, dest)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(files) != 1 || files[0] != "escape.txt" {
		t.Fatalf("expected entry clamped into dest, got %v", files)
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("entry escaped dest, stat err=%v", err)
	}
}

func TestExtractRejectsAbsoluteEntry(t *testing.T) {
	testlog.Start(t)
	zipPath := buildZip(t, []string{"/etc/evil"})
	if _, err := Extract(zipPath, t.TempDir()); !errors.Is(err, ErrUnsafeEntry) {
		t.Fatalf("expected ErrUnsafeEntry, got %v", err)
	}
}

func TestExtractMissingZip(t *testing.T) {
	testlog.Start(t)
	if _, err := Extract(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir()); err == nil {
		t.Fatalf("expected open error")
	}
}
