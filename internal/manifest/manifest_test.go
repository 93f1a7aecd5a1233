package manifest

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/danmuck/pydevctl/internal/testutil/testlog"
)

func TestSaveLoad(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	fetched := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	m := Manifest{Version: "3.12.4", Arch: "amd64", FetchedAt: fetched}
	m.Upsert(Artifact{Name: "dev.msi", Kind: "msi", SHA256: "aa", Bytes: 10})
	m.Upsert(Artifact{Name: "dev_d.msi", Kind: "msi", SHA256: "bb", Bytes: 20})
	m.Upsert(Artifact{Name: "dev.msi", Kind: "msi", SHA256: "cc", Bytes: 11})

	if err := Save(dir, m); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Version != "3.12.4" || got.Arch != "amd64" {
		t.Fatalf("unexpected header: %+v", got)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Fatalf("unexpected fetched_at: %v", got.FetchedAt)
	}
	if len(got.Artifacts) != 2 {
		t.Fatalf("unexpected artifacts: %+v", got.Artifacts)
	}
	a, ok := got.Lookup("dev.msi")
	if !ok || a.SHA256 != "cc" || a.Bytes != 11 {
		t.Fatalf("unexpected dev.msi record: %+v ok=%v", a, ok)
	}
	if _, ok := got.Lookup("python.zip"); ok {
		t.Fatalf("unexpected lookup hit")
	}
}

func TestLoadMissing(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("expected ErrNoManifest, got %v", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte("version = ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil || errors.Is(err, ErrNoManifest) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
