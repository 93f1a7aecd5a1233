package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadAppConfigExample(t *testing.T) {
	cfg, err := loadAppConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Dir != "python_dev" {
		t.Fatalf("unexpected dir: %q", cfg.Dir)
	}
	if diff := cmp.Diff([]string{"dev.msi", "dev_d.msi"}, cfg.MSIs); diff != "" {
		t.Fatalf("msis mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Embed || cfg.EmbedSubdir != "embed" {
		t.Fatalf("unexpected embed settings: %v %q", cfg.Embed, cfg.EmbedSubdir)
	}
	if cfg.CacheDir != "local/pydev-cache" {
		t.Fatalf("unexpected cache dir: %q", cfg.CacheDir)
	}
	if cfg.Concurrency != 2 || !cfg.SkipExisting {
		t.Fatalf("unexpected fetch settings: %+v", cfg)
	}
	if cfg.Mirror.ID != "pydev-mirror.local" || cfg.Mirror.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected mirror: %+v", cfg.Mirror)
	}
	if !cfg.Mirror.ListDirectories || len(cfg.Mirror.CorsOrigins) != 1 {
		t.Fatalf("unexpected mirror options: %+v", cfg.Mirror)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pydevctl.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppConfigKeepsDefaults(t *testing.T) {
	cfg, err := loadAppConfig(writeConfig(t, `python = " C:\\Python312\\python.exe "`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := defaultAppConfig()
	if cfg.BaseURL != def.BaseURL || cfg.Concurrency != 1 || cfg.Mirror.Addr != ":8080" {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
	if diff := cmp.Diff(def.MSIs, cfg.MSIs); diff != "" {
		t.Fatalf("msis mismatch (-want +got):\n%s", diff)
	}
	if cfg.Python != `C:\Python312\python.exe` {
		t.Fatalf("unexpected python: %q", cfg.Python)
	}
}

func TestLoadAppConfigEmptyMSIList(t *testing.T) {
	cfg, err := loadAppConfig(writeConfig(t, `msis = [" ", ""]`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.MSIs) != 0 {
		t.Fatalf("expected no msis, got %v", cfg.MSIs)
	}
}

func TestLoadAppConfigRejectsBadValues(t *testing.T) {
	for _, content := range []string{
		"concurrency = 0",
		"unknown_key = true",
		"dir = [",
	} {
		if _, err := loadAppConfig(writeConfig(t, content)); err == nil {
			t.Fatalf("expected error for %q", content)
		}
	}
}
