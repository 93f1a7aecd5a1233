package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/pydevctl/internal/fetch"
)

// pydevctl settings; every field can also come from a flag.
type appConfig struct {
	Dir          string
	BaseURL      string
	MSIs         []string
	Embed        bool
	EmbedSubdir  string
	CacheDir     string
	Concurrency  int
	SkipExisting bool
	MetricsFile  string
	Python       string
	Mirror       mirrorConfig
}

type mirrorConfig struct {
	ID              string
	Addr            string
	Root            string
	CorsOrigins     []string
	ListDirectories bool
}

func defaultAppConfig() appConfig {
	return appConfig{
		BaseURL:     fetch.DefaultBaseURL,
		MSIs:        append([]string(nil), fetch.DefaultMSIs...),
		Concurrency: 1,
		Mirror: mirrorConfig{
			ID:   "pydev-mirror",
			Addr: ":8080",
		},
	}
}

// pydevctl config.toml key mapping.
type fileConfig struct {
	Dir          string     `toml:"dir"`
	BaseURL      string     `toml:"base_url"`
	MSIs         []string   `toml:"msis"`
	Embed        bool       `toml:"embed"`
	EmbedSubdir  string     `toml:"embed_subdir"`
	CacheDir     string     `toml:"cache_dir"`
	Concurrency  int        `toml:"concurrency"`
	SkipExisting bool       `toml:"skip_existing"`
	MetricsFile  string     `toml:"metrics_file"`
	Python       string     `toml:"python"`
	Mirror       fileMirror `toml:"mirror"`
}

type fileMirror struct {
	ID              string   `toml:"id"`
	Addr            string   `toml:"addr"`
	Root            string   `toml:"root"`
	CorsOrigins     []string `toml:"cors_origins"`
	ListDirectories bool     `toml:"list_directories"`
}

// pydevctl loader for TOML config with default overlay.
func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load pydevctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return appConfig{}, fmt.Errorf("load pydevctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("dir") {
		cfg.Dir = strings.TrimSpace(raw.Dir)
	}
	if meta.IsDefined("base_url") {
		cfg.BaseURL = strings.TrimSpace(raw.BaseURL)
	}
	if meta.IsDefined("msis") {
		cfg.MSIs = normalizeNames(raw.MSIs)
	}
	if meta.IsDefined("embed") {
		cfg.Embed = raw.Embed
	}
	if meta.IsDefined("embed_subdir") {
		cfg.EmbedSubdir = strings.TrimSpace(raw.EmbedSubdir)
	}
	if meta.IsDefined("cache_dir") {
		cfg.CacheDir = strings.TrimSpace(raw.CacheDir)
	}
	if meta.IsDefined("concurrency") {
		if raw.Concurrency < 1 {
			return appConfig{}, fmt.Errorf("parse concurrency: must be >= 1, got %d", raw.Concurrency)
		}
		cfg.Concurrency = raw.Concurrency
	}
	if meta.IsDefined("skip_existing") {
		cfg.SkipExisting = raw.SkipExisting
	}
	if meta.IsDefined("metrics_file") {
		cfg.MetricsFile = strings.TrimSpace(raw.MetricsFile)
	}
	if meta.IsDefined("python") {
		cfg.Python = strings.TrimSpace(raw.Python)
	}

	if meta.IsDefined("mirror", "id") {
		cfg.Mirror.ID = strings.TrimSpace(raw.Mirror.ID)
	}
	if meta.IsDefined("mirror", "addr") {
		cfg.Mirror.Addr = strings.TrimSpace(raw.Mirror.Addr)
	}
	if meta.IsDefined("mirror", "root") {
		cfg.Mirror.Root = strings.TrimSpace(raw.Mirror.Root)
	}
	if meta.IsDefined("mirror", "cors_origins") {
		cfg.Mirror.CorsOrigins = normalizeNames(raw.Mirror.CorsOrigins)
	}
	if meta.IsDefined("mirror", "list_directories") {
		cfg.Mirror.ListDirectories = raw.Mirror.ListDirectories
	}

	return cfg, nil
}

func normalizeNames(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, name := range in {
		v := strings.TrimSpace(name)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
