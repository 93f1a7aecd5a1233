package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/danmuck/pydevctl/internal/devfiles"
	"github.com/danmuck/pydevctl/internal/embedzip"
	"github.com/danmuck/pydevctl/internal/fetch"
	"github.com/danmuck/pydevctl/internal/manifest"
	"github.com/danmuck/pydevctl/internal/msi"
	"github.com/rs/zerolog/log"
)

var ErrNothingToFetch = errors.New("download: no artifacts selected")

type Options struct {
	Version devfiles.Version
	Arch    devfiles.Arch
	// Root is the python_dev directory.
	Root string
	// MSIs are fetched and extracted in order.
	MSIs []string
	// Embed also fetches the embeddable zip distribution.
	Embed bool
	// EmbedSubdir places the zip contents under the arch dir; empty extracts
	// beside the MSI contents.
	EmbedSubdir string
	// CacheDir, when set, holds downloads in python.org FTP layout instead of
	// the arch dir.
	CacheDir     string
	SkipExisting bool
	Concurrency  int
}

type Runner struct {
	Client    *fetch.Client
	Extractor *msi.Extractor
	Now       func() time.Time
}

// Run fetches and extracts the selected artifacts and returns the manifest
// written to the arch dir.
func (r *Runner) Run(ctx context.Context, opts Options) (manifest.Manifest, error) {
	if len(opts.MSIs) == 0 && !opts.Embed {
		return manifest.Manifest{}, ErrNothingToFetch
	}
	archDir, err := devfiles.Layout{Root: opts.Root, Arch: opts.Arch}.EnsureArchDir()
	if err != nil {
		return manifest.Manifest{}, err
	}

	prev, err := manifest.Load(archDir)
	if err != nil && !errors.Is(err, manifest.ErrNoManifest) {
		log.Warn().Err(err).Str("dir", archDir).Msg("ignoring unreadable manifest")
	}
	sameRelease := err == nil && prev.Version == opts.Version.String() && prev.Arch == string(opts.Arch)

	msiDir, zipDir := archDir, archDir
	if strings.TrimSpace(opts.CacheDir) != "" {
		msiDir = filepath.Join(opts.CacheDir, filepath.FromSlash(fetch.MSIDir(opts.Version, opts.Arch)))
		zipDir = filepath.Join(opts.CacheDir, opts.Version.Release())
	}

	reqs := r.Client.MSIRequests(opts.Version, opts.Arch, msiDir, opts.MSIs)
	if opts.Embed {
		reqs = append(reqs, fetch.Request{
			Kind: fetch.KindEmbed,
			Arch: opts.Arch,
			URL:  r.Client.EmbedZipURL(opts.Version, opts.Arch),
			Path: filepath.Join(zipDir, fetch.EmbedZipName(opts.Version, opts.Arch)),
		})
	}

	next := manifest.Manifest{
		Version:   opts.Version.String(),
		Arch:      string(opts.Arch),
		FetchedAt: r.now(),
	}

	// Artifacts are recorded in request order whether fetched or reused.
	artifacts := make([]manifest.Artifact, len(reqs))
	var (
		pending    []fetch.Request
		pendingIdx []int
	)
	for i, req := range reqs {
		if opts.SkipExisting && sameRelease {
			if a, ok := reusable(prev, req); ok {
				log.Info().Str("path", req.Path).Msg("already fetched, skipping download")
				artifacts[i] = a
				continue
			}
		}
		pending = append(pending, req)
		pendingIdx = append(pendingIdx, i)
	}

	results, err := r.Client.DownloadAll(ctx, pending, opts.Concurrency)
	if err != nil {
		return manifest.Manifest{}, err
	}
	for i, res := range results {
		artifacts[pendingIdx[i]] = manifest.Artifact{
			Name:   filepath.Base(res.Path),
			Kind:   string(pending[i].Kind),
			URL:    res.URL,
			SHA256: res.SHA256,
			Bytes:  res.Bytes,
		}
	}
	for _, a := range artifacts {
		next.Upsert(a)
	}

	var msiPaths []string
	for _, req := range reqs {
		if req.Kind == fetch.KindMSI {
			msiPaths = append(msiPaths, req.Path)
		}
	}
	if err := r.Extractor.ExtractAll(ctx, msiPaths, archDir); err != nil {
		return manifest.Manifest{}, err
	}

	if opts.Embed {
		zipReq := reqs[len(reqs)-1]
		dest := archDir
		if sub := strings.TrimSpace(opts.EmbedSubdir); sub != "" {
			// Scoped to the arch dir: "../x" resolves to <archdir>/x.
			dest, err = securejoin.SecureJoin(archDir, sub)
			if err != nil {
				return manifest.Manifest{}, fmt.Errorf("embed subdir %q: %w", sub, err)
			}
		}
		if _, err := embedzip.Extract(zipReq.Path, dest); err != nil {
			return manifest.Manifest{}, err
		}
	}

	if err := manifest.Save(archDir, next); err != nil {
		return manifest.Manifest{}, fmt.Errorf("save manifest: %w", err)
	}
	log.Info().
		Str("version", next.Version).
		Str("arch", next.Arch).
		Str("dir", archDir).
		Int("artifacts", len(next.Artifacts)).
		Msg("dev files ready")
	return next, nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// reusable reports whether the file at req.Path still matches its record.
func reusable(prev manifest.Manifest, req fetch.Request) (manifest.Artifact, bool) {
	a, ok := prev.Lookup(filepath.Base(req.Path))
	if !ok || a.URL != req.URL {
		return manifest.Artifact{}, false
	}
	sum, _, err := fetch.FileSHA256(req.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debug().Err(err).Str("path", req.Path).Msg("cannot hash cached artifact")
		}
		return manifest.Artifact{}, false
	}
	return a, sum == a.SHA256
}
