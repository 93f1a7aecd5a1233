package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/pydevctl/internal/devfiles"
	"github.com/danmuck/pydevctl/internal/download"
	"github.com/danmuck/pydevctl/internal/fetch"
	"github.com/danmuck/pydevctl/internal/msi"
	"github.com/danmuck/pydevctl/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type downloadFlags struct {
	dir          string
	baseURL      string
	msis         []string
	noMSI        bool
	embed        bool
	embedSubdir  string
	cacheDir     string
	concurrency  int
	skipExisting bool
	metricsFile  string
}

func newDownloadCommand(root *rootOptions) *cobra.Command {
	f := &downloadFlags{}
	cmd := &cobra.Command{
		Use:   "download VERSION ARCH",
		Short: "Download and extract the dev MSIs for a Python release",
		Long: `Download dev.msi and dev_d.msi for VERSION and ARCH (win32, amd64 or arm64)
from python.org and extract them into <dir>/<x86|x64|arm64>. Pre-releases
such as 3.13.0rc2 are fetched from python.org's 3.13.0/<arch>rc2/ directory.

--dir defaults to ./python_dev when the current directory is, or contains,
a python_dev directory; otherwise it is required.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.resolve(cmd, root.cfg, args)
			if err != nil {
				return err
			}
			return runDownload(cmd, root, f, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.dir, "dir", "", "base directory to download into")
	flags.StringVar(&f.baseURL, "base-url", fetch.DefaultBaseURL, "python.org FTP tree or a mirror of it")
	flags.StringSliceVar(&f.msis, "msi", fetch.DefaultMSIs, "MSI packages to fetch, in extraction order")
	flags.BoolVar(&f.noMSI, "no-msi", false, "skip the MSI packages")
	flags.BoolVar(&f.embed, "embed", false, "also fetch and extract the embeddable zip distribution")
	flags.StringVar(&f.embedSubdir, "embed-subdir", "", "extract the embeddable zip into this subdirectory of the arch dir")
	flags.StringVar(&f.cacheDir, "cache-dir", "", "keep downloads here in python.org FTP layout (servable by 'pydevctl serve')")
	flags.IntVar(&f.concurrency, "concurrency", 1, "parallel downloads")
	flags.BoolVar(&f.skipExisting, "skip-existing", false, "reuse artifacts whose recorded sha256 still matches")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write prometheus metrics to this textfile when done")
	return cmd
}

// resolve merges flags over the config file and validates the arguments.
func (f *downloadFlags) resolve(cmd *cobra.Command, cfg appConfig, args []string) (download.Options, error) {
	version, err := devfiles.ParseVersion(args[0])
	if err != nil {
		return download.Options{}, err
	}
	arch, err := devfiles.ParseArch(args[1])
	if err != nil {
		return download.Options{}, err
	}

	changed := cmd.Flags().Changed
	pick := func(name, flagVal, cfgVal string) string {
		if changed(name) {
			return flagVal
		}
		return cfgVal
	}

	if !changed("base-url") {
		f.baseURL = cfg.BaseURL
	}
	if !changed("metrics-file") {
		f.metricsFile = cfg.MetricsFile
	}
	opts := download.Options{
		Version:      version,
		Arch:         arch,
		Root:         pick("dir", f.dir, cfg.Dir),
		MSIs:         cfg.MSIs,
		Embed:        cfg.Embed,
		EmbedSubdir:  pick("embed-subdir", f.embedSubdir, cfg.EmbedSubdir),
		CacheDir:     pick("cache-dir", f.cacheDir, cfg.CacheDir),
		SkipExisting: cfg.SkipExisting,
		Concurrency:  cfg.Concurrency,
	}
	if changed("msi") {
		opts.MSIs = normalizeNames(f.msis)
	}
	if f.noMSI {
		opts.MSIs = nil
	}
	if changed("embed") {
		opts.Embed = f.embed
	}
	if changed("skip-existing") {
		opts.SkipExisting = f.skipExisting
	}
	if changed("concurrency") {
		if f.concurrency < 1 {
			return download.Options{}, fmt.Errorf("--concurrency must be >= 1, got %d", f.concurrency)
		}
		opts.Concurrency = f.concurrency
	}

	if opts.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return download.Options{}, err
		}
		found, err := devfiles.FindDir(wd)
		if errors.Is(err, devfiles.ErrDirNotFound) {
			return download.Options{}, fmt.Errorf("--dir is required: no %s directory in %s", devfiles.DirName, wd)
		}
		if err != nil {
			return download.Options{}, err
		}
		opts.Root = found
	}
	return opts, nil
}

func runDownload(cmd *cobra.Command, root *rootOptions, f *downloadFlags, opts download.Options) error {
	client, err := fetch.NewClient(f.baseURL, nil)
	if err != nil {
		return err
	}
	extractor := msi.NewExtractor(root.commandRunner())
	extractor.GOOS = root.goos
	runner := &download.Runner{
		Client:    client,
		Extractor: extractor,
	}

	log.Info().
		Str("version", opts.Version.String()).
		Str("arch", string(opts.Arch)).
		Str("dir", opts.Root).
		Str("base_url", client.BaseURL).
		Msg("download starting")
	m, runErr := runner.Run(cmd.Context(), opts)

	if f.metricsFile != "" {
		if err := observability.WriteTextfile(f.metricsFile); err != nil {
			log.Warn().Err(err).Str("path", f.metricsFile).Msg("metrics textfile not written")
		}
	}
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d artifacts in %s\n",
		m.Version, m.Arch, len(m.Artifacts), devfiles.Layout{Root: opts.Root, Arch: opts.Arch}.ArchDir())
	return nil
}
