package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/pydevctl/internal/observability"
	"github.com/danmuck/pydevctl/internal/pause"
	"github.com/danmuck/pydevctl/internal/tools"
	"github.com/spf13/cobra"
)

const defaultConfigName = "pydevctl.toml"

type rootOptions struct {
	configPath string
	cfg        appConfig

	// runner, goos and pause override the process defaults in tests.
	runner tools.CommandRunner
	goos   string
	pause  *pause.Prompter
}

func (o *rootOptions) commandRunner() tools.CommandRunner {
	if o.runner == nil {
		return tools.ExecRunner{}
	}
	return o.runner
}

func (o *rootOptions) prompter() *pause.Prompter {
	if o.pause == nil {
		return pause.Default()
	}
	return o.pause
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&rootOptions{})
}

func newRootCommandWith(opts *rootOptions) *cobra.Command {
	opts.cfg = defaultAppConfig()

	cmd := &cobra.Command{
		Use:           "pydevctl",
		Short:         "Fetch Python's Windows dev files into a python_dev directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.InitLogger("pydevctl")
			return opts.loadConfig(cmd.Flags().Changed("config"))
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigName, "TOML config file (ignored when the default is absent)")

	cmd.AddCommand(
		newDownloadCommand(opts),
		newSymlinkCommand(opts),
		newStatusCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// loadConfig overlays the config file on the defaults. A missing file is
// only an error when the path was given explicitly.
func (o *rootOptions) loadConfig(explicit bool) error {
	path := strings.TrimSpace(o.configPath)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil && !explicit {
		return nil
	}
	cfg, err := loadAppConfig(path)
	if err != nil {
		return err
	}
	// Relative paths in the file are relative to the file.
	base := filepath.Dir(path)
	cfg.Dir = resolveRelative(base, cfg.Dir)
	cfg.CacheDir = resolveRelative(base, cfg.CacheDir)
	cfg.MetricsFile = resolveRelative(base, cfg.MetricsFile)
	cfg.Mirror.Root = resolveRelative(base, cfg.Mirror.Root)
	o.cfg = cfg
	return nil
}

func resolveRelative(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
