package main

import (
	"github.com/danmuck/pydevctl/internal/mirror"
	"github.com/spf13/cobra"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var (
		addr string
		dir  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a download cache as a python.org mirror",
		Long: `Serve a cache populated by 'pydevctl download --cache-dir' under /ftp/python/,
so other machines can use --base-url http://<host>/ftp/python/.
Also exposes /health, /versions and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg.Mirror
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("root") {
				cfg.Root = dir
			} else if cfg.Root == "" {
				cfg.Root = root.cfg.CacheDir
			}
			srv, err := mirror.New(mirror.Config{
				ID:              cfg.ID,
				Addr:            cfg.Addr,
				Root:            cfg.Root,
				CorsOrigins:     cfg.CorsOrigins,
				ListDirectories: cfg.ListDirectories,
			})
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&dir, "root", "", "cache directory to serve (default: cache_dir from config)")
	return cmd
}
