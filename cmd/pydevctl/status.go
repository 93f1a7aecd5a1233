package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/danmuck/pydevctl/internal/devfiles"
	"github.com/danmuck/pydevctl/internal/manifest"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatusCommand(root *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what has been fetched into each arch dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("dir") {
				dir = root.cfg.Dir
			}
			devDir, err := resolveDevDir(dir)
			if err != nil {
				return err
			}
			return printStatus(cmd, devDir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "python_dev directory")
	return cmd
}

func printStatus(cmd *cobra.Command, devDir string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ARCH\tDIR\tVERSION\tARTIFACTS\tSIZE\tFETCHED")
	dirs := devfiles.ArchDirs(devDir)
	for _, arch := range devfiles.Arches() {
		archDir, ok := dirs[arch]
		if !ok {
			continue
		}
		m, err := manifest.Load(archDir)
		switch {
		case errors.Is(err, manifest.ErrNoManifest):
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\n", arch, arch.DirName())
			continue
		case err != nil:
			return err
		}
		var total int64
		for _, a := range m.Artifacts {
			total += a.Bytes
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			arch, arch.DirName(), m.Version, len(m.Artifacts),
			humanize.Bytes(uint64(total)), humanize.Time(m.FetchedAt))
	}
	return w.Flush()
}
