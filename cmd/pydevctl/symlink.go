package main

import (
	"fmt"
	"os"

	"github.com/danmuck/pydevctl/internal/devfiles"
	"github.com/danmuck/pydevctl/internal/linker"
	"github.com/spf13/cobra"
)

func newSymlinkCommand(root *rootOptions) *cobra.Command {
	var (
		python     string
		dir        string
		forcePause bool
	)
	cmd := &cobra.Command{
		Use:   "symlink",
		Short: "Link python_dev/<x64|x86> to a local Python install (Windows)",
		Long: `Point python_dev/<x64|x86> at the install directory of a local Python, whose
include/ and libs/ directories then stand in for the dev MSIs. The arch dir is
picked from the interpreter's pointer width. An existing link or empty
directory is replaced.

When not started from a terminal (e.g. double-clicked), waits for Enter
before exiting so the result stays readable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("python") {
				python = root.cfg.Python
			}
			if !cmd.Flags().Changed("dir") {
				dir = root.cfg.Dir
			}
			return root.prompter().Run(forcePause, func() error {
				l := &linker.Linker{Runner: root.commandRunner(), Python: python, GOOS: root.goos}
				if err := l.CheckOS(); err != nil {
					return err
				}
				devDir, err := resolveDevDir(dir)
				if err != nil {
					return err
				}
				link, err := l.Link(cmd.Context(), devDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "linked %s\n", link)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&python, "python", "", "interpreter to link (default: python on PATH)")
	cmd.Flags().StringVar(&dir, "dir", "", "python_dev directory (default: found from the working directory)")
	cmd.Flags().BoolVar(&forcePause, "pause", false, "always wait for Enter before exiting")
	return cmd
}

func resolveDevDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	found, err := devfiles.FindDir(wd)
	if err != nil {
		return "", fmt.Errorf("unable to find the %q directory to make symlinks in: %w", devfiles.DirName, err)
	}
	return found, nil
}
