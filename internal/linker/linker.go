// Package linker points a python_dev arch directory at a local Python
// install, whose include/ and libs/ dirs stand in for the dev MSIs.
package linker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/danmuck/pydevctl/internal/devfiles"
	"github.com/danmuck/pydevctl/internal/tools"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupportedOS = errors.New("linker: only supported on Windows, where include/ and libs/ sit beside the interpreter")
	ErrProbeOutput   = errors.New("linker: unexpected interpreter probe output")
	ErrDestNotEmpty  = errors.New("linker: destination exists and is not empty")
)

const probeScript = "import sys; print(sys.executable); print(sys.maxsize > 2**32)"

// Interpreter is what the probe learned about a Python install.
type Interpreter struct {
	Executable string
	Is64Bit    bool
}

// InstallDir is the directory holding the interpreter executable.
func (i Interpreter) InstallDir() string {
	return filepath.Dir(i.Executable)
}

type Linker struct {
	Runner tools.CommandRunner
	// Python is the interpreter to probe; empty means "python" on PATH.
	Python string
	// GOOS overrides runtime.GOOS.
	GOOS string
}

func (l *Linker) goos() string {
	if l.GOOS != "" {
		return l.GOOS
	}
	return runtime.GOOS
}

func (l *Linker) runner() tools.CommandRunner {
	if l.Runner == nil {
		return tools.ExecRunner{}
	}
	return l.Runner
}

// CheckOS fails with ErrUnsupportedOS off Windows.
func (l *Linker) CheckOS() error {
	if l.goos() != "windows" {
		return ErrUnsupportedOS
	}
	return nil
}

// Probe asks the interpreter for its executable path and pointer width.
func (l *Linker) Probe(ctx context.Context) (Interpreter, error) {
	python := strings.TrimSpace(l.Python)
	if python == "" {
		python = "python"
	}
	out, err := tools.Exec(ctx, l.runner(), python, "-c", probeScript)
	if err != nil {
		return Interpreter{}, fmt.Errorf("probe %s: %w", python, err)
	}
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(string(out), "\r\n", "\n")), "\n")
	if len(lines) != 2 {
		return Interpreter{}, fmt.Errorf("%w: %q", ErrProbeOutput, string(out))
	}
	exe := strings.TrimSpace(lines[0])
	if exe == "" {
		return Interpreter{}, fmt.Errorf("%w: empty sys.executable", ErrProbeOutput)
	}
	var is64 bool
	switch strings.TrimSpace(lines[1]) {
	case "True":
		is64 = true
	case "False":
		is64 = false
	default:
		return Interpreter{}, fmt.Errorf("%w: %q", ErrProbeOutput, lines[1])
	}
	return Interpreter{Executable: exe, Is64Bit: is64}, nil
}

// Link replaces <devDir>/<x64|x86> with a directory symlink to the probed
// install and returns the link path.
func (l *Linker) Link(ctx context.Context, devDir string) (string, error) {
	if err := l.CheckOS(); err != nil {
		return "", err
	}
	interp, err := l.Probe(ctx)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(devDir, devfiles.HostArchDir(interp.Is64Bit))
	if err := LinkDir(interp.InstallDir(), dest); err != nil {
		return "", err
	}
	log.Info().
		Str("link", dest).
		Str("target", interp.InstallDir()).
		Bool("64bit", interp.Is64Bit).
		Msg("linked python install")
	return dest, nil
}

// LinkDir removes dest if it is a link or an empty directory, then links it
// to target.
func LinkDir(target string, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDestNotEmpty, dest, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Symlink(target, dest)
}
