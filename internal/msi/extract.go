// Package msi unpacks MSI packages with the host's extraction tool.
package msi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/danmuck/pydevctl/internal/observability"
	"github.com/danmuck/pydevctl/internal/tools"
	"github.com/hashicorp/go-multierror"
	cp "github.com/otiai10/copy"
	"github.com/rs/zerolog/log"
)

const (
	ToolMsiexec    = "msiexec"
	ToolMsiextract = "msiextract"

	// exitOpenFailed is msiexec's ERROR_INSTALL_OPEN_FAILED, which an
	// administrative install reports when TARGETDIR is not writable.
	exitOpenFailed int32 = 2203
)

var (
	ErrMSIPermission = errors.New("msi: cannot write to the output dir (do you have permission to write to it?)")
	ErrToolMissing   = errors.New("msi: extraction tool not found")
)

type Extractor struct {
	Runner tools.CommandRunner
	// GOOS selects the extraction tool; empty means runtime.GOOS.
	GOOS string
	// TempDir is where msiexec staging dirs are created; empty means os.TempDir.
	TempDir string
}

func NewExtractor(runner tools.CommandRunner) *Extractor {
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Extractor{Runner: runner}
}

func (e *Extractor) goos() string {
	if e.GOOS != "" {
		return e.GOOS
	}
	return runtime.GOOS
}

// Tool names the binary Extract will invoke.
func (e *Extractor) Tool() string {
	if e.goos() == "windows" {
		return ToolMsiexec
	}
	return ToolMsiextract
}

// ExtractAll extracts msis into dest in order, stopping at the first failure.
func (e *Extractor) ExtractAll(ctx context.Context, msis []string, dest string) error {
	for _, msi := range msis {
		if err := e.Extract(ctx, msi, dest); err != nil {
			return fmt.Errorf("extract %s: %w", filepath.Base(msi), err)
		}
	}
	return nil
}

// Extract unpacks one MSI into dest, merging with what is already there.
func (e *Extractor) Extract(ctx context.Context, msi string, dest string) error {
	msiAbs, err := filepath.Abs(msi)
	if err != nil {
		return err
	}
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	start := time.Now()
	tool := e.Tool()
	if tool == ToolMsiexec {
		err = e.extractMsiexec(ctx, msiAbs, destAbs)
	} else {
		err = e.run(ctx, ToolMsiextract, "-C", destAbs, msiAbs)
	}
	observability.RecordExtract(tool, time.Since(start), err == nil)
	if err != nil {
		return err
	}
	log.Info().Str("msi", msiAbs).Str("dest", destAbs).Str("tool", tool).Msg("extracted")
	return nil
}

// msiexec refuses to extract into the directory holding the MSI, so the
// administrative install goes to a staging dir that is merged into dest.
func (e *Extractor) extractMsiexec(ctx context.Context, msi string, dest string) (err error) {
	staging, err := os.MkdirTemp(e.TempDir, "pydev-msi-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			err = multierror.Append(err, fmt.Errorf("remove staging dir: %w", rmErr)).ErrorOrNil()
		}
	}()

	err = e.run(ctx, ToolMsiexec, "TARGETDIR="+staging, "/a", msi, "/qn")
	var cmdErr *tools.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode == exitOpenFailed {
		return fmt.Errorf("%w: %v", ErrMSIPermission, err)
	}
	if err != nil {
		return err
	}

	// An administrative install also drops a copy of the package itself.
	if err := removeMSIs(staging); err != nil {
		return err
	}
	return cp.Copy(staging, dest)
}

func (e *Extractor) run(ctx context.Context, name string, args ...string) error {
	log.Debug().Str("cmd", name).Str("args", strings.Join(args, " ")).Msg("msi.exec")
	_, err := tools.Exec(ctx, e.Runner, name, args...)
	var cmdErr *tools.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode == tools.ExitNotFound {
		return fmt.Errorf("%w: %s: %v", ErrToolMissing, name, err)
	}
	return err
}

func removeMSIs(root string) error {
	var result *multierror.Error
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".msi") {
			return nil
		}
		if err := os.Remove(path); err != nil {
			result = multierror.Append(result, err)
		}
		return nil
	})
	if walkErr != nil {
		result = multierror.Append(result, walkErr)
	}
	return result.ErrorOrNil()
}
