// Package embedzip unpacks python.org embeddable distributions.
package embedzip

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/rs/zerolog/log"
)

var ErrUnsafeEntry = errors.New("embedzip: unsafe archive entry")

// Extract unpacks zipPath into dest and returns the extracted file paths,
// relative to dest, in archive order. Entries are resolved inside dest.
func Extract(zipPath string, dest string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) && r != nil {
		// Entries are contained individually below.
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}

	var files []string
	for _, f := range r.File {
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
			return nil, fmt.Errorf("%w: %q", ErrUnsafeEntry, f.Name)
		}
		target, err := securejoin.SecureJoin(dest, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnsafeEntry, f.Name, err)
		}
		mode := f.Mode()
		if mode&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("%w: symlink %q", ErrUnsafeEntry, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		rel, err := filepath.Rel(dest, target)
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.ToSlash(rel))
	}
	log.Info().Str("zip", zipPath).Str("dest", dest).Int("files", len(files)).Msg("embed zip extracted")
	return files, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
