package devfiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the directory the dev files live under.
const DirName = "python_dev"

var (
	ErrDirNotFound = errors.New("devfiles: python_dev directory not found")
	ErrUnknownArch = errors.New("devfiles: unknown architecture")
	ErrInvalidRoot = errors.New("devfiles: invalid root")
)

// Arch is an architecture name as used in python.org download paths.
type Arch string

const (
	ArchWin32 Arch = "win32"
	ArchAMD64 Arch = "amd64"
	ArchARM64 Arch = "arm64"
)

var archDirs = map[Arch]string{
	ArchWin32: "x86",
	ArchAMD64: "x64",
	ArchARM64: "arm64",
}

// Arches lists the supported architectures in display order.
func Arches() []Arch {
	return []Arch{ArchWin32, ArchAMD64, ArchARM64}
}

func ParseArch(raw string) (Arch, error) {
	a := Arch(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := archDirs[a]; !ok {
		return "", fmt.Errorf("%w: %q (want one of win32, amd64, arm64)", ErrUnknownArch, raw)
	}
	return a, nil
}

// DirName is the local directory the arch's files are extracted into.
func (a Arch) DirName() string {
	return archDirs[a]
}

// FTPDir is the python.org directory holding the arch's MSIs for v, e.g.
// "amd64" for 3.12.4 and "amd64rc2" for 3.13.0rc2.
func (a Arch) FTPDir(v Version) string {
	return string(a) + v.ReleaseLevel()
}

// ParseFTPDir splits an arch directory name from the python.org tree into
// the arch and its pre-release suffix.
func ParseFTPDir(name string) (Arch, string, error) {
	for _, a := range Arches() {
		level, ok := strings.CutPrefix(name, string(a))
		if !ok {
			continue
		}
		if level == "" || releaseLevelRE.MatchString(level) {
			return a, level, nil
		}
	}
	return "", "", fmt.Errorf("%w: %q is not an arch directory", ErrUnknownArch, name)
}

// HostArchDir names the arch directory for an interpreter of the given width.
func HostArchDir(is64 bool) string {
	if is64 {
		return archDirs[ArchAMD64]
	}
	return archDirs[ArchWin32]
}

// FindDir returns cwd when it is itself python_dev, else its first child
// directory named python_dev.
func FindDir(cwd string) (string, error) {
	if filepath.Base(filepath.Clean(cwd)) == DirName {
		return cwd, nil
	}
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.Name() == DirName && isDir(filepath.Join(cwd, entry.Name())) {
			return filepath.Join(cwd, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%w under %s", ErrDirNotFound, cwd)
}

// Layout resolves paths for one architecture under a python_dev root.
type Layout struct {
	Root string
	Arch Arch
}

func (l Layout) ArchDir() string {
	return filepath.Join(l.Root, l.Arch.DirName())
}

// EnsureArchDir creates the arch directory. The root itself must already exist.
func (l Layout) EnsureArchDir() (string, error) {
	if strings.TrimSpace(l.Root) == "" {
		return "", fmt.Errorf("%w: empty root", ErrInvalidRoot)
	}
	if !isDir(l.Root) {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, l.Root)
	}
	dir := l.ArchDir()
	if err := os.Mkdir(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return "", err
	}
	return dir, nil
}

// ArchDirs returns the arch directories present under root, keyed by arch.
func ArchDirs(root string) map[Arch]string {
	out := make(map[Arch]string)
	for _, a := range Arches() {
		dir := filepath.Join(root, a.DirName())
		if isDir(dir) {
			out[a] = dir
		}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
