// Package manifest records which artifacts were fetched into an arch dir.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the manifest file written beside the extracted dev files.
const FileName = "pydev.toml"

var ErrNoManifest = errors.New("manifest: not found")

type Artifact struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`
	URL    string `toml:"url"`
	SHA256 string `toml:"sha256"`
	Bytes  int64  `toml:"bytes"`
}

type Manifest struct {
	Version   string     `toml:"version"`
	Arch      string     `toml:"arch"`
	FetchedAt time.Time  `toml:"fetched_at"`
	Artifacts []Artifact `toml:"artifacts"`
}

// Lookup returns the artifact recorded under name.
func (m Manifest) Lookup(name string) (Artifact, bool) {
	for _, a := range m.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Upsert replaces the artifact with the same name or appends it.
func (m *Manifest) Upsert(a Artifact) {
	for i := range m.Artifacts {
		if m.Artifacts[i].Name == a.Name {
			m.Artifacts[i] = a
			return
		}
	}
	m.Artifacts = append(m.Artifacts, a)
}

func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

func Load(dir string) (Manifest, error) {
	data, err := os.ReadFile(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest load failed (%s): %w", dir, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest parse failed (%s): %w", dir, err)
	}
	return m, nil
}

func Save(dir string, m Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest encode failed: %w", err)
	}
	tmp := Path(dir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, Path(dir))
}
