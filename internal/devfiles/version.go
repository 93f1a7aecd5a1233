package devfiles

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var ErrInvalidVersion = errors.New("devfiles: invalid python version")

// python.org spells pre-releases without a separator: 3.13.0rc2, 3.12.0a1.
var (
	pythonVersionRE = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:(a|b|rc)(\d+))?$`)
	releaseLevelRE  = regexp.MustCompile(`^(?:a|b|rc)\d+$`)
)

// Dev MSIs and embeddable zips were first published for 3.5.0.
var minVersion = semver.MustParse("3.5.0-0")

// Version is a python.org release version.
type Version struct {
	raw     string
	release string
	level   string
	semver  *semver.Version
}

func ParseVersion(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	m := pythonVersionRE.FindStringSubmatch(raw)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q (want MAJOR.MINOR.PATCH, e.g. 3.12.4 or 3.13.0rc2)", ErrInvalidVersion, raw)
	}
	release := fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3])
	normalized := release
	if m[4] != "" {
		normalized += "-" + m[4] + "." + m[5]
	}
	v, err := semver.StrictNewVersion(normalized)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, raw, err)
	}
	if v.LessThan(minVersion) {
		return Version{}, fmt.Errorf("%w: %q predates dev artifacts (3.5.0)", ErrInvalidVersion, raw)
	}
	return Version{raw: raw, release: release, level: m[4] + m[5], semver: v}, nil
}

// String is the python.org spelling used in download URLs.
func (v Version) String() string {
	return v.raw
}

// Release is MAJOR.MINOR.PATCH. python.org files every pre-release of a
// version under this directory.
func (v Version) Release() string {
	return v.release
}

// ReleaseLevel is the python.org pre-release suffix ("rc2", "a1"), empty for
// final releases.
func (v Version) ReleaseLevel() string {
	return v.level
}

func (v Version) Prerelease() bool {
	return v.semver != nil && v.semver.Prerelease() != ""
}

// MinorTag is the "313" style tag used in DLL and zip names.
func (v Version) MinorTag() string {
	if v.semver == nil {
		return ""
	}
	return fmt.Sprintf("%d%d", v.semver.Major(), v.semver.Minor())
}
