package semver

import (
	"fmt"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3. The zero
// value is a valid "no version" that sorts before every parsed version.
type Version struct {
	v *mm.Version
}

// ParseVersion parses raw leniently: "1.56" is read as 1.56.0 and a leading
// "v" is accepted.
func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// NewVersion builds a release version from its numeric components.
func NewVersion(major, minor, patch uint64) Version {
	return Version{v: mm.New(major, minor, patch, "", "")}
}

// IsZero reports whether v holds no version.
func (v Version) IsZero() bool {
	return v.v == nil
}

func (v Version) Major() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Major()
}

func (v Version) Minor() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Minor()
}

func (v Version) Patch() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Patch()
}

// String returns the canonical "major.minor.patch[-pre][+meta]" form, or ""
// for the zero value.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Equal reports whether a and b have the same precedence.
func (v Version) Equal(o Version) bool {
	return Compare(v, o) == 0
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// Max returns the highest version in candidates.
//
// If multiple versions are equal, the first encountered wins.
func Max(candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if candidate.IsZero() {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
