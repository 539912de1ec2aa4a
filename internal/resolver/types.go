package resolver

import (
	"github.com/bayleafwalker/msrv/internal/semver"
)

// UnknownLabel is how an unresolved requirement is displayed.
const UnknownLabel = "unknown"

// Requirement is an optional minimum toolchain version. Absence is a valid
// outcome rather than an error.
type Requirement struct {
	version semver.Version
	known   bool
}

func Known(v semver.Version) Requirement {
	return Requirement{version: v, known: !v.IsZero()}
}

func Unknown() Requirement {
	return Requirement{}
}

// Get returns the version and whether it is known.
func (r Requirement) Get() (semver.Version, bool) {
	return r.version, r.known
}

func (r Requirement) IsKnown() bool {
	return r.known
}

// String returns the canonical version, or "unknown".
func (r Requirement) String() string {
	if !r.known {
		return UnknownLabel
	}
	return r.version.String()
}

// Compare orders requirements ascending by version. Unknown sorts after every
// known version.
func (r Requirement) Compare(o Requirement) int {
	switch {
	case !r.known && !o.known:
		return 0
	case !r.known:
		return 1
	case !o.known:
		return -1
	}
	return semver.Compare(r.version, o.version)
}

func (r Requirement) Equal(o Requirement) bool {
	return r.known == o.known && r.String() == o.String()
}

// Source records which step of the precedence chain produced a Requirement.
type Source string

const (
	// SourceRustVersion is the package.rust-version manifest field.
	SourceRustVersion Source = "rust_version"
	// SourceMetadataFallback is the package.metadata.msrv key used by crates
	// that predate the rust-version field.
	SourceMetadataFallback Source = "metadata_fallback"
	// SourceManifestScan is a requirement found by reading the manifest file.
	SourceManifestScan Source = "manifest_scan"
	SourceNone         Source = "none"
)

// Resolution is the outcome of resolving one package.
type Resolution struct {
	Requirement Requirement
	Source      Source
}
