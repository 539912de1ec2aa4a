package resolver

import "errors"

var (
	// ErrNoPackageTable indicates a manifest without a [package] table, such as a virtual workspace root.
	ErrNoPackageTable = errors.New("manifest has no [package] table")
	// ErrNotAString indicates a requirement field holding something other than a version string.
	ErrNotAString = errors.New("requirement field is not a string")
)

// ErrNoRequirement indicates a manifest that declares neither rust-version nor the metadata fallback key.
var ErrNoRequirement = errors.New("manifest declares no toolchain requirement")
