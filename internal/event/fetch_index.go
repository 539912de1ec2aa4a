package event

// ReleaseSource is the index listing the available toolchain releases.
type ReleaseSource string

const (
	// ReleaseSourceRustChangelog is the RELEASES.md file of the Rust repository.
	ReleaseSourceRustChangelog ReleaseSource = "rust_changelog"
	// ReleaseSourceRustDist is the manifest listing of static.rust-lang.org.
	ReleaseSourceRustDist ReleaseSource = "rust_dist"
)

// ParseReleaseSource accepts both the snake_case and the kebab-case spelling.
func ParseReleaseSource(raw string) (ReleaseSource, bool) {
	switch raw {
	case "rust_changelog", "rust-changelog":
		return ReleaseSourceRustChangelog, true
	case "rust_dist", "rust-dist":
		return ReleaseSourceRustDist, true
	}
	return "", false
}

// FetchIndex is reported right before the release index is consulted.
type FetchIndex struct {
	Source ReleaseSource `json:"source"`
}

func NewFetchIndex(source ReleaseSource) FetchIndex {
	return FetchIndex{Source: source}
}

func (FetchIndex) Kind() string { return "fetch_index" }
func (FetchIndex) isMessage()   {}
