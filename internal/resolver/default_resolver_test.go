package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bayleafwalker/msrv/internal/graph"
	"github.com/bayleafwalker/msrv/internal/semver"
)

func ptr(s string) *string { return &s }

func pkg(name string, rustVersion *string, metadata map[string]any, manifestPath string) graph.Package {
	return graph.Package{
		ID:           graph.PackageID(name + " 0.1.0"),
		Name:         name,
		Version:      "0.1.0",
		RustVersion:  rustVersion,
		Metadata:     metadata,
		ManifestPath: manifestPath,
	}
}

func failingRead(t *testing.T) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		t.Fatalf("manifest %q must not be read", path)
		return nil, nil
	}
}

func TestDefaultResolver_RustVersionWins(t *testing.T) {
	r := NewDefault(WithReadFile(failingRead(t)))

	res := r.Resolve(context.Background(), pkg("a", ptr("1.56"), map[string]any{"msrv": "1.70.0"}, "/a/Cargo.toml"))
	if res.Source != SourceRustVersion {
		t.Fatalf("expected source %q, got %q", SourceRustVersion, res.Source)
	}
	if res.Requirement.String() != "1.56.0" {
		t.Fatalf("expected 1.56.0, got %q", res.Requirement)
	}
}

func TestDefaultResolver_FirstComparatorDefaultsToZero(t *testing.T) {
	r := NewDefault(WithManifestScan(false))

	res := r.Resolve(context.Background(), pkg("a", ptr(">=1, <2"), nil, ""))
	if res.Requirement.String() != "1.0.0" {
		t.Fatalf("expected 1.0.0, got %q", res.Requirement)
	}
}

func TestDefaultResolver_MetadataFallback(t *testing.T) {
	r := NewDefault(WithReadFile(failingRead(t)))

	res := r.Resolve(context.Background(), pkg("a", nil, map[string]any{"msrv": "1.40"}, "/a/Cargo.toml"))
	if res.Source != SourceMetadataFallback {
		t.Fatalf("expected source %q, got %q", SourceMetadataFallback, res.Source)
	}
	if res.Requirement.String() != "1.40.0" {
		t.Fatalf("expected 1.40.0, got %q", res.Requirement)
	}
}

func TestDefaultResolver_CustomMetadataKey(t *testing.T) {
	r := NewDefault(WithMetadataKey("min-rust"), WithManifestScan(false))

	res := r.Resolve(context.Background(), pkg("a", nil, map[string]any{"msrv": "1.40", "min-rust": "1.45.2"}, ""))
	if res.Requirement.String() != "1.45.2" {
		t.Fatalf("expected 1.45.2, got %q", res.Requirement)
	}
}

func TestDefaultResolver_UnparseableRustVersionFallsThrough(t *testing.T) {
	r := NewDefault(WithManifestScan(false))

	res := r.Resolve(context.Background(), pkg("a", ptr("not a version"), map[string]any{"msrv": "1.50"}, ""))
	if res.Source != SourceMetadataFallback || res.Requirement.String() != "1.50.0" {
		t.Fatalf("expected metadata fallback 1.50.0, got %+v", res)
	}
}

func TestDefaultResolver_ManifestScan(t *testing.T) {
	dir := t.TempDir()

	withRustVersion := filepath.Join(dir, "a.toml")
	writeFile(t, withRustVersion, "[package]\nname = \"a\"\nrust-version = \"1.62\"\n")

	withMetadata := filepath.Join(dir, "b.toml")
	writeFile(t, withMetadata, "[package]\nname = \"b\"\n\n[package.metadata]\nmsrv = \"1.36.0\"\n")

	r := NewDefault()

	res := r.Resolve(context.Background(), pkg("a", nil, nil, withRustVersion))
	if res.Source != SourceManifestScan || res.Requirement.String() != "1.62.0" {
		t.Fatalf("expected manifest scan 1.62.0, got %+v", res)
	}

	res = r.Resolve(context.Background(), pkg("b", nil, nil, withMetadata))
	if res.Source != SourceManifestScan || res.Requirement.String() != "1.36.0" {
		t.Fatalf("expected manifest scan 1.36.0, got %+v", res)
	}
}

func TestDefaultResolver_ScanFailuresAreAbsence(t *testing.T) {
	dir := t.TempDir()

	noRequirement := filepath.Join(dir, "none.toml")
	writeFile(t, noRequirement, "[package]\nname = \"none\"\n")

	broken := filepath.Join(dir, "broken.toml")
	writeFile(t, broken, "[package\n")

	virtual := filepath.Join(dir, "virtual.toml")
	writeFile(t, virtual, "[workspace]\nmembers = [\"a\"]\n")

	inherited := filepath.Join(dir, "inherited.toml")
	writeFile(t, inherited, "[package]\nname = \"i\"\nrust-version.workspace = true\n")

	r := NewDefault()
	for _, path := range []string{noRequirement, broken, virtual, inherited, filepath.Join(dir, "missing.toml")} {
		res := r.Resolve(context.Background(), pkg("x", nil, nil, path))
		if res.Requirement.IsKnown() || res.Source != SourceNone {
			t.Fatalf("%s: expected unknown, got %+v", path, res)
		}
	}
}

func TestDefaultResolver_ScanDisabled(t *testing.T) {
	r := NewDefault(WithManifestScan(false), WithReadFile(failingRead(t)))

	res := r.Resolve(context.Background(), pkg("a", nil, nil, "/a/Cargo.toml"))
	if res.Requirement.IsKnown() {
		t.Fatalf("expected unknown, got %q", res.Requirement)
	}
}

func TestDefaultResolver_Deterministic(t *testing.T) {
	r := NewDefault(WithManifestScan(false))
	p := pkg("a", nil, map[string]any{"msrv": "1.40"}, "")

	first := r.Resolve(context.Background(), p)
	second := r.Resolve(context.Background(), p)
	if !first.Requirement.Equal(second.Requirement) || first.Source != second.Source {
		t.Fatalf("expected identical resolutions, got %+v and %+v", first, second)
	}
}

func TestVersionField(t *testing.T) {
	_, present, err := versionField(map[string]any{"msrv": 160}, "msrv")
	if !present || !errors.Is(err, ErrNotAString) {
		t.Fatalf("expected ErrNotAString, got present=%v err=%v", present, err)
	}

	_, present, _ = versionField(nil, "msrv")
	if present {
		t.Fatalf("expected key to be absent from a nil table")
	}
}

func TestRequirement_Ordering(t *testing.T) {
	low := Known(semver.MustParseVersion("1.40.0"))
	high := Known(semver.MustParseVersion("1.56.0"))
	unknown := Unknown()

	if low.Compare(high) != -1 || high.Compare(low) != 1 {
		t.Fatalf("expected 1.40.0 < 1.56.0")
	}
	if high.Compare(unknown) != -1 || unknown.Compare(high) != 1 {
		t.Fatalf("expected unknown to sort after known versions")
	}
	if unknown.Compare(Unknown()) != 0 {
		t.Fatalf("expected unknown == unknown")
	}
	if unknown.String() != "unknown" {
		t.Fatalf("expected unknown label, got %q", unknown)
	}
	if Known(semver.Version{}).IsKnown() {
		t.Fatalf("expected a zero version to stay unknown")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
