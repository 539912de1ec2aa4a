package resolver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bayleafwalker/msrv/internal/graph"
	"github.com/bayleafwalker/msrv/internal/semver"
)

// DefaultMetadataKey is the package.metadata key read when a package does not
// declare rust-version.
const DefaultMetadataKey = "msrv"

// DefaultResolver resolves a requirement through a strict precedence chain:
// the declared rust-version, then the metadata fallback key, then a scan of
// the manifest file. The first step that yields a version wins.
type DefaultResolver struct {
	metadataKey  string
	scanManifest bool
	readFile     func(string) ([]byte, error)
}

type Option func(*DefaultResolver)

// WithMetadataKey overrides the package.metadata key of the fallback step.
func WithMetadataKey(key string) Option {
	return func(r *DefaultResolver) {
		if strings.TrimSpace(key) != "" {
			r.metadataKey = key
		}
	}
}

// WithManifestScan enables or disables the last-resort manifest scan.
func WithManifestScan(enabled bool) Option {
	return func(r *DefaultResolver) {
		r.scanManifest = enabled
	}
}

// WithReadFile replaces the function used to read manifests.
func WithReadFile(readFile func(string) ([]byte, error)) Option {
	return func(r *DefaultResolver) {
		r.readFile = readFile
	}
}

func NewDefault(opts ...Option) *DefaultResolver {
	r := &DefaultResolver{
		metadataKey:  DefaultMetadataKey,
		scanManifest: true,
		readFile:     os.ReadFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *DefaultResolver) Resolve(ctx context.Context, pkg graph.Package) Resolution {
	logger := log.FromContext(ctx).WithValues("package", pkg.Name, "version", pkg.Version)

	if pkg.RustVersion != nil {
		c, err := semver.FirstComparator(*pkg.RustVersion)
		if err == nil {
			return Resolution{Requirement: Known(c.Version()), Source: SourceRustVersion}
		}
		logger.V(1).Info("ignoring unparseable rust-version", "rustVersion", *pkg.RustVersion, "error", err.Error())
	}

	v, present, err := versionField(pkg.Metadata, r.metadataKey)
	switch {
	case present && err == nil:
		return Resolution{Requirement: Known(v), Source: SourceMetadataFallback}
	case present:
		logger.V(1).Info("ignoring unparseable metadata fallback", "key", r.metadataKey, "error", err.Error())
	}

	if r.scanManifest && pkg.ManifestPath != "" {
		v, err := r.scan(pkg.ManifestPath)
		if err == nil {
			return Resolution{Requirement: Known(v), Source: SourceManifestScan}
		}
		logger.V(1).Info("manifest scan found no requirement", "manifestPath", pkg.ManifestPath, "error", err.Error())
	}

	return Resolution{Requirement: Unknown(), Source: SourceNone}
}

type manifestDocument struct {
	Package *struct {
		RustVersion any            `toml:"rust-version"`
		Metadata    map[string]any `toml:"metadata"`
	} `toml:"package"`
}

// scan reads the raw manifest for package.rust-version and then
// package.metadata.<key>, for manifests whose values did not make it into the
// graph (older Cargo releases drop unknown keys).
func (r *DefaultResolver) scan(path string) (semver.Version, error) {
	data, err := r.readFile(path)
	if err != nil {
		return semver.Version{}, fmt.Errorf("read manifest %q: %w", path, err)
	}

	var doc manifestDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return semver.Version{}, fmt.Errorf("decode manifest %q: %w", path, err)
	}
	if doc.Package == nil {
		return semver.Version{}, fmt.Errorf("manifest %q: %w", path, ErrNoPackageTable)
	}

	if raw, ok := doc.Package.RustVersion.(string); ok {
		if c, err := semver.FirstComparator(raw); err == nil {
			return c.Version(), nil
		}
	}
	v, present, err := versionField(doc.Package.Metadata, r.metadataKey)
	if !present {
		return semver.Version{}, fmt.Errorf("manifest %q: %w", path, ErrNoRequirement)
	}
	if err != nil {
		return semver.Version{}, fmt.Errorf("manifest %q: %w", path, err)
	}
	return v, nil
}

// versionField parses table[key] as a version. present is false when the key
// is not set at all.
func versionField(table map[string]any, key string) (v semver.Version, present bool, err error) {
	raw, ok := table[key]
	if !ok {
		return semver.Version{}, false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return semver.Version{}, true, fmt.Errorf("key %q: %w", key, ErrNotAString)
	}
	v, err = semver.ParseVersion(strings.TrimSpace(s))
	return v, true, err
}
