// Package metadata builds a dependency graph from the output of
// `cargo metadata --format-version 1`.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bayleafwalker/msrv/internal/graph"
)

// ErrNoRoot is returned when neither resolve.root nor a workspace member
// identifies the package to report on.
var ErrNoRoot = errors.New("metadata: no root package")

type document struct {
	Packages         []cargoPackage `json:"packages"`
	WorkspaceMembers []string       `json:"workspace_members"`
	Resolve          *resolve       `json:"resolve"`
}

type cargoPackage struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	RustVersion  *string        `json:"rust_version"`
	Metadata     map[string]any `json:"metadata"`
	ManifestPath string         `json:"manifest_path"`
}

type resolve struct {
	Root  *string `json:"root"`
	Nodes []node  `json:"nodes"`
}

type node struct {
	ID           string   `json:"id"`
	Dependencies []string `json:"dependencies"`
}

// Decode reads a cargo metadata document and returns its dependency graph.
func Decode(r io.Reader) (*graph.DependencyGraph, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("metadata: decode document: %w", err)
	}
	if doc.Resolve == nil {
		return nil, fmt.Errorf("metadata: document has no resolve section (was --no-deps used?)")
	}

	g := graph.New()
	for _, p := range doc.Packages {
		if _, err := g.AddPackage(graph.Package{
			ID:           graph.PackageID(p.ID),
			Name:         p.Name,
			Version:      p.Version,
			RustVersion:  p.RustVersion,
			Metadata:     p.Metadata,
			ManifestPath: p.ManifestPath,
		}); err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
	}

	for _, n := range doc.Resolve.Nodes {
		for _, dep := range n.Dependencies {
			if err := g.AddDependency(graph.PackageID(n.ID), graph.PackageID(dep)); err != nil {
				return nil, fmt.Errorf("metadata: %w", err)
			}
		}
	}

	root := ""
	switch {
	case doc.Resolve.Root != nil:
		root = *doc.Resolve.Root
	case len(doc.WorkspaceMembers) > 0:
		root = doc.WorkspaceMembers[0]
	default:
		return nil, ErrNoRoot
	}
	if err := g.SetRoot(graph.PackageID(root)); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	return g, nil
}

// LoadFile decodes a metadata document saved to path.
func LoadFile(path string) (*graph.DependencyGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: open %q: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Load runs cargo metadata for the manifest at manifestPath.
func Load(ctx context.Context, cargo, manifestPath string) (*graph.DependencyGraph, error) {
	logger := log.FromContext(ctx)

	if cargo == "" {
		cargo = "cargo"
	}
	args := []string{"metadata", "--format-version", "1"}
	if manifestPath != "" {
		args = append(args, "--manifest-path", manifestPath)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cargo, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.V(1).Info("running cargo metadata", "cargo", cargo, "manifestPath", manifestPath)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("metadata: run %s %v: %w: %s", cargo, args, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return Decode(&stdout)
}
