// Package manifest edits the version requirement recorded in a Cargo.toml.
//
// Edits are made on the text so that formatting and comments outside the
// touched line survive; the result is decoded with a TOML parser before it
// is written back.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bayleafwalker/msrv/internal/event"
	"github.com/bayleafwalker/msrv/internal/semver"
)

// ToolchainFileName is the only toolchain file layout recognised.
const ToolchainFileName = "rust-toolchain.toml"

var (
	ErrNoPackageSection = errors.New("manifest has no [package] table")
	ErrInvalidManifest  = errors.New("invalid manifest")
)

type target struct {
	header string
	key    string
}

func targetFor(kind event.MsrvKind) (target, error) {
	switch kind {
	case event.MsrvKindRustVersion:
		return target{header: "[package]", key: "rust-version"}, nil
	case event.MsrvKindMetadataFallback:
		return target{header: "[package.metadata]", key: "msrv"}, nil
	default:
		return target{}, fmt.Errorf("manifest: unknown msrv kind %q", kind)
	}
}

// SetRustVersion records version in the manifest at path, as rust-version
// under [package] or as msrv under [package.metadata] depending on kind.
func SetRustVersion(path string, version semver.BareVersion, kind event.MsrvKind) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}

	updated, err := Edit(string(raw), version, kind)
	if err != nil {
		return fmt.Errorf("manifest: %q: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// Edit returns contents with the requirement set to version.
func Edit(contents string, version semver.BareVersion, kind event.MsrvKind) (string, error) {
	t, err := targetFor(kind)
	if err != nil {
		return "", err
	}

	var before manifestDocument
	if _, err := toml.Decode(contents, &before); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if before.Package == nil {
		return "", ErrNoPackageSection
	}

	newline := "\n"
	if strings.Contains(contents, "\r\n") {
		newline = "\r\n"
	}
	lines := strings.Split(strings.ReplaceAll(contents, "\r\n", "\n"), "\n")
	value := fmt.Sprintf("%s = %q", t.key, version.String())

	lines = setKey(lines, t, value)
	out := strings.Join(lines, "\n")
	if newline != "\n" {
		out = strings.ReplaceAll(out, "\n", newline)
	}

	if err := verify(out, version, kind); err != nil {
		return "", err
	}
	return out, nil
}

func setKey(lines []string, t target, value string) []string {
	start := -1
	for i, line := range lines {
		if stripComment(line) == t.header {
			start = i
			break
		}
	}

	if start < 0 {
		// Only reachable for [package.metadata]; [package] was checked above.
		for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
			lines = lines[:len(lines)-1]
		}
		return append(lines, "", t.header, value, "")
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(stripComment(lines[i]), "[") {
			end = i
			break
		}
	}

	last := start
	for i := start + 1; i < end; i++ {
		trimmed := stripComment(lines[i])
		if trimmed == "" {
			continue
		}
		last = i
		if key, _, ok := strings.Cut(trimmed, "="); ok && unquote(strings.TrimSpace(key)) == t.key {
			indent := lines[i][:len(lines[i])-len(strings.TrimLeft(lines[i], " \t"))]
			lines[i] = indent + value
			return lines
		}
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:last+1]...)
	out = append(out, value)
	return append(out, lines[last+1:]...)
}

func stripComment(line string) string {
	// Values containing '#' inside strings are left alone; only keys and
	// headers are compared after stripping.
	if i := strings.Index(line, "#"); i >= 0 && !strings.ContainsAny(line[:i], `"'`) {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func unquote(key string) string {
	if len(key) >= 2 && (key[0] == '"' || key[0] == '\'') && key[len(key)-1] == key[0] {
		return key[1 : len(key)-1]
	}
	return key
}

type manifestDocument struct {
	Package *struct {
		RustVersion any            `toml:"rust-version"`
		Metadata    map[string]any `toml:"metadata"`
	} `toml:"package"`
}

func verify(contents string, version semver.BareVersion, kind event.MsrvKind) error {
	var doc manifestDocument
	if _, err := toml.Decode(contents, &doc); err != nil {
		return fmt.Errorf("%w: edited manifest does not parse: %v", ErrInvalidManifest, err)
	}

	var got any
	switch {
	case doc.Package == nil:
	case kind == event.MsrvKindRustVersion:
		got = doc.Package.RustVersion
	default:
		got = doc.Package.Metadata["msrv"]
	}
	if got != version.String() {
		return fmt.Errorf("%w: expected %s after edit, found %v", ErrInvalidManifest, version, got)
	}
	return nil
}

// FindToolchainFile returns the path of the toolchain file in dir, if any.
func FindToolchainFile(dir string) (string, bool, error) {
	path := filepath.Join(dir, ToolchainFileName)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("manifest: %w", err)
	case info.IsDir():
		return "", false, nil
	}
	return path, true, nil
}
