package event

import (
	"github.com/bayleafwalker/msrv/internal/semver"
)

// SetOutput is reported once the minimum version has been written to a
// manifest.
type SetOutput struct {
	Version      semver.BareVersion `json:"version"`
	ManifestPath string             `json:"manifest_path"`
}

func NewSetOutput(version semver.BareVersion, manifestPath string) SetOutput {
	return SetOutput{Version: version, ManifestPath: manifestPath}
}

func (SetOutput) Kind() string { return "set_output" }
func (SetOutput) isMessage()   {}
