package event

import (
	"encoding/json"
)

// AuxiliaryOutput is reported when a secondary artifact was written, or a
// special input (such as a toolchain file) was found.
type AuxiliaryOutput struct {
	Destination Destination `json:"destination"`
	Item        Item        `json:"item"`
}

func NewAuxiliaryOutput(destination Destination, item Item) AuxiliaryOutput {
	return AuxiliaryOutput{Destination: destination, Item: item}
}

func (AuxiliaryOutput) Kind() string { return "auxiliary_output" }
func (AuxiliaryOutput) isMessage()   {}

// Destination is where an auxiliary output lives. FileDestination is the only
// kind.
type Destination interface {
	isDestination()
}

type FileDestination struct {
	Path string
}

func File(path string) FileDestination {
	return FileDestination{Path: path}
}

func (FileDestination) isDestination() {}

// MarshalJSON encodes {"file": "<path>"}.
func (d FileDestination) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"file": d.Path})
}

// Item describes what an auxiliary output is about.
type Item interface {
	isItem()
}

// MsrvKind is the manifest field a requirement was written to or read from.
type MsrvKind string

const (
	// MsrvKindRustVersion is the package.rust-version field of the manifest.
	MsrvKindRustVersion MsrvKind = "rust_version"
	// MsrvKindMetadataFallback is the package.metadata.msrv key, for crates
	// built with Cargo releases that do not know rust-version yet.
	MsrvKindMetadataFallback MsrvKind = "metadata_fallback"
)

type MsrvItem struct {
	Kind MsrvKind
}

func Msrv(kind MsrvKind) MsrvItem {
	return MsrvItem{Kind: kind}
}

func (MsrvItem) isItem() {}

// MarshalJSON encodes {"msrv": {"kind": "<kind>"}}.
func (i MsrvItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]MsrvKind{"msrv": {"kind": i.Kind}})
}

// ToolchainFileKind is the format of a toolchain pinning file.
type ToolchainFileKind string

// ToolchainFileKindToml is rust-toolchain.toml. The legacy rust-toolchain
// file without extension is not supported.
const ToolchainFileKindToml ToolchainFileKind = "toml"

type ToolchainFileItem struct {
	Kind ToolchainFileKind
}

func ToolchainFile(kind ToolchainFileKind) ToolchainFileItem {
	return ToolchainFileItem{Kind: kind}
}

func (ToolchainFileItem) isItem() {}

// MarshalJSON encodes {"toolchain_file": {"kind": "<kind>"}}.
func (i ToolchainFileItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]ToolchainFileKind{"toolchain_file": {"kind": i.Kind}})
}
