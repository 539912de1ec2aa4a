// Package config holds the settings shared by the msrv commands. Values come
// from defaults, then an optional YAML file, then command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up beside the manifest.
const FileName = ".msrv.yaml"

var ErrInvalidConfig = errors.New("invalid config")

type OutputFormat string

const (
	OutputHuman OutputFormat = "human"
	OutputJSON  OutputFormat = "json"
)

type Config struct {
	// Cargo is the cargo binary used to produce metadata.
	Cargo        string       `yaml:"cargo"`
	ManifestPath string       `yaml:"manifest_path,omitempty"`
	MetadataPath string       `yaml:"metadata,omitempty"`
	OutputFormat OutputFormat `yaml:"output_format"`
	ManifestScan bool         `yaml:"manifest_scan"`
	MetadataKey  string       `yaml:"metadata_key"`
	NATS         NATSConfig   `yaml:"nats,omitempty"`
}

// NATSConfig enables mirroring of reporter events to a NATS server.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

func Default() Config {
	return Config{
		Cargo:        "cargo",
		OutputFormat: OutputHuman,
		ManifestScan: true,
		MetadataKey:  "msrv",
		NATS:         NATSConfig{Subject: "msrv.events"},
	}
}

// Decode reads YAML from r on top of the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Load reads the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

// Discover loads FileName from dir when present and returns the defaults
// otherwise.
func Discover(dir string) (Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: stat %q: %w", path, err)
	}
	return Load(path)
}

func (c *Config) Validate() error {
	c.OutputFormat = OutputFormat(strings.ToLower(string(c.OutputFormat)))
	switch c.OutputFormat {
	case OutputHuman, OutputJSON:
	default:
		return fmt.Errorf("%w: output_format %q must be %q or %q", ErrInvalidConfig, c.OutputFormat, OutputHuman, OutputJSON)
	}

	if c.Cargo == "" {
		return fmt.Errorf("%w: cargo is required", ErrInvalidConfig)
	}
	if c.MetadataKey == "" {
		return fmt.Errorf("%w: metadata_key is required", ErrInvalidConfig)
	}

	if c.NATS.URL != "" && !isValidSubject(c.NATS.Subject) {
		return fmt.Errorf("%w: nats.subject %q is not a valid subject prefix", ErrInvalidConfig, c.NATS.Subject)
	}
	return nil
}

// isValidSubject accepts dot separated tokens of letters, digits, '-' and '_'.
func isValidSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, token := range strings.Split(s, ".") {
		if token == "" {
			return false
		}
		for _, r := range token {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}
