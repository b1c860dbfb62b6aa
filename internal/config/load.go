package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// Manifest filenames probed by Find, in order.
var defaultManifestFilenames = []string{"cloudplane.yaml", "cloudplane.yml", "cloudplane.hcl"}

// Load reads, defaults and validates a manifest. The format follows the
// file extension: .yaml/.yml or .hcl.
func Load(path string) (*Manifest, error) {
	m, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}
	return m, nil
}

// LoadWithoutValidation reads and defaults a manifest without validating it.
// Useful for tooling that needs to read partially valid manifests.
func LoadWithoutValidation(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clouderr.Newf(clouderr.CodeConfigMissing, "manifest %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m *Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		m, err = parseYAML(data)
	case ".hcl":
		m, err = parseHCL(path, data)
	default:
		return nil, clouderr.Newf(clouderr.CodeConfigInvalid,
			"unsupported manifest format %q (expected .yaml, .yml or .hcl)", ext)
	}
	if err != nil {
		return nil, err
	}

	m.ApplyDefaults()
	return m, nil
}

// LoadFromBytes parses, defaults and validates a YAML manifest held in memory.
func LoadFromBytes(data []byte) (*Manifest, error) {
	m, err := parseYAML(data)
	if err != nil {
		return nil, err
	}
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}
	return m, nil
}

func parseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, clouderr.Wrap(clouderr.CodeConfigInvalid, err, "failed to parse YAML manifest")
	}
	return &m, nil
}

// Find searches for a manifest file starting in the current directory and
// walking up the directory tree.
func Find() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := cwd
	for {
		for _, name := range defaultManifestFilenames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", clouderr.Newf(clouderr.CodeConfigMissing,
		"no manifest found: looked for %s from %s upward", strings.Join(defaultManifestFilenames, ", "), cwd)
}

// Save writes a manifest to a YAML file.
func Save(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
