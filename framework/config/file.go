package config

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Decode parses a YAML (or JSON) document into a RawConfig. An empty document
// yields an empty RawConfig; any other non-mapping document is rejected.
func Decode(data []byte) (RawConfig, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if doc == nil {
		return RawConfig{}, nil
	}
	m, ok := asMap(doc)
	if !ok {
		return nil, fmt.Errorf("%w: document is a %T, not a mapping", ErrInvalidConfig, doc)
	}
	return RawConfig(m), nil
}

// LoadFile reads and decodes the configuration file at path.
func LoadFile(fs afero.Fs, path string) (RawConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}
	raw, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}
