package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

type decoder func(data []byte) (*Config, error)

// decoderFor picks the decoder for a file name by extension, or nil.
func decoderFor(name string) decoder {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return ParseJSON
	case ".yml", ".yaml":
		return ParseYAML
	}
	return nil
}

// ParseFile loads a Config from a YAML or JSON file, chosen by extension.
// Relative paths in the config resolve against the file's directory.
func ParseFile(path string) (*Config, error) {
	decode := decoderFor(path)
	if decode == nil {
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	config.basePath = filepath.Dir(path)
	return config, nil
}

// ParseYAML loads a Config from YAML. Unknown fields are rejected.
func ParseYAML(data []byte) (*Config, error) {
	var config Config
	if err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict()); err != nil {
		return nil, err
	}
	return &config, nil
}

// ParseJSON loads a Config from JSON. Unknown fields are rejected.
func ParseJSON(data []byte) (*Config, error) {
	var config Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load reads a config from a file or, for a directory, merges every YAML
// and JSON file in it.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadDirectory(path)
	}
	return ParseFile(path)
}
