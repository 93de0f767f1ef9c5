package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"sigs.k8s.io/yaml"
)

// ReadFile loads a tenant config from disk. Files ending in .json or .jsonc
// are parsed as JSONC (JSON with comments and trailing commas); everything
// else is parsed as YAML.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var c *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		c, err = ParseJSONC(data)
	default:
		c, err = ParseYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseYAML parses a YAML (or plain JSON) tenant config.
func ParseYAML(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	c.Index()
	return &c, nil
}

// ParseJSONC strips comments and trailing commas, then parses the result as
// a JSON tenant config.
func ParseJSONC(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	c.Index()
	return &c, nil
}

// ReadSchemaFile loads a bare schema node list from disk, in the same formats
// as ReadFile.
func ReadSchemaFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var s Schema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &s)
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", path, err)
	}
	s.Index()
	return s, nil
}
