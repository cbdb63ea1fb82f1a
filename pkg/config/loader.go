package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decoder struct {
	format    string
	unmarshal func([]byte, any) error
}

var (
	yamlDecoder = decoder{format: "yaml", unmarshal: yaml.Unmarshal}
	jsonDecoder = decoder{format: "json", unmarshal: json.Unmarshal}

	decoders = map[string]decoder{
		".yaml": yamlDecoder,
		".yml":  yamlDecoder,
		".json": jsonDecoder,
	}
)

func (d decoder) decode(data []byte) (Config, error) {
	var doc map[string]any
	if err := d.unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", d.format, err)
	}
	return New(doc), nil
}

// FromFile reads a settings document, picking the format from the extension.
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("unsupported config file extension: %q", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return dec.decode(data)
}

// FromYAML parses a YAML document.
func FromYAML(data []byte) (Config, error) { return yamlDecoder.decode(data) }

// FromJSON parses a JSON document.
func FromJSON(data []byte) (Config, error) { return jsonDecoder.decode(data) }
