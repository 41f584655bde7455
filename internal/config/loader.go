package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	pkgconfig "github.com/goran-ethernal/DDOIndexor/pkg/config"
	"gopkg.in/yaml.v3"
)

type unmarshalFunc func([]byte, any) error

// formats maps a file extension to its decoder.
var formats = map[string]unmarshalFunc{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".json": json.Unmarshal,
	".toml": toml.Unmarshal,
}

// LoadFromFile reads a configuration file, picking the decoder by extension,
// then applies defaults and validates the result.
func LoadFromFile(path string) (*pkgconfig.Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := formats[ext]; !ok {
		return nil, fmt.Errorf("unsupported config file format: %s (supported: %s)", ext, supportedFormats())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data, ext)
}

// LoadFromYAML loads a YAML configuration file regardless of its extension.
func LoadFromYAML(path string) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, ".yaml")
}

// Parse decodes configuration content in the format named by ext.
func Parse(data []byte, ext string) (*pkgconfig.Config, error) {
	unmarshal, ok := formats[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported config file format: %s (supported: %s)", ext, supportedFormats())
	}

	var cfg pkgconfig.Config
	if err := unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", strings.TrimPrefix(ext, "."), err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func supportedFormats() string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
