// Package config loads the project configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileNames are the configuration files looked up in a project root, in
// order.
var FileNames = []string{"vuensight.yaml", ".vuensight.yaml", "vuensight.yml"}

// Config is the project configuration.
type Config struct {
	// Dir is the scan root relative to the project root.
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
	// Exclude lists directory names skipped while walking.
	Exclude []string `yaml:"exclude"`
	// Aliases maps import prefixes to directories relative to the project
	// root, like a bundler's resolve.alias.
	Aliases  map[string]string `yaml:"aliases"`
	Workers  int               `yaml:"workers"`
	RulesDir string            `yaml:"rules_dir"`
	DB       string            `yaml:"db"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Dir:        "src",
		Extensions: []string{".vue", ".js", ".ts", ".jsx", ".tsx"},
		Exclude:    []string{"node_modules", "dist", ".git"},
		Aliases:    map[string]string{"@": "src"},
		DB:         filepath.Join(".vuensight", "index.db"),
	}
}

// Load reads the configuration from root. A missing file yields Default.
func Load(root string) (*Config, error) {
	for _, name := range FileNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return Default(), nil
}

// LoadFile reads the configuration at path. Fields the file leaves unset
// keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	// An explicit alias table replaces the default one.
	cfg.Aliases = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Aliases == nil {
		cfg.Aliases = map[string]string{"@": cfg.Dir}
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("config: %s: workers must not be negative", path)
	}
	cfg.Path = path
	return cfg, nil
}

// ResolvedAliases returns the alias table with directories made absolute
// against root.
func (c *Config) ResolvedAliases(root string) map[string]string {
	out := make(map[string]string, len(c.Aliases))
	for prefix, dir := range c.Aliases {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		out[prefix] = dir
	}
	return out
}

// ScanRoot returns the absolute directory to index.
func (c *Config) ScanRoot(root string) string {
	if c.Dir == "" || c.Dir == "." {
		return root
	}
	if filepath.IsAbs(c.Dir) {
		return c.Dir
	}
	return filepath.Join(root, c.Dir)
}
