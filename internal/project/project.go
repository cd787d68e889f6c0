// Package project loads the optional conifer.yaml project file.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the project root.
const DefaultFileName = "conifer.yaml"

// Config describes a project: where sources live, whether the core
// modules are compiled into the environment first, and where to write
// the resulting environment value.
type Config struct {
	SourceDirectories []string `yaml:"source-directories"`
	Core              *bool    `yaml:"core"`
	Output            string   `yaml:"output"`
}

// Default is the configuration used when no project file exists.
func Default() *Config {
	return &Config{SourceDirectories: []string{"src"}}
}

// WithCore reports whether the core modules should be bootstrapped.
func (c *Config) WithCore() bool {
	return c.Core == nil || *c.Core
}

// Load reads the project file in the given directory, falling back to
// defaults when it does not exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, DefaultFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", DefaultFileName, err)
	}
	if len(cfg.SourceDirectories) == 0 {
		cfg.SourceDirectories = []string{"src"}
	}
	return cfg, nil
}

// SourceFiles lists the .elm files under the configured source
// directories, relative to dir.
func (c *Config) SourceFiles(dir string) ([]string, error) {
	var out []string
	for _, sourceDir := range c.SourceDirectories {
		root := filepath.Join(dir, sourceDir)
		err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.IsDir() && filepath.Ext(path) == ".elm" {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
