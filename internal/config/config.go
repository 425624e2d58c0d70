// Package config loads the spectrace configuration from defaults, the global
// config file, the project config file, and environment variables, in that
// priority order. Discovery of the project config (walking parent directories
// for a .spectrace marker) happens exactly once at program entry; every
// component receives the resulting Configuration explicitly and performs no
// filesystem discovery of its own.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/schoolboyqueue/spectrace/internal/scanner"
)

// Configuration is the complete spectrace configuration.
type Configuration struct {
	DocsDir      string   `koanf:"docs_dir" validate:"required"`
	SourceDir    string   `koanf:"source_dir" validate:"required"`
	AdapterDir   string   `koanf:"adapter_dir"`
	SkipCodeScan bool     `koanf:"skip_code_scan"`
	MaxFileBytes int64    `koanf:"max_file_bytes" validate:"min=0"`
	ExcludeDirs  []string `koanf:"exclude_dirs"`
	Format       string   `koanf:"format" validate:"omitempty,oneof=text json yaml"`

	// Languages extends or overrides the built-in code-scanning language
	// table, keyed by file extension without the dot.
	Languages map[string]scanner.Language `koanf:"languages"`
}

// Scanner builds a code scanner from the configuration: the default language
// table with configured overrides applied.
func (c *Configuration) Scanner() *scanner.Scanner {
	s := scanner.New()
	if c.MaxFileBytes > 0 {
		s.MaxFileBytes = c.MaxFileBytes
	}
	if len(c.ExcludeDirs) > 0 {
		s.ExcludeDirs = c.ExcludeDirs
	}
	for ext, lang := range c.Languages {
		s.Languages[strings.TrimPrefix(ext, ".")] = lang
	}
	return s
}

// FindProjectConfig walks upward from startDir looking for
// .spectrace/config.yaml. Returns the path and true when found.
func FindProjectConfig(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, ".spectrace", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load builds the configuration. projectConfigPath may be empty when the
// project has no config file; the defaults still apply.
func Load(projectConfigPath string) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		k.Set(key, value)
	}

	// Global config, JSON, lowest file priority.
	if homeDir, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(homeDir, ".spectrace", "config.json")
		if _, err := os.Stat(globalPath); err == nil {
			if err := k.Load(file.Provider(globalPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("loading global config: %w", err)
			}
		}
	}

	// Project config, YAML.
	if projectConfigPath != "" {
		if _, err := os.Stat(projectConfigPath); err != nil {
			return nil, fmt.Errorf("project config %s: %w", projectConfigPath, err)
		}
		if err := k.Load(file.Provider(projectConfigPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	// Environment variables win over everything.
	k.Load(env.Provider("SPECTRACE_", ".", envTransform), nil)

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.DocsDir = expandHomePath(cfg.DocsDir)
	cfg.SourceDir = expandHomePath(cfg.SourceDir)
	return &cfg, nil
}

// envTransform converts environment variable names to config keys.
// Example: SPECTRACE_DOCS_DIR -> docs_dir
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "SPECTRACE_"))
}

// expandHomePath expands a leading ~/ to the user's home directory.
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
