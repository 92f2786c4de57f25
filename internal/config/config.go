// Package config loads and validates the raggrep configuration file:
// which extensions are indexed, which paths are ignored, and the
// per-module index/search options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// defaultDir is the on-disk root for all raggrep state, relative to a
// project root, unless overridden by IndexDir.
const defaultDir = ".raggrep"

// Config is the top-level raggrep configuration.
type Config struct {
	// Extensions lists which file extensions are eligible for indexing,
	// e.g. ".go", ".py". Empty means "use the built-in default set".
	Extensions []string `yaml:"extensions" json:"extensions"`

	// IgnorePaths are doublestar glob patterns excluded from indexing,
	// matched against the repo-relative forward-slash path.
	IgnorePaths []string `yaml:"ignorePaths" json:"ignorePaths"`

	// IndexDir overrides the default ".raggrep" state directory.
	IndexDir string `yaml:"indexDir" json:"indexDir"`

	// Modules maps a module id to its activation and search defaults.
	Modules map[string]ModuleConfig `yaml:"modules" json:"modules"`
}

// ModuleConfig is one entry of the "modules[id]" config surface.
type ModuleConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Options ModuleOptions `yaml:"options" json:"options"`
}

// ModuleOptions holds the per-module tunables.
type ModuleOptions struct {
	// EmbeddingModel selects the embedding model; must have a
	// precomputed dimension known to the embed provider factory.
	EmbeddingModel string `yaml:"embeddingModel" json:"embeddingModel"`

	// TopK is the default result count for searches against this module.
	TopK int `yaml:"topK" json:"topK"`

	// MinScore is the default score floor applied by the scorer (C10).
	MinScore float64 `yaml:"minScore" json:"minScore"`

	// FilePatterns restricts search to files matching these globs.
	FilePatterns []string `yaml:"filePatterns" json:"filePatterns"`
}

// defaultExtensions are indexed when Config.Extensions is empty.
var defaultExtensions = []string{
	".go", ".py", ".rs", ".java", ".ts", ".tsx", ".js", ".jsx",
	".md", ".mdx",
}

// defaultIgnorePaths are always excluded, in addition to whatever the
// config file adds.
var defaultIgnorePaths = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/.raggrep/**",
	"**/*.min.js",
	"**/*.min.css",
}

// New returns a Config with the built-in defaults and a single "default"
// module enabled, matching what `raggrep init` writes to disk.
func New() *Config {
	return &Config{
		Extensions:  append([]string(nil), defaultExtensions...),
		IgnorePaths: append([]string(nil), defaultIgnorePaths...),
		IndexDir:    defaultDir,
		Modules: map[string]ModuleConfig{
			"default": {
				Enabled: true,
				Options: ModuleOptions{
					EmbeddingModel: "",
					TopK:           20,
					MinScore:       0.2,
					FilePatterns:   nil,
				},
			},
		},
	}
}

// Load reads "raggrep.yaml" (or "raggrep.yml") from dir, merges it over
// New()'s defaults, and validates the result. A missing file is not an
// error — New() is returned unchanged.
func Load(dir string) (*Config, error) {
	cfg := New()

	path, ok := configPath(dir)
	if !ok {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.mergeWith(&parsed)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

func configPath(dir string) (string, bool) {
	for _, name := range []string{"raggrep.yaml", "raggrep.yml"} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// mergeWith overlays non-zero fields of other onto c. Extensions and
// Modules replace wholesale when present; IgnorePaths appends to the
// built-in defaults so a project can add to, not silently lose, them.
func (c *Config) mergeWith(other *Config) {
	if len(other.Extensions) > 0 {
		c.Extensions = other.Extensions
	}
	if len(other.IgnorePaths) > 0 {
		c.IgnorePaths = append(c.IgnorePaths, other.IgnorePaths...)
	}
	if other.IndexDir != "" {
		c.IndexDir = other.IndexDir
	}
	if len(other.Modules) > 0 {
		c.Modules = other.Modules
	}
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.IndexDir == "" {
		return fmt.Errorf("indexDir must not be empty")
	}
	for id, m := range c.Modules {
		if id == "" {
			return fmt.Errorf("module id must not be empty")
		}
		if m.Options.TopK < 0 {
			return fmt.Errorf("modules[%s].options.topK must be non-negative, got %d", id, m.Options.TopK)
		}
		if m.Options.MinScore < 0 || m.Options.MinScore > 1 {
			return fmt.Errorf("modules[%s].options.minScore must be between 0 and 1, got %f", id, m.Options.MinScore)
		}
	}
	return nil
}

// EnabledModules returns the ids of enabled modules in deterministic
// (sorted) order.
func (c *Config) EnabledModules() []string {
	var ids []string
	for id, m := range c.Modules {
		if m.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// IsIgnored reports whether a repo-relative, forward-slash path matches
// any configured ignore glob.
func (c *Config) IsIgnored(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range c.IgnorePaths {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

// HasExtension reports whether ext (including the leading dot) is one of
// the configured extensions.
func (c *Config) HasExtension(ext string) bool {
	for _, e := range c.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// WriteYAML writes the configuration to path as YAML, as `raggrep init`
// does for a fresh project.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// IndexRoot returns the absolute path to the on-disk state directory
// ("<root>/.raggrep/", or the IndexDir override) for project root dir.
func (c *Config) IndexRoot(dir string) string {
	if filepath.IsAbs(c.IndexDir) {
		return c.IndexDir
	}
	return filepath.Join(dir, c.IndexDir)
}

// FindProjectRoot walks up from startDir looking for a ".git" directory
// or a "raggrep.yaml"/"raggrep.yml" config file, returning the first
// directory that has one. If neither is found by the filesystem root,
// it returns startDir unchanged.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve start dir: %w", err)
	}

	dir := absDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir, nil
		}
		if _, ok := configPath(dir); ok {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}
