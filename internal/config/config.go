// Package config loads and validates the sitegen configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitegen/internal/errors"
)

// Config represents the application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	Markdown MarkdownConfig `yaml:"markdown,omitempty"`
	Sitemap  SitemapConfig  `yaml:"sitemap,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Events   EventsConfig   `yaml:"events,omitempty"`
	History  HistoryConfig  `yaml:"history,omitempty"`
}

// SourceConfig describes the source tree.
type SourceConfig struct {
	// Root is the source directory all includes must stay within.
	Root string `yaml:"root"`
	// IncludesDir is the directory name whose files are partials.
	IncludesDir string `yaml:"includes_dir,omitempty"`
	// Exclude lists doublestar glob patterns (relative to Root) to skip
	// during scanning, e.g. "**/drafts/**".
	Exclude []string `yaml:"exclude,omitempty"`
}

// OutputConfig describes the output tree.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before a full build
}

// MarkdownConfig controls markdown-to-HTML conversion for .md pages.
type MarkdownConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"` // default true
	Title   string `yaml:"title,omitempty"`   // fallback page title for the HTML shell
}

// SitemapConfig controls sitemap.xml generation.
type SitemapConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// ServerConfig configures the development server used by `sitegen serve`.
type ServerConfig struct {
	Port       int   `yaml:"port,omitempty"`
	LiveReload *bool `yaml:"live_reload,omitempty"` // default true
	// RebuildInterval triggers a scheduled full rebuild to resynchronize
	// state while serving. Zero disables the schedule.
	RebuildInterval Duration `yaml:"rebuild_interval,omitempty"`
	// DebounceQuiet and DebounceMax bound the watch debounce window.
	DebounceQuiet Duration `yaml:"debounce_quiet,omitempty"`
	DebounceMax   Duration `yaml:"debounce_max,omitempty"`
}

// EventsConfig configures optional build-event publishing over NATS.
// Publishing is disabled unless URL is set.
type EventsConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig configures the build history store.
type HistoryConfig struct {
	// Path to the SQLite database file. Empty selects an in-memory store
	// scoped to the process.
	Path string `yaml:"path,omitempty"`
}

// MarkdownEnabled reports the effective markdown toggle.
func (c *Config) MarkdownEnabled() bool {
	return c.Markdown.Enabled == nil || *c.Markdown.Enabled
}

// LiveReloadEnabled reports the effective live-reload toggle.
func (c *Config) LiveReloadEnabled() bool {
	return c.Server.LiveReload == nil || *c.Server.LiveReload
}

// ShouldExclude reports whether relPath (relative to the source root) matches
// any configured exclude glob.
func (c *Config) ShouldExclude(relPath string) bool {
	for _, pattern := range c.Source.Exclude {
		if ok, err := doublestar.Match(pattern, filepath.ToSlash(relPath)); err == nil && ok {
			return true
		}
	}
	return false
}

// Load loads configuration from the specified file, applying .env overrides,
// environment expansion, defaults, and validation.
func Load(configPath string) (*Config, error) {
	// Best effort: existing process environment is never overridden.
	_ = godotenv.Load(".env", ".env.local")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath))
		}
		return nil, errors.FileSystem("read", configPath, err)
	}

	// Expand ${VAR} references in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, errors.SeverityFatal, "failed to unmarshal config")
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides maps SITEGEN_* variables onto config fields. Explicit
// environment wins over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SITEGEN_SOURCE"); v != "" {
		cfg.Source.Root = v
	}
	if v := os.Getenv("SITEGEN_OUTPUT"); v != "" {
		cfg.Output.Directory = v
	}
	if v := os.Getenv("SITEGEN_NATS_URL"); v != "" {
		cfg.Events.URL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Source.IncludesDir == "" {
		cfg.Source.IncludesDir = "includes"
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./public"
	}
	if cfg.Markdown.Title == "" {
		cfg.Markdown.Title = "Site"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.DebounceQuiet <= 0 {
		cfg.Server.DebounceQuiet = Duration(200 * time.Millisecond)
	}
	if cfg.Server.DebounceMax <= 0 {
		cfg.Server.DebounceMax = Duration(2 * time.Second)
	}
	if cfg.Events.URL != "" && cfg.Events.Subject == "" {
		cfg.Events.Subject = "sitegen.builds"
	}
}

func validate(cfg *Config) error {
	if cfg.Source.Root == "" {
		return errors.ConfigError("source.root is required")
	}
	abs, err := filepath.Abs(cfg.Source.Root)
	if err != nil {
		return errors.Wrap(err, errors.KindConfig, errors.SeverityFatal, "cannot resolve source.root")
	}
	cfg.Source.Root = abs

	absOut, err := filepath.Abs(cfg.Output.Directory)
	if err != nil {
		return errors.Wrap(err, errors.KindConfig, errors.SeverityFatal, "cannot resolve output.directory")
	}
	cfg.Output.Directory = absOut

	if cfg.Output.Directory == cfg.Source.Root {
		return errors.ConfigError("output.directory must not equal source.root")
	}
	for _, pattern := range cfg.Source.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.ConfigError(fmt.Sprintf("invalid exclude pattern: %q", pattern))
		}
	}
	return nil
}
