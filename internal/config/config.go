// Package config loads the multidocs site configuration: site settings, the
// underlying plugin name and the list of plugin instances.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/multidocs"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// DefaultPlugin is used when the configuration names no plugin.
const DefaultPlugin = "content-docs"

// Config is the site configuration file.
type Config struct {
	Site      SiteConfig                 `yaml:"site"`
	Plugin    string                     `yaml:"plugin"`
	Instances []multidocs.InstanceConfig `yaml:"instances"`
	Logging   LoggingConfig              `yaml:"logging,omitempty"`

	// Dir is the directory holding the configuration file. Relative paths
	// resolve against it.
	Dir string `yaml:"-"`
}

// SiteConfig holds settings shared by every instance.
type SiteConfig struct {
	Title             string `yaml:"title"`
	BaseURL           string `yaml:"base_url"`
	OutDir            string `yaml:"out_dir"`
	GeneratedFilesDir string `yaml:"generated_files_dir"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// Load reads, expands, defaults and validates the configuration at
// configPath. Variables from .env and .env.local next to the file are loaded
// first without overriding the process environment.
func Load(configPath string) (*Config, error) {
	dir, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "resolve config directory").Build()
	}
	loadEnvFiles(dir)

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, derrors.NotFoundError(fmt.Sprintf("configuration file not found: %s", configPath)).Build()
	}
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	return cfg, nil
}

// Parse decodes configuration bytes after expanding ${VAR} references, then
// applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to unmarshal config").Build()
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Documentation"
	}
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = "/"
	}
	if c.Site.OutDir == "" {
		c.Site.OutDir = "build"
	}
	if c.Site.GeneratedFilesDir == "" {
		c.Site.GeneratedFilesDir = ".multidocs"
	}
	if c.Plugin == "" {
		c.Plugin = DefaultPlugin
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
}

// Validate checks the instance list with the same rules the instance factory
// applies.
func (c *Config) Validate() error {
	return multidocs.ValidateConfigs(c.Instances)
}

// SiteDir returns the directory instances resolve relative paths against.
func (c *Config) SiteDir() string {
	if c.Dir == "" {
		return "."
	}
	return c.Dir
}

// LoadContext builds the per-session context handed to instance factories.
func (c *Config) LoadContext(logger *slog.Logger) plugin.LoadContext {
	lc := plugin.NewLoadContext(
		c.SiteDir(),
		c.resolve(c.Site.OutDir),
		c.resolve(c.Site.GeneratedFilesDir),
		c.Site.BaseURL,
		logger,
	)
	lc.SiteTitle = c.Site.Title
	return lc
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.SiteDir(), p)
}

// Init writes an example configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return derrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Config{
		Site: SiteConfig{
			Title:   "My Documentation",
			BaseURL: "/",
			OutDir:  "build",
		},
		Plugin: DefaultPlugin,
		Instances: []multidocs.InstanceConfig{
			{ID: "product", Admonitions: true, Options: plugin.Options{"path": "docs/product", "route_base_path": "product"}},
			{ID: "api", Options: plugin.Options{"path": "docs/api", "route_base_path": "api"}},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "failed to marshal config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
