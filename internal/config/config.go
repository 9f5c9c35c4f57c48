// Package config loads and validates the optional .exrun YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file looked up from the
// working directory upward.
const FileName = ".exrun"

// Default values for runner configuration.
const (
	DefaultBinDir      = "build/build_output/bin"
	DefaultTimeout     = 10 * time.Second
	DefaultGracePeriod = 5 * time.Second
	DefaultPause       = 1 * time.Second
	DefaultMaxOutput   = 1 << 20 // 1 MB
	DefaultChatServer  = "chat_server"
	DefaultChatClient  = "chat_client"
)

// Example is one catalog entry: an executable name and its time budget.
type Example struct {
	Name    string
	Timeout time.Duration
}

// DefaultCatalog is used when the config file does not list examples.
var DefaultCatalog = []Example{
	{Name: "01_basic_concepts", Timeout: 5 * time.Second},
	{Name: "02_timers", Timeout: 8 * time.Second},
	{Name: "03_networking_basics", Timeout: 10 * time.Second},
	{Name: "04_advanced_networking", Timeout: 15 * time.Second},
	{Name: "05_strand_thread_safety", Timeout: 10 * time.Second},
}

// Config holds the parsed .exrun configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version        int             `yaml:"version"`
	RawBinDir      string          `yaml:"bin_dir"`         // relative to the project root
	RawTimeout     string          `yaml:"default_timeout"` // e.g. "10s"
	RawGracePeriod string          `yaml:"grace_period"`
	RawPause       string          `yaml:"pause"`
	RawMaxOutput   int             `yaml:"max_output"` // bytes
	Examples       []ExampleConfig `yaml:"examples"`
	Chat           ChatConfig      `yaml:"chat"`
	Log            LogConfig       `yaml:"log"`
}

// ExampleConfig is the YAML form of a catalog entry.
type ExampleConfig struct {
	Name    string `yaml:"name"`
	Timeout string `yaml:"timeout"`
}

// ChatConfig names the interactive demo pair.
type ChatConfig struct {
	Server string `yaml:"server"`
	Client string `yaml:"client"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// BinDir returns the configured binary directory, resolved against root.
func (c *Config) BinDir(root string) string {
	dir := c.RawBinDir
	if dir == "" {
		dir = DefaultBinDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, filepath.FromSlash(dir))
}

// Timeout returns the single-run timeout or the default.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.RawTimeout, DefaultTimeout)
}

// GracePeriod returns the terminate-to-kill window or the default.
func (c *Config) GracePeriod() time.Duration {
	return parseDuration(c.RawGracePeriod, DefaultGracePeriod)
}

// Pause returns the delay between batch runs or the default.
// A configured "0s" disables the pause.
func (c *Config) Pause() time.Duration {
	if c.RawPause != "" {
		d, err := time.ParseDuration(c.RawPause)
		if err == nil && d >= 0 {
			return d
		}
	}
	return DefaultPause
}

// MaxOutputBytes returns the configured per-stream capture cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ChatServer returns the interactive server executable name.
func (c *Config) ChatServer() string {
	if c.Chat.Server != "" {
		return c.Chat.Server
	}
	return DefaultChatServer
}

// ChatClient returns the interactive client executable name.
func (c *Config) ChatClient() string {
	if c.Chat.Client != "" {
		return c.Chat.Client
	}
	return DefaultChatClient
}

// Catalog returns the configured examples, falling back to DefaultCatalog.
// The returned slice is a copy and may be modified by the caller.
func (c *Config) Catalog() []Example {
	if len(c.Examples) == 0 {
		return append([]Example(nil), DefaultCatalog...)
	}
	out := make([]Example, 0, len(c.Examples))
	for _, e := range c.Examples {
		out = append(out, Example{Name: e.Name, Timeout: parseDuration(e.Timeout, DefaultTimeout)})
	}
	return out
}

// Lookup returns the catalog entry with the given name.
func (c *Config) Lookup(name string) (Example, bool) {
	for _, e := range c.Catalog() {
		if e.Name == name {
			return e, true
		}
	}
	return Example{}, false
}

// Validate reports catalog entries that cannot be run.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Examples))
	for i, e := range c.Examples {
		if e.Name == "" {
			return fmt.Errorf("examples[%d]: name is required", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("examples[%d]: duplicate name %q", i, e.Name)
		}
		seen[e.Name] = true
		if e.Timeout == "" {
			continue
		}
		d, err := time.ParseDuration(e.Timeout)
		if err != nil {
			return fmt.Errorf("examples[%d] %s: %w", i, e.Name, err)
		}
		if d <= 0 {
			return fmt.Errorf("examples[%d] %s: timeout must be positive, got %s", i, e.Name, d)
		}
	}
	return nil
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config      *Config
	ProjectRoot string // directory containing .exrun; falls back to workspace
}

// Load reads the .exrun file from the nearest enclosing directory of
// workspace. If no file exists, a default Config rooted at workspace
// is returned.
func Load(workspace string) (*LoadResult, error) {
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}

	root, err := findProjectRoot(workspace)
	if err != nil {
		return &LoadResult{Config: &Config{}, ProjectRoot: workspace}, nil
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, ProjectRoot: root}, nil
}

// findProjectRoot walks upward from dir looking for a directory containing .exrun.
func findProjectRoot(dir string) (string, error) {
	for {
		if fi, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
