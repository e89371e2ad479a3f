// Package config loads and validates the optional shellrun YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the per-project configuration file looked up from the
// working directory upward.
const FileName = ".shellrun.yaml"

// Default values for runner and server configuration.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultWaitDelay = 2 * time.Second
	DefaultLogLevel  = "info"
)

// Config holds the parsed shellrun configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int      `yaml:"version"`
	RawTimeout   string   `yaml:"timeout"`    // default per-call timeout, e.g. "30s"
	RawMaxOutput int      `yaml:"max_output"` // bytes per stream
	RawWaitDelay string   `yaml:"wait_delay"` // e.g. "2s"
	Shell        []string `yaml:"shell"`      // e.g. ["/bin/bash", "-c"]
	LogLevel     string   `yaml:"log_level"`  // zerolog level name
}

// Timeout returns the configured default call timeout or the default.
func (c *Config) Timeout() time.Duration {
	return parsePositive(c.RawTimeout, DefaultTimeout)
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// WaitDelay returns how long output may drain after the process exits.
func (c *Config) WaitDelay() time.Duration {
	return parsePositive(c.RawWaitDelay, DefaultWaitDelay)
}

// Level returns the configured log level name or the default.
func (c *Config) Level() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return DefaultLogLevel
}

func parsePositive(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// LoadResult holds the parsed config and the file it came from.
type LoadResult struct {
	Config *Config
	Path   string // empty when no file was found and defaults apply
}

// Load reads the configuration. An explicit path must exist. Otherwise
// FileName is searched for from workspace upward, then
// <UserConfigDir>/shellrun/config.yaml is tried. If no file exists, a
// default Config is returned.
func Load(path, workspace string) (*LoadResult, error) {
	if path != "" {
		return loadFile(path)
	}

	candidates := searchPaths(workspace)
	for _, p := range candidates {
		res, err := loadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return res, err
	}
	return &LoadResult{Config: &Config{}}, nil
}

func loadFile(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

// searchPaths lists FileName in workspace and each of its parents, followed
// by the per-user config file.
func searchPaths(workspace string) []string {
	var paths []string
	if workspace != "" {
		if dir, err := filepath.Abs(workspace); err == nil {
			for {
				paths = append(paths, filepath.Join(dir, FileName))
				parent := filepath.Dir(dir)
				if parent == dir {
					break
				}
				dir = parent
			}
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "shellrun", "config.yaml"))
	}
	return paths
}
