// Package config handles avioctl configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pion/logging"
	"gopkg.in/yaml.v3"

	"github.com/thesyncim/avio"
)

// Config represents the avioctl configuration.
type Config struct {
	BufferSize  int    `yaml:"buffer_size"`
	LogLevel    string `yaml:"log_level"`
	LibraryPath string `yaml:"library_path,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		BufferSize: avio.DefaultBufferSize,
		LogLevel:   "warn",
	}
}

// DefaultConfigPath returns the default configuration file path for the current platform.
// - macOS/Linux: ~/.avio/config.yaml
// - Windows: %USERPROFILE%\.avio\config.yaml
func DefaultConfigPath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		return "config.yaml"
	}

	return filepath.Join(homeDir, ".avio", "config.yaml")
}

// LoadConfig loads configuration from the specified path.
// If the file doesn't exist, returns the defaults without error.
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

var logLevels = map[string]logging.LogLevel{
	"disabled": logging.LogLevelDisabled,
	"error":    logging.LogLevelError,
	"warn":     logging.LogLevelWarn,
	"info":     logging.LogLevelInfo,
	"debug":    logging.LogLevelDebug,
	"trace":    logging.LogLevelTrace,
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the log level as a pion level. An empty level is "warn".
func (c *Config) Level() (logging.LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if name == "" {
		return logging.LogLevelWarn, nil
	}
	level, ok := logLevels[name]
	if !ok {
		return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return level, nil
}
