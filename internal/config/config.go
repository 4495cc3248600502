package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "condascan"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileType is the config file format.
	ConfigFileType = "yaml"
	// EnvPrefix namespaces environment variable overrides (CONDASCAN_*).
	EnvPrefix = "CONDASCAN"
)

// Config is the user-tweakable CLI configuration. The scanning library
// itself never reads it; the CLI translates it into Scanner options.
type Config struct {
	// Report is the default report format for the scan command.
	Report string `mapstructure:"report"`
	// PruneNames replaces the default set of never-descended directory
	// names when non-empty.
	PruneNames []string `mapstructure:"prune_names"`
	// Packages replaces the default set of tracked package names when
	// non-empty.
	Packages []string `mapstructure:"packages"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{Report: "print"}
}

// Dir returns the condascan configuration directory:
// $XDG_CONFIG_HOME/condascan, defaulting to ~/.config/condascan.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppName), nil
}

// Load reads the configuration from the default location, applying
// CONDASCAN_* environment overrides on top. A missing config file is not an
// error; the defaults are returned.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return load(filepath.Join(dir, ConfigFileName+"."+ConfigFileType))
}

// LoadFile reads the configuration from an explicit path, applying
// CONDASCAN_* environment overrides on top. The file must exist.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(ConfigFileType)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("report", defaults.Report)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
