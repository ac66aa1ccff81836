// Package config loads clientdesk configuration from a YAML file with
// environment overrides, and can watch the file for live changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	// DataDir holds the document store database and media uploads.
	DataDir string `mapstructure:"data_dir"`

	// Port is the dashboard HTTP listen port.
	Port int `mapstructure:"port"`

	// LogFile, when set, receives serve-mode logs with rotation.
	LogFile string `mapstructure:"log_file"`

	// MediaPrefix is the URL path avatars are served under.
	MediaPrefix string `mapstructure:"media_prefix"`
}

// StorePath returns the SQLite database file location.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "clientdesk.db")
}

// MediaDir returns the directory avatar blobs are written to.
func (c *Config) MediaDir() string {
	return filepath.Join(c.DataDir, "media")
}

// Load reads configuration from the given file (optional), the
// CDESK_* environment, and defaults, in that order of precedence.
func Load(file string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CDESK")
	v.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("data_dir", filepath.Join(home, ".clientdesk"))
	v.SetDefault("port", 8080)
	v.SetDefault("log_file", "")
	v.SetDefault("media_prefix", "/media")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName("clientdesk")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".clientdesk"))
		if err := v.ReadInConfig(); err != nil {
			// No config file is fine; defaults and env apply.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, v, nil
}

// Watch re-reads the config file on change and invokes onChange with the
// fresh values. Returns immediately; watching continues in the
// background.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
}
