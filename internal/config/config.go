// Package config loads client configuration from file, environment,
// and defaults, in that order of increasing precedence for the
// environment and decreasing for defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/davtask/davtask/internal/task"
)

// Calendar configures one calendar known to the client.
type Calendar struct {
	Name      string `mapstructure:"name"`
	Href      string `mapstructure:"href"`
	Color     string `mapstructure:"color"`
	LocalOnly bool   `mapstructure:"local_only"`
}

// Config is the resolved client configuration.
type Config struct {
	// ServerURL is the CalDAV server root, e.g. https://dav.example.com.
	ServerURL string `mapstructure:"server_url"`
	// HomeSet is the calendar home collection path on the server.
	HomeSet  string `mapstructure:"home_set"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// DataDir is the local data root (journal, caches, local
	// calendars). Defaults to ~/.local/share/davtask.
	DataDir string `mapstructure:"data_dir"`

	// SyncInterval is the daemon's periodic drain interval.
	SyncInterval time.Duration `mapstructure:"sync_interval"`

	Calendars []Calendar `mapstructure:"calendars"`
}

// Load reads configuration. path may be empty, in which case the
// default location ~/.config/davtask/config.yaml is tried; a missing
// file there is not an error. Environment variables with the DAVTASK_
// prefix override file values (DAVTASK_SERVER_URL, DAVTASK_PASSWORD,
// ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("sync_interval", time.Minute)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetEnvPrefix("davtask")
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(defaultConfigDir(), "config.yaml")
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		// A missing file at the default location just means defaults.
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = time.Minute
	}
	return &cfg, nil
}

// LocalCalendars returns the configured local-only calendars as list
// entries for the engine.
func (c *Config) LocalCalendars() []task.CalendarListEntry {
	var out []task.CalendarListEntry
	for _, cal := range c.Calendars {
		if !cal.LocalOnly {
			continue
		}
		out = append(out, task.CalendarListEntry{
			Name:      cal.Name,
			Href:      cal.Href,
			Color:     cal.Color,
			LocalOnly: true,
		})
	}
	return out
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "davtask")
	}
	return ".davtask"
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "davtask")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "davtask")
	}
	return ".davtask-data"
}
