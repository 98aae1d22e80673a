package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Instance is the base URL of the Mastodon instance,
	// e.g. "https://mastodon.example".
	Instance string `yaml:"instance"`

	// Webcal is the calendar feed locator. Both https:// and webcal://
	// schemes are accepted; webcal is rewritten to https before fetching.
	Webcal string `yaml:"webcal"`

	// TokenFile is the path of the saved OAuth credentials. If empty,
	// a default under the user config dir is used.
	TokenFile string `yaml:"token_file"`

	// Timezone is the IANA zone used for display formatting and for
	// interpreting floating (zone-less) event times. Default "UTC".
	Timezone string `yaml:"timezone"`

	// Limit is the maximum number of events per announcement.
	Limit int `yaml:"limit"`

	// Visibility is the Mastodon status visibility (public, unlisted,
	// private, direct).
	Visibility string `yaml:"visibility"`

	// RefreshCron is a cron-style schedule (e.g. "0 * * * *") used by
	// watch mode to decide when to re-check the feed.
	RefreshCron string `yaml:"refresh"`

	// StateFile is the sqlite database path used by watch mode to
	// remember which events were already announced.
	StateFile string `yaml:"state_file"`
}

// DefaultConfig returns an in-memory default configuration. Instance
// and Webcal have no sensible defaults and are validated by the
// commands that need them.
func DefaultConfig() *Config {
	return &Config{
		Timezone:    "UTC",
		Limit:       5,
		Visibility:  "public",
		RefreshCron: "0 * * * *",
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Limit <= 0 {
		c.Limit = 5
	}
	switch c.Visibility {
	case "public", "unlisted", "private", "direct":
		// ok
	default:
		c.Visibility = "public"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "0 * * * *"
	}
	if c.TokenFile == "" {
		if dir, err := baseDir(); err == nil {
			c.TokenFile = filepath.Join(dir, "token.json")
		}
	}
	if c.StateFile == "" {
		if dir, err := baseDir(); err == nil {
			c.StateFile = filepath.Join(dir, "state.db")
		}
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// DefaultPath returns the default config file location under the user
// config dir, e.g. ~/.config/icalmasto/config.yaml.
func DefaultPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func baseDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "icalmasto"), nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: write a default config with 0600
//     perms (creating the parent directory) and return the defaults.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			cfg.Normalize()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The parent directory is created (0700), the YAML is written to a
// temp file in the same directory and renamed over the target, and the
// final file ends up with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icalmasto-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up the temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
