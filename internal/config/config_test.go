package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 5, cfg.Limit)
	assert.Equal(t, "public", cfg.Visibility)
	assert.Equal(t, "0 * * * *", cfg.RefreshCron)

	// The default file was created for the next run.
	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "instance: https://mastodon.example\nwebcal: webcal://example.com/cal.ics\ntimezone: Europe/Berlin\nlimit: 3\nvisibility: unlisted\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://mastodon.example", cfg.Instance)
	assert.Equal(t, "webcal://example.com/cal.ics", cfg.Webcal)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 3, cfg.Limit)
	assert.Equal(t, "unlisted", cfg.Visibility)
}

func TestNormalize(t *testing.T) {
	cfg := &Config{Visibility: "shouted", Limit: -2}
	cfg.Normalize()

	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 5, cfg.Limit)
	assert.Equal(t, "public", cfg.Visibility)
	assert.Equal(t, "0 * * * *", cfg.RefreshCron)
	assert.NotEmpty(t, cfg.TokenFile)
	assert.NotEmpty(t, cfg.StateFile)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Europe/Berlin"}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	cfg.Timezone = ""
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Timezone = "Mars/OlympusMons"
	_, err = cfg.Location()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	in := DefaultConfig()
	in.Instance = "https://mastodon.example"
	in.Webcal = "https://example.com/cal.ics"
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in.Instance, out.Instance)
	assert.Equal(t, in.Webcal, out.Webcal)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
