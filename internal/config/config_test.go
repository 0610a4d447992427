package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "UTC", cfg.Timezone)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9090"
	cfg.Timezone = "Europe/Berlin"
	cfg.ICS = []ICSConfig{{URL: "https://example.org/team.ics", ID: "team", Name: "Team"}}
	cfg.Colors = []ColorRule{{Keyword: "holiday", Color: "red"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Listen, loaded.Listen)
	assert.Equal(t, cfg.Timezone, loaded.Timezone)
	require.Len(t, loaded.ICS, 1)
	assert.Equal(t, "team", loaded.ICS[0].ID)
	require.Len(t, loaded.Colors, 1)
}

func TestNormalize_FillsDefaults(t *testing.T) {
	cfg := &Config{WeekStart: "friday", HorizonDays: -3}
	cfg.Normalize()

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	assert.Equal(t, 30, cfg.HorizonDays)
	assert.NotNil(t, cfg.ICS)
	assert.NotNil(t, cfg.Colors)
}

func TestColorFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Colors = []ColorRule{
		{Keyword: "holiday", Color: "red"},
		{Keyword: "standup", Color: "gray"},
		{Keyword: "", Color: "never"},
	}

	assert.Equal(t, "red", cfg.ColorFor("Public Holiday"))
	assert.Equal(t, "gray", cfg.ColorFor("daily STANDUP call"))
	assert.Equal(t, "", cfg.ColorFor("one on one"))
}

func TestLoad_EmptyPathFails(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
