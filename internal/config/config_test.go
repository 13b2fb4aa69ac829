package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "source:\n  path: data/trades.csv\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":8501", cfg.App.HTTPAddr)
	assert.Empty(t, cfg.App.LogPath)
	assert.Equal(t, 50, cfg.App.LogMaxSizeMB)
	assert.Equal(t, SourceCSV, cfg.Source.Kind)
	assert.Equal(t, "data/trades.csv", cfg.Source.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Source.WatchDebounce())
	assert.False(t, cfg.Source.Watch)
	assert.Equal(t, "westeros", cfg.Charts.Theme)
	assert.Equal(t, 1200, cfg.Charts.Width)
	assert.Equal(t, 20*time.Second, cfg.Charts.PNGTimeout())
	assert.False(t, cfg.Charts.PNGEnabled)

	loc, err := cfg.Source.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_ExplicitValuesAndWeakTypes(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
app:
  log_level: DEBUG
  http_addr: "127.0.0.1:9000"
source:
  kind: sqlite
  path: trades.db
  timezone: America/New_York
  watch: "true"
  watch_debounce_ms: "250"
charts:
  width: 800
  cumulative_sma_period: 5
  png_enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.App.HTTPAddr)
	assert.Equal(t, SourceSQLite, cfg.Source.Kind)
	assert.Equal(t, "executed_trades", cfg.Source.Table)
	assert.True(t, cfg.Source.Watch)
	assert.Equal(t, 250*time.Millisecond, cfg.Source.WatchDebounce())
	assert.Equal(t, 800, cfg.Charts.Width)
	assert.Equal(t, 420, cfg.Charts.Height)
	assert.Equal(t, 5, cfg.Charts.CumulativeSMAPeriod)
	assert.True(t, cfg.Charts.PNGEnabled)

	loc, err := cfg.Source.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoad_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
app:
  http_addr: ":7000"
source:
  path: base.csv
charts:
  theme: dark
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
source:
  path: override.csv
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.App.HTTPAddr)
	assert.Equal(t, "override.csv", cfg.Source.Path)
	assert.Equal(t, "dark", cfg.Charts.Theme)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	path := writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoad_IncludeForms(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.yaml", "charts:\n  theme: dark\n")
	writeFile(t, dir, "mid.yaml", "include: shared.yaml\ncharts:\n  width: 640\n")
	// shared.yaml is reached twice and read once, before mid.yaml
	path := writeFile(t, dir, "config.yaml", "include: [shared.yaml, mid.yaml]\nsource:\n  path: x.csv\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.Charts.Theme)
	assert.Equal(t, 640, cfg.Charts.Width)

	bad := writeFile(t, dir, "bad.yaml", "include: [1, 2]\n")
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing include failed")
}

func TestMarkKeys(t *testing.T) {
	keys := make(keySet)
	markKeys("", map[string]any{
		"App":    map[string]any{"log_level": "debug"},
		"charts": map[string]any{"width": 0, "extra": []any{1, 2}},
	}, keys)
	assert.True(t, keys.isSet("app.log_level"))
	assert.True(t, keys.isSet("charts.width"))
	assert.True(t, keys.isSet("charts.extra"))
	assert.False(t, keys.isSet("charts.height"))
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"unknown kind":       "source:\n  kind: parquet\n",
		"bad log level":      "app:\n  log_level: loud\n",
		"bad timezone":       "source:\n  timezone: Mars/Olympus\n",
		"explicit empty":     "source:\n  path: \"\"\n",
		"explicit zero size": "charts:\n  width: 0\n",
		"negative sma":       "charts:\n  cumulative_sma_period: -3\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	_, err = Load("")
	assert.Error(t, err)
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, PathFromEnv())
	t.Setenv(EnvConfigPath, " /etc/tradelens.yaml ")
	assert.Equal(t, "/etc/tradelens.yaml", PathFromEnv())
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, SourceCSV, cfg.Source.Kind)
	assert.True(t, cfg.Source.Watch)
	assert.Equal(t, 5, cfg.Charts.CumulativeSMAPeriod)
}
