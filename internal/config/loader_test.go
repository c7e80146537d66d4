package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// TestNewLoader tests loader creation.
func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.GetViper())
}

// TestLoadWithNoConfigFile tests loading with no config file present.
func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.Equal(t, DefaultConfig().Ingest.BlockSize, cfg.Ingest.BlockSize)
}

// TestLoadWithValidYAMLFile tests loading from a valid YAML file.
func TestLoadWithValidYAMLFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "census-contrib.yaml")
	yamlContent := `
log_level: debug
ingest:
  block_size: 250
  metrics_file: /tmp/ingest.prom
  seed: 42
output:
  format: json
`
	require.NoError(t, os.WriteFile(configFile, []byte(yamlContent), 0o600))

	loader := newTestLoader()
	cfg, err := loader.LoadWithFile(configFile)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250, cfg.Ingest.BlockSize)
	assert.Equal(t, "/tmp/ingest.prom", cfg.Ingest.MetricsFile)
	assert.Equal(t, uint64(42), cfg.Ingest.Seed)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, configFile, loader.GetConfigFileUsed())
}

// TestLoadSearchesWorkingDirectory finds census-contrib.yaml in the cwd.
func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "census-contrib.yaml"),
		[]byte("output:\n  format: yaml\n"), 0o600))

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.Format)
}

func TestLoadWithMissingFile(t *testing.T) {
	_, err := newTestLoader().LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config file does not exist")
}

func TestLoadWithInvalidValues(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("log_level: loud\n"), 0o600))

	_, err := newTestLoader().LoadWithFile(configFile)
	assert.ErrorContains(t, err, "configuration validation failed")
}

func TestLoadWithMalformedYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("ingest: [1, 2"), 0o600))

	_, err := newTestLoader().LoadWithFile(configFile)
	assert.ErrorContains(t, err, "error reading config file")
}

// TestEnvironmentOverrides checks CENSUS_CONTRIB_ prefixed variables.
func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CENSUS_CONTRIB_OUTPUT_FORMAT", "json")
	t.Setenv("CENSUS_CONTRIB_INGEST_BLOCK_SIZE", "64")

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 64, cfg.Ingest.BlockSize)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()

	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", ConfigFileName))
	assert.Equal(t, "/etc/census-contrib", paths[len(paths)-1])
}

func TestGetResolvedConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	loader := newTestLoader()
	_, err := loader.Load()
	require.NoError(t, err)

	settings := loader.GetResolvedConfig()
	assert.Contains(t, settings, "ingest")
	assert.Contains(t, settings, "output")
}
