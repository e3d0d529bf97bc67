package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Minute, cfg.Discovery.FullInterval)
	assert.Equal(t, time.Minute, cfg.Discovery.QuickInterval)
	assert.Equal(t, 10*time.Minute, cfg.Discovery.OfflineGrace)
	assert.Equal(t, 7*24*time.Hour, cfg.Discovery.EvictAfter)
	assert.Equal(t, time.Second, cfg.Enrichment.ProbeTimeout)
	assert.Contains(t, cfg.Enrichment.ProbePorts, 443)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing store host",
			mutate:  func(c *Config) { c.Store.Host = "" },
			wantErr: "store host",
		},
		{
			name:    "zero full interval",
			mutate:  func(c *Config) { c.Discovery.FullInterval = 0 },
			wantErr: "full discovery interval",
		},
		{
			name:    "eviction inside grace period",
			mutate:  func(c *Config) { c.Discovery.EvictAfter = 5 * time.Minute },
			wantErr: "eviction age",
		},
		{
			name:    "bad probe port",
			mutate:  func(c *Config) { c.Enrichment.ProbePorts = []int{80, 70000} },
			wantErr: "invalid probe port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "invalid log level",
		},
		{
			name:    "metrics enabled without address",
			mutate:  func(c *Config) { c.Metrics.Enabled = true; c.Metrics.ListenAddr = "" },
			wantErr: "metrics listen address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Discovery.FullInterval, cfg.Discovery.FullInterval)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
discovery:
  networks:
    - 10.10.0.0/24
  full_interval: 2m
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.10.0.0/24"}, cfg.Discovery.Networks)
	assert.Equal(t, 2*time.Minute, cfg.Discovery.FullInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, time.Minute, cfg.Discovery.QuickInterval)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discovery:\n  full_interval: -1s\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Discovery.Networks = []string{"192.168.50.0/24"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Discovery.Networks, loaded.Discovery.Networks)
}

func TestGetMetricsAddress(t *testing.T) {
	cfg := Default()
	cfg.Metrics.ListenAddr = "127.0.0.1"
	cfg.Metrics.Port = 9090
	assert.Equal(t, "127.0.0.1:9090", cfg.GetMetricsAddress())
}
