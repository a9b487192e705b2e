package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(&model.Args{})
	require.Nil(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8000", cfg.API.ListenAddress)
	assert.Equal(t, ":8080", cfg.Dashboard.ListenAddress)
	assert.Equal(t, "http://localhost:8000", cfg.Dashboard.APIBaseURL)
	assert.Equal(t, 0, cfg.Dashboard.RetryMax)
	assert.Equal(t, 100, cfg.Discovery.Concurrency)
	assert.Equal(t, time.Second, cfg.Discovery.ProbeTimeout)
	assert.Equal(t, 80, cfg.Diagnostics.Thresholds.CPUWarning)
	assert.Len(t, cfg.Credentials.MasterKey, 64)
	assert.False(t, cfg.Dashboard.Mock)
}

func TestLoadArgsOverrides(t *testing.T) {
	cfg, err := Load(&model.Args{LogLevel: "debug", Mock: true, EnableProfiling: true})
	require.Nil(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Dashboard.Mock)
	assert.True(t, cfg.EnableProfiling)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snatt.yml")
	contents := `
log_level: debug
dryrun: true
dashboard:
  mock: true
  mock_delay: 10ms
  api_base_url: http://api.internal:8000
discovery:
  concurrency: 8
  method: icmp
diagnostics:
  thresholds:
    cpu_warning: 70
    cpu_critical: 95
credentials:
  master_key: s3cr3t
`
	require.Nil(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(&model.Args{ConfigFile: path, LogLevel: "trace"})
	require.Nil(t, err)

	assert.Equal(t, "trace", cfg.LogLevel)
	assert.True(t, cfg.Dryrun)
	assert.True(t, cfg.Dashboard.Mock)
	assert.Equal(t, 10*time.Millisecond, cfg.Dashboard.MockDelay)
	assert.Equal(t, "http://api.internal:8000", cfg.Dashboard.APIBaseURL)
	assert.Equal(t, 8, cfg.Discovery.Concurrency)
	assert.Equal(t, ProbeMethodICMP, cfg.Discovery.Method)
	assert.Equal(t, 70, cfg.Diagnostics.Thresholds.CPUWarning)
	assert.Equal(t, 95, cfg.Diagnostics.Thresholds.CPUCritical)
	assert.Equal(t, "s3cr3t", cfg.Credentials.MasterKey)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SNATT_API_LISTEN_ADDRESS", ":9000")
	t.Setenv("SNATT_DASHBOARD_MOCK", "true")

	cfg, err := Load(&model.Args{})
	require.Nil(t, err)

	assert.Equal(t, ":9000", cfg.API.ListenAddress)
	assert.True(t, cfg.Dashboard.Mock)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.Nil(t, os.WriteFile(path, []byte("SNATT_DASHBOARD_LISTEN_ADDRESS=:7070\n"), 0o600))

	t.Cleanup(func() { os.Unsetenv("SNATT_DASHBOARD_LISTEN_ADDRESS") })

	cfg, err := Load(&model.Args{EnvFile: path})
	require.Nil(t, err)

	assert.Equal(t, ":7070", cfg.Dashboard.ListenAddress)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"relative api url", "dashboard:\n  api_base_url: /api\n"},
		{"zero concurrency", "discovery:\n  concurrency: 0\n"},
		{"unknown method", "discovery:\n  method: arp\n"},
		{"inverted thresholds", "diagnostics:\n  thresholds:\n    memory_warning: 95\n    memory_critical: 90\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "snatt.yml")
			require.Nil(t, os.WriteFile(path, []byte(tt.contents), 0o600))

			_, err := Load(&model.Args{ConfigFile: path})
			assert.True(t, errors.Is(err, model.ErrConfig))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(&model.Args{ConfigFile: "/nonexistent/snatt.yml"})
	assert.True(t, errors.Is(err, model.ErrConfig))
}
