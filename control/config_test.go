// File: control/config_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentSessions = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SessionTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ServiceCount = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.IngressCapacity = 0
	assert.Error(t, cfg.Validate())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
max_concurrent_sessions = 8
session_timeout = "2s"
service_count = 3
toggle_file = "  /tmp/node.toggle  "
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxConcurrentSessions)
	assert.Equal(t, 2*time.Second, cfg.SessionTimeout)
	assert.Equal(t, 3, cfg.ServiceCount)
	assert.Equal(t, "/tmp/node.toggle", cfg.ToggleFile)
	assert.Equal(t, DefaultConfig().IngressCapacity, cfg.IngressCapacity, "absent keys keep defaults")
}

func TestLoadConfigMillisecondTimeout(t *testing.T) {
	path := writeConfig(t, `session_timeout_ms = 1500`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.SessionTimeout)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `session_timeout = "soon"`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `max_concurrent_sessions = -2`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
