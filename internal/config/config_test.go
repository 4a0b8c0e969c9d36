package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", settings.Logging.Level)
	require.Equal(t, "text", settings.Logging.Format)
	require.False(t, settings.Logging.Loki.Enabled)
	require.False(t, settings.Telemetry.Enabled)
	require.False(t, settings.Patch.InsertMissing)
	require.Equal(t, 30*time.Second, settings.CollaboratorTimeout())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetconf.yaml")
	content := `logging:
  level: debug
  format: json
  loki:
    enabled: true
    url: http://loki:3100/loki/api/v1/push
    labels:
      app: fleetconf
      env: testnet
telemetry:
  enabled: true
  textfile: /var/lib/node_exporter/fleetconf.prom
collaborator:
  timeout: 5s
patch:
  insert_missing: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	settings, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", settings.Logging.Level)
	require.Equal(t, "json", settings.Logging.Format)
	require.True(t, settings.Logging.Loki.Enabled)
	require.Equal(t, map[string]string{"app": "fleetconf", "env": "testnet"}, settings.Logging.Loki.Labels)
	require.Equal(t, "/var/lib/node_exporter/fleetconf.prom", settings.Telemetry.Textfile)
	require.Equal(t, 5*time.Second, settings.CollaboratorTimeout())
	require.True(t, settings.Patch.InsertMissing)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FLEETCONF_LOGGING_LEVEL", "warn")
	t.Setenv("FLEETCONF_COLLABORATOR_TIMEOUT", "2m")

	settings, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "warn", settings.Logging.Level)
	require.Equal(t, 2*time.Minute, settings.CollaboratorTimeout())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.Error(t, (&Settings{Telemetry: TelemetryConfig{Enabled: true}}).Validate())
	require.Error(t, (&Settings{Logging: LoggingConfig{Loki: LokiConfig{Enabled: true}}}).Validate())
	require.Error(t, (&Settings{Collaborator: CollaboratorConfig{Timeout: -time.Second}}).Validate())
	require.NoError(t, (&Settings{}).Validate())
}
