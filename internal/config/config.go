// Package config loads the tool settings of fleetconf. Settings are optional:
// defaults apply unless a settings file or FLEETCONF_* environment variables
// override them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FLEETCONF_LOGGING_LEVEL.
const EnvPrefix = "FLEETCONF"

// PathEnv names the environment variable holding the settings file path.
const PathEnv = EnvPrefix + "_CONFIG"

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Labels  map[string]string `mapstructure:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Loki   LokiConfig `mapstructure:"loki"`
}

// TelemetryConfig controls the metrics textfile written at the end of a run.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// CollaboratorConfig bounds calls to the node binary.
type CollaboratorConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// PatchConfig controls how override files are patched.
type PatchConfig struct {
	// InsertMissing appends assignments for keys absent from a target file.
	InsertMissing bool `mapstructure:"insert_missing"`
}

// Settings is the root settings structure.
type Settings struct {
	Logging      LoggingConfig      `mapstructure:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Collaborator CollaboratorConfig `mapstructure:"collaborator"`
	Patch        PatchConfig        `mapstructure:"patch"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.loki.enabled", false)
	v.SetDefault("logging.loki.url", "")
	v.SetDefault("logging.loki.labels", map[string]string{})
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.textfile", "")
	v.SetDefault("collaborator.timeout", "30s")
	v.SetDefault("patch.insert_missing", false)
}

// Load reads the settings file at path (YAML) when path is not empty and
// applies environment overrides on top of the defaults.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate rejects settings that cannot be honoured.
func (s *Settings) Validate() error {
	if s.Collaborator.Timeout < 0 {
		return errors.New("collaborator.timeout must not be negative")
	}
	if s.Telemetry.Enabled && strings.TrimSpace(s.Telemetry.Textfile) == "" {
		return errors.New("telemetry.textfile is required when telemetry is enabled")
	}
	if s.Logging.Loki.Enabled && strings.TrimSpace(s.Logging.Loki.URL) == "" {
		return errors.New("logging.loki.url is required when loki is enabled")
	}
	return nil
}

// CollaboratorTimeout returns the bound for a single node binary call.
func (s *Settings) CollaboratorTimeout() time.Duration {
	if s == nil || s.Collaborator.Timeout <= 0 {
		return 30 * time.Second
	}
	return s.Collaborator.Timeout
}
