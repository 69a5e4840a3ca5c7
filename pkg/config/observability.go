package config

import (
	"errors"
	"fmt"
	"strings"

	internalcommon "github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
)

// LoggingConfig sets a default level and optional per-component overrides.
type LoggingConfig struct {
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"` //nolint:lll

	// Development switches to the colored console encoder with stack traces.
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels is keyed by component: scheduler, chain-log, ingestor, materializer,
	// lockup-correlator, property-balance, contracts, rpc, maintenance, metrics.
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" && !knownLevel(l.DefaultLevel) {
		return fmt.Errorf("default_level: %q is not one of debug, info, warn, error", l.DefaultLevel)
	}

	for component, level := range l.ComponentLevels {
		if _, ok := internalcommon.AllComponents[normalizeLevel(component)]; !ok {
			return fmt.Errorf("component_levels: unknown component '%s'", component)
		}
		if !knownLevel(level) {
			return fmt.Errorf("component_levels[%s]: %q is not one of debug, info, warn, error", component, level)
		}
	}

	return nil
}

// GetComponentLevel returns the level configured for component, or the default level.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return normalizeLevel(level)
	}

	return l.GetDefaultLevel()
}

func (l *LoggingConfig) GetDefaultLevel() string {
	return normalizeLevel(l.DefaultLevel)
}

func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

func normalizeLevel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func knownLevel(level string) bool {
	_, ok := logger.ValidLogLevels[normalizeLevel(level)]
	return ok
}

// MetricsConfig exposes Prometheus metrics, /health and /status over HTTP.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address" jsonschema:"default=:9090"`
	Path          string `yaml:"path" json:"path" toml:"path" jsonschema:"default=/metrics"`
}

func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}

	switch {
	case m.ListenAddress == "":
		return errors.New("listen_address is required when metrics are enabled")
	case !strings.HasPrefix(m.Path, "/"):
		return errors.New("path must start with '/'")
	case m.Path == "/health" || m.Path == "/status":
		return fmt.Errorf("path %s is reserved", m.Path)
	}

	return nil
}
