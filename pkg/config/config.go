// Package config loads the stream policy configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/catalog"
	"github.com/pion/logging"
	"gopkg.in/yaml.v3"
)

// Config represents the complete policy configuration.
type Config struct {
	Role       string           `yaml:"role"`
	Codecs     []CodecConfig    `yaml:"codecs"`
	Protection ProtectionConfig `yaml:"content_protection"`
	Streams    StreamsConfig    `yaml:"streams"`
	Feeder     FeederConfig     `yaml:"feeder"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CodecConfig enables one codec. Priority 0 keeps the codec's default.
type CodecConfig struct {
	Name     string `yaml:"name"`
	Priority int    `yaml:"priority"`
}

// ProtectionConfig contains SCMS-T settings.
type ProtectionConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Required    bool   `yaml:"required"`
	DefaultMode string `yaml:"default_mode"`
}

// StreamsConfig bounds the stream registry.
type StreamsConfig struct {
	MaxStreams int `yaml:"max_streams"`
}

// FeederConfig tunes drop handling on the data path.
type FeederConfig struct {
	QueueSize    int `yaml:"queue_size"`
	MaxLevel     int `yaml:"max_level"`
	RecoverAfter int `yaml:"recover_after"` // frames
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Scopes map[string]string `yaml:"scopes"`
}

// MetricsConfig contains the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Role: "source",
		Codecs: []CodecConfig{
			{Name: "aptx"},
			{Name: "aac"},
			{Name: "sbc"},
		},
		Protection: ProtectionConfig{DefaultMode: "copy_never"},
		Logging:    LoggingConfig{Level: "info"},
		Metrics:    MetricsConfig{Address: ":9100"},
	}
}

// Load reads and parses the configuration file. Fields absent from the
// file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := c.LocalType(); err != nil {
		return err
	}
	if len(c.Codecs) == 0 {
		return fmt.Errorf("codecs cannot be empty")
	}
	if _, err := c.Definitions(); err != nil {
		return fmt.Errorf("codecs: %w", err)
	}
	if _, err := c.Protection.Mode(); err != nil {
		return fmt.Errorf("content_protection: %w", err)
	}
	if c.Protection.Required && !c.Protection.Enabled {
		return fmt.Errorf("content_protection: required needs enabled")
	}
	if c.Streams.MaxStreams < 0 {
		return fmt.Errorf("streams: max_streams must not be negative, got %d", c.Streams.MaxStreams)
	}
	if c.Feeder.QueueSize < 0 || c.Feeder.MaxLevel < 0 || c.Feeder.RecoverAfter < 0 {
		return fmt.Errorf("feeder: values must not be negative")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	for scope, level := range c.Logging.Scopes {
		if _, err := parseLevel(level); err != nil {
			return fmt.Errorf("logging scope %s: %w", scope, err)
		}
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics: address cannot be empty when metrics are enabled")
	}
	return nil
}

// LocalType returns the local endpoint type the role selects.
func (c *Config) LocalType() (a2dp.SEPType, error) {
	switch strings.ToLower(c.Role) {
	case "source", "":
		return a2dp.SEPTypeSource, nil
	case "sink":
		return a2dp.SEPTypeSink, nil
	default:
		return 0, fmt.Errorf("role must be source or sink, got %q", c.Role)
	}
}

// codecIndices maps codec names to indices per role.
var codecIndices = map[a2dp.SEPType]map[string]a2dp.CodecIndex{
	a2dp.SEPTypeSource: {
		"sbc":  a2dp.CodecIndexSourceSBC,
		"aac":  a2dp.CodecIndexSourceAAC,
		"aptx": a2dp.CodecIndexSourceAptX,
	},
	a2dp.SEPTypeSink: {
		"sbc": a2dp.CodecIndexSinkSBC,
		"aac": a2dp.CodecIndexSinkAAC,
	},
}

// Definitions returns the catalog definitions for the enabled codecs.
func (c *Config) Definitions() ([]catalog.Definition, error) {
	sep, err := c.LocalType()
	if err != nil {
		return nil, err
	}

	defaults := make(map[a2dp.CodecIndex]int)
	for _, d := range catalog.DefaultDefinitions() {
		defaults[d.Codec.Index()] = d.Priority
	}

	seen := make(map[a2dp.CodecIndex]bool)
	defs := make([]catalog.Definition, 0, len(c.Codecs))
	for _, cc := range c.Codecs {
		idx, ok := codecIndices[sep][strings.ToLower(cc.Name)]
		if !ok {
			return nil, fmt.Errorf("codec %q not available for role %s", cc.Name, sep)
		}
		if seen[idx] {
			return nil, fmt.Errorf("codec %q listed twice", cc.Name)
		}
		seen[idx] = true

		codec, _ := a2dp.NewDefaultCodec(idx)
		prio := cc.Priority
		if prio == 0 {
			prio = defaults[idx]
		}
		defs = append(defs, catalog.Definition{Codec: codec, Priority: prio})
	}
	return defs, nil
}

// Indices returns the enabled codec indices in file order.
func (c *Config) Indices() []a2dp.CodecIndex {
	defs, err := c.Definitions()
	if err != nil {
		return nil
	}
	out := make([]a2dp.CodecIndex, len(defs))
	for i, d := range defs {
		out[i] = d.Codec.Index()
	}
	return out
}

// Mode returns the configured default copy-control mode.
func (p *ProtectionConfig) Mode() (a2dp.CopyMode, error) {
	switch strings.ToLower(p.DefaultMode) {
	case "", "copy_never":
		return a2dp.CopyNever, nil
	case "copy_once":
		return a2dp.CopyOnce, nil
	case "copy_free":
		return a2dp.CopyFree, nil
	default:
		return 0, fmt.Errorf("default_mode must be copy_free, copy_once or copy_never, got %q", p.DefaultMode)
	}
}

// LoggerFactory builds a pion logger factory at the configured levels.
func (l *LoggingConfig) LoggerFactory() *logging.DefaultLoggerFactory {
	f := logging.NewDefaultLoggerFactory()
	if level, err := parseLevel(l.Level); err == nil {
		f.DefaultLogLevel = level
	}
	for scope, s := range l.Scopes {
		if level, err := parseLevel(s); err == nil {
			f.ScopeLevels[scope] = level
		}
	}
	return f
}

func parseLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "info", "":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
