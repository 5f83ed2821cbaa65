package core

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/pipeline"
	"github.com/jo-hoe/gopix/internal/store"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = 8080
	defaultMaxUploadSize = "10M"
	defaultQuality       = 80
)

// StepConfig represents a pipeline step: its name plus inline parameters
type StepConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

// PresetConfig is a named pipeline with its output encoding. An omitted
// quality means defaultQuality; 0 is a valid, lowest quality.
type PresetConfig struct {
	Name    string       `yaml:"name"`
	Format  string       `yaml:"format"`
	Quality *int         `yaml:"quality"`
	Steps   []StepConfig `yaml:"steps"`
}

// OutputQuality returns the configured quality or defaultQuality.
func (p PresetConfig) OutputQuality() int {
	if p.Quality == nil {
		return defaultQuality
	}
	return *p.Quality
}

type ServiceConfig struct {
	Port          int            `yaml:"port"`
	LogLevel      string         `yaml:"logLevel"`
	Backend       string         `yaml:"backend"`
	MaxUploadSize string         `yaml:"maxUploadSize"`
	Store         store.Config   `yaml:"store"`
	Presets       []PresetConfig `yaml:"presets"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultConfig is used when no configuration file is given.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{}
	config.applyDefaults()
	return config
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Backend == "" {
		c.Backend = "auto"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = defaultMaxUploadSize
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
}

// Validate checks the whole configuration
func (c *ServiceConfig) Validate() error {
	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains(store.Types, c.Store.Type) {
		return fmt.Errorf("invalid store type %q (must be one of %s)", c.Store.Type, strings.Join(store.Types, ", "))
	}
	if err := validatePresets(c.Presets); err != nil {
		return fmt.Errorf("invalid preset configuration: %w", err)
	}
	return nil
}

// MaxUploadBytes parses MaxUploadSize ("10M", "512K").
func (c *ServiceConfig) MaxUploadBytes() (uint64, error) {
	n, err := bytefmt.ToBytes(c.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid maxUploadSize %q: %w", c.MaxUploadSize, err)
	}
	return n, nil
}

// ParseLogLevel maps the configured level name to a slog level; empty means info.
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid logLevel %q: %w", level, err)
	}
	return l, nil
}

// validatePresets ensures all preset configurations have required fields
func validatePresets(presets []PresetConfig) error {
	seenNames := make(map[string]bool)

	for i, preset := range presets {
		if preset.Name == "" {
			return fmt.Errorf("preset at index %d has empty name", i)
		}
		if seenNames[preset.Name] {
			return fmt.Errorf("duplicate preset name: %s", preset.Name)
		}
		seenNames[preset.Name] = true

		if q := preset.OutputQuality(); q < 0 || q > 100 {
			return fmt.Errorf("preset %s: quality must be within [0, 100], got %d", preset.Name, q)
		}
		if preset.Format != "" {
			if _, ok := imagekit.ParseFormat(preset.Format); !ok {
				return fmt.Errorf("preset %s: unknown format %q", preset.Name, preset.Format)
			}
		}
		for j, step := range preset.Steps {
			if _, ok := pipeline.DefaultRegistry.Lookup(step.Name); !ok {
				return fmt.Errorf("preset %s: step at index %d has unknown name %q (available: %s)",
					preset.Name, j, step.Name, strings.Join(pipeline.DefaultRegistry.Names(), ", "))
			}
		}
	}

	return nil
}

func (p PresetConfig) stepConfigs() []pipeline.StepConfig {
	configs := make([]pipeline.StepConfig, len(p.Steps))
	for i, step := range p.Steps {
		configs[i] = pipeline.StepConfig{Name: step.Name, Params: step.Params}
	}
	return configs
}
