package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Audio   AudioConfig   `yaml:"audio"`
	AI      AIConfig      `yaml:"ai"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// AudioConfig contains the fixed audio encoding parameters assumed for
// uploaded recordings
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// AIConfig contains the optional AI provider configuration. Both providers
// must be configured for the AI pipeline; otherwise the service runs in
// simulation mode.
type AIConfig struct {
	Speech      ProviderConfig `yaml:"speech"`
	Translate   ProviderConfig `yaml:"translate"`
	CallTimeout int            `yaml:"call_timeout"` // seconds
}

// ProviderConfig contains one external provider's endpoint and credentials
type ProviderConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// StorageConfig contains record storage configuration
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for intake recordings, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono) for intake recordings, got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16 for intake recordings, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates AI configuration
func (a *AIConfig) Validate() error {
	if a.CallTimeout < 0 {
		return fmt.Errorf("call_timeout cannot be negative, got %d", a.CallTimeout)
	}

	if err := a.Speech.Validate(); err != nil {
		return fmt.Errorf("speech provider: %w", err)
	}

	if err := a.Translate.Validate(); err != nil {
		return fmt.Errorf("translate provider: %w", err)
	}

	// Partial credentials are almost certainly a deployment mistake.
	if a.Speech.Configured() != a.Translate.Configured() {
		return fmt.Errorf("speech and translate providers must be configured together")
	}

	return nil
}

// Validate validates a single provider configuration
func (p *ProviderConfig) Validate() error {
	if p.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %d", p.Timeout)
	}

	return nil
}

// Configured reports whether the provider has both an endpoint and a key
func (p *ProviderConfig) Configured() bool {
	return p.Endpoint != "" && p.APIKey != ""
}

// Configured reports whether the full AI pipeline is available
func (a *AIConfig) Configured() bool {
	return a.Speech.Configured() && a.Translate.Configured()
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the provider timeout as a time.Duration
func (p *ProviderConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

// GetCallTimeoutDuration returns the per-call pipeline timeout as a time.Duration
func (a *AIConfig) GetCallTimeoutDuration() time.Duration {
	return time.Duration(a.CallTimeout) * time.Second
}
