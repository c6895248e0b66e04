package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains WebSocket server configuration
type ServerConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
}

// HTTPConfig contains HTTP monitoring server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// AudioConfig contains audio capture parameters
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"` // Hz
	BlockSize  int `yaml:"block_size"`  // samples per capture block
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// PipelineConfig contains sliding-window transcription parameters
type PipelineConfig struct {
	WindowSeconds  float64 `yaml:"window_seconds"`  // buffer duration that triggers transcription
	OverlapSeconds float64 `yaml:"overlap_seconds"` // trailing context retained across windows
}

// TranscriptionConfig contains transcription backend configuration
type TranscriptionConfig struct {
	Backend     string `yaml:"backend"` // "whisper" or "stub"
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	Device      string `yaml:"device"`       // "cpu", "cuda" or "auto"
	ComputeType string `yaml:"compute_type"` // e.g. "float16", "int8"
	Language    string `yaml:"language"`
	BeamSize    int    `yaml:"beam_size"`
	Timeout     int    `yaml:"timeout"` // seconds
	MaxRetries  int    `yaml:"max_retries"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration matching the documented
// capture defaults (16 kHz mono, 4000-sample blocks, 5s/2s windowing,
// WebSocket on localhost:8765).
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress: "localhost",
			Port:        8765,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "localhost",
			Port:    8080,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			BlockSize:  4000,
			Channels:   1,
			BitDepth:   16,
		},
		Pipeline: PipelineConfig{
			WindowSeconds:  5.0,
			OverlapSeconds: 2.0,
		},
		Transcription: TranscriptionConfig{
			Backend:     "whisper",
			Endpoint:    "http://localhost:9000/transcribe",
			Model:       "medium",
			Device:      "cuda",
			ComputeType: "float16",
			Language:    "en",
			BeamSize:    5,
			Timeout:     60,
			MaxRetries:  2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file, applying environment
// overrides for secrets. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Secrets come from the environment when present
	if key := os.Getenv("TRANSCRIPTION_API_KEY"); key != "" {
		config.Transcription.APIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Pipeline.Validate(c.Audio.SampleRate); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates WebSocket server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", a.BlockSize)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates pipeline configuration against the capture rate
func (p *PipelineConfig) Validate(sampleRate int) error {
	if p.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive, got %f", p.WindowSeconds)
	}

	if p.OverlapSeconds < 0 {
		return fmt.Errorf("overlap_seconds cannot be negative, got %f", p.OverlapSeconds)
	}

	if p.OverlapSeconds >= p.WindowSeconds {
		return fmt.Errorf("overlap_seconds (%f) must be less than window_seconds (%f)",
			p.OverlapSeconds, p.WindowSeconds)
	}

	if int(p.WindowSeconds*float64(sampleRate)) == 0 {
		return fmt.Errorf("window_seconds too small for sample rate %d", sampleRate)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	validBackends := map[string]bool{"whisper": true, "stub": true}
	if !validBackends[t.Backend] {
		return fmt.Errorf("backend must be 'whisper' or 'stub', got '%s'", t.Backend)
	}

	if t.Backend == "whisper" && t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty for the whisper backend")
	}

	validDevices := map[string]bool{"cpu": true, "cuda": true, "auto": true}
	if !validDevices[t.Device] {
		return fmt.Errorf("device must be one of [cpu, cuda, auto], got '%s'", t.Device)
	}

	if t.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if t.BeamSize < 1 {
		return fmt.Errorf("beam_size must be at least 1, got %d", t.BeamSize)
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
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

// WindowSamples returns the transcription trigger threshold in samples
func (c *Config) WindowSamples() int {
	return int(c.Pipeline.WindowSeconds * float64(c.Audio.SampleRate))
}

// OverlapSamples returns the retained overlap in samples
func (c *Config) OverlapSamples() int {
	return int(c.Pipeline.OverlapSeconds * float64(c.Audio.SampleRate))
}

// BlockDuration returns the duration of one capture block
func (a *AudioConfig) BlockDuration() time.Duration {
	return time.Duration(float64(a.BlockSize) / float64(a.SampleRate) * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
