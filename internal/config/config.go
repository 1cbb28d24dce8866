// Package config provides the configuration schema and loader for voxkit.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voxkit/voxkit/internal/audiosession"
	"github.com/voxkit/voxkit/pkg/types"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StorageBackend selects where settings persist.
type StorageBackend string

const (
	// StorageFile persists into a local JSON file.
	StorageFile StorageBackend = "file"

	// StoragePostgres persists into a PostgreSQL table.
	StoragePostgres StorageBackend = "postgres"
)

// IsValid reports whether b is a recognised storage backend.
func (b StorageBackend) IsValid() bool {
	return b == StorageFile || b == StoragePostgres
}

// Config is the root configuration structure for voxkit.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Live      LiveConfig      `yaml:"live"`
	Storage   StorageConfig   `yaml:"storage"`
	Recording RecordingConfig `yaml:"recording"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`
}

// BackendConfig holds the voice backend connection settings.
type BackendConfig struct {
	// BaseURL is the backend root (e.g., "https://api.example.com").
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates every request. Empty disables the auth header.
	APIKey string `yaml:"api_key"`

	// Timeout bounds each REST call. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// LiveConfig tunes the live transcription socket.
type LiveConfig struct {
	// Model selects the backend recognition model.
	Model string `yaml:"model"`

	// ChunkSize is the audio chunk size (bytes) sent over the socket.
	ChunkSize int `yaml:"chunk_size"`
}

// StorageConfig selects and configures the settings persistence backend.
type StorageConfig struct {
	// Backend is "file" or "postgres". Default: file.
	Backend StorageBackend `yaml:"backend"`

	// Path is the JSON file location for the file backend.
	Path string `yaml:"path"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// RecordingConfig sets the default capture parameters.
type RecordingConfig struct {
	// Format is mp3, wav or aac. Default: mp3.
	Format types.AudioFormat `yaml:"format"`

	// Quality is low, medium or high. Default: high.
	Quality audiosession.Quality `yaml:"quality"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	// ListenAddr is the address /metrics listens on. Empty disables it.
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageFile
	}
	if cfg.Storage.Backend == StorageFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = "voxkit-settings.json"
	}
	if cfg.Recording.Format == "" {
		cfg.Recording.Format = types.FormatMP3
	}
	if cfg.Recording.Quality == "" {
		cfg.Recording.Quality = audiosession.QualityHigh
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url must be set"))
	}
	if !cfg.Storage.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: file, postgres", cfg.Storage.Backend))
	}
	if cfg.Storage.Backend == StoragePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("storage.postgres_dsn must be set for the postgres backend"))
	}
	if !cfg.Recording.Quality.IsValid() {
		errs = append(errs, fmt.Errorf("recording.quality %q is invalid; valid values: low, medium, high", cfg.Recording.Quality))
	}
	switch cfg.Recording.Format {
	case types.FormatMP3, types.FormatWAV, types.FormatAAC:
	default:
		errs = append(errs, fmt.Errorf("recording.format %q is invalid; valid values: mp3, wav, aac", cfg.Recording.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
