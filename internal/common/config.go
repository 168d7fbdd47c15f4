package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Worker      WorkerConfig    `toml:"worker"`
	Watchdog    WatchdogConfig  `toml:"watchdog"`
	Templates   TemplatesConfig `toml:"templates"`
	Ingest      IngestConfig    `toml:"ingest"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Libraries   []LibraryConfig `toml:"libraries"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// WorkerConfig describes the external transformation/transcription worker.
type WorkerConfig struct {
	BaseURL          string        `toml:"base_url" validate:"required,url"`
	TransformTimeout time.Duration `toml:"transform_timeout"` // Timeout for template transform calls (default 10m)
	RatePerSecond    float64       `toml:"rate_per_second"`   // Transform call rate limit (default 2)
	InternalSecret   string        `toml:"internal_secret"`   // Server-side secret for the internal test bypass
}

// WatchdogConfig controls per-job idle timeout enforcement.
type WatchdogConfig struct {
	Timeout time.Duration `toml:"timeout"` // Job fails when no progress arrives within this window (default 240s)
}

// TemplatesConfig controls template selection for the metadata phase.
type TemplatesConfig struct {
	FolderName  string `toml:"folder_name"`  // Folder at library root (default "templates")
	DefaultName string `toml:"default_name"` // Default template file (default "standard.md")
}

// IngestConfig controls the vector-store ingestion trigger.
type IngestConfig struct {
	Enabled bool          `toml:"enabled"`
	Timeout time.Duration `toml:"timeout"` // Trigger call timeout (default 2m)
}

// SchedulerConfig controls background maintenance sweeps.
type SchedulerConfig struct {
	Enabled       bool   `toml:"enabled"`
	SweepSchedule string `toml:"sweep_schedule"` // Cron format (default "*/5 * * * *")
	RetentionDays int    `toml:"retention_days"` // Terminal job retention (default 30)
}

// LibraryConfig describes one document library and where its derived artifacts live.
type LibraryConfig struct {
	ID              string `toml:"id" validate:"required"`
	Name            string `toml:"name"`
	Root            string `toml:"root"`             // Filesystem root for the local storage provider
	ArtifactBackend string `toml:"artifact_backend"` // "filesystem" or "document"
}

// DefaultConfig returns a config populated with defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8311,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/scribe",
			},
		},
		Worker: WorkerConfig{
			BaseURL:          "http://localhost:8000",
			TransformTimeout: 10 * time.Minute,
			RatePerSecond:    2,
		},
		Watchdog: WatchdogConfig{
			Timeout: 240 * time.Second,
		},
		Templates: TemplatesConfig{
			FolderName:  "templates",
			DefaultName: "standard.md",
		},
		Ingest: IngestConfig{
			Enabled: true,
			Timeout: 2 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			SweepSchedule: "*/5 * * * *",
			RetentionDays: 30,
		},
	}
}

// LoadConfig loads configuration from defaults, then the given TOML files in
// order (later files override earlier ones), then environment variables.
func LoadConfig(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for structural problems
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]bool)
	for _, lib := range c.Libraries {
		if seen[lib.ID] {
			return fmt.Errorf("invalid configuration: duplicate library id %q", lib.ID)
		}
		seen[lib.ID] = true

		switch lib.ArtifactBackend {
		case "", "filesystem", "document":
		default:
			return fmt.Errorf("invalid configuration: library %q has unknown artifact_backend %q", lib.ID, lib.ArtifactBackend)
		}
	}

	if c.Watchdog.Timeout <= 0 {
		return fmt.Errorf("invalid configuration: watchdog timeout must be positive")
	}

	return nil
}

// applyEnvOverrides applies SCRIBE_* environment variables on top of the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCRIBE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCRIBE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SCRIBE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SCRIBE_WORKER_URL"); v != "" {
		cfg.Worker.BaseURL = v
	}
	if v := os.Getenv("SCRIBE_INTERNAL_SECRET"); v != "" {
		cfg.Worker.InternalSecret = v
	}
	if v := os.Getenv("SCRIBE_BADGER_PATH"); v != "" {
		cfg.Storage.Badger.Path = v
	}
}

// Library returns the library config for the given id, or nil if unknown
func (c *Config) Library(id string) *LibraryConfig {
	for i := range c.Libraries {
		if c.Libraries[i].ID == id {
			return &c.Libraries[i]
		}
	}
	return nil
}
