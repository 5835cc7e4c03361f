package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/subedit/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// HTTP Configuration:
// - HTTP_ADDR: Listen address (default: :8080)
// - HTTP_SHUTDOWN_TIMEOUT: Graceful shutdown timeout (default: 10s)
// - UI_STATIC_DIR: Built editor UI served at / (default: /app/web)
// - UI_ENABLED: Serve the editor UI (default: true)
//
// Storage Configuration:
// - DB_PATH: SQLite database path (default: /app/data/subedit.db)
// - AUTOSAVE_WORKERS: Autosave worker count (default: 1)
//
// Backend Configuration:
// - BACKEND_URL: Video backend base URL (default: http://localhost:8000)
// - BACKEND_TOKEN: Bearer token for the backend (optional)
// - BACKEND_TIMEOUT: Request timeout (default: 30s)
//
// Editing Configuration:
// - HISTORY_MAX_SIZE: Undo/redo log size per session (default: 50)
// - SESSION_IDLE_TTL: Idle time before a session is closed (default: 2h)
// - SESSION_SWEEP_CRON: Cron expression of the idle sweep (default: */10 * * * *)
// - SRT_STRICT: Drop SRT blocks with a non-numeric index (default: false)
//
// Logging Configuration:
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - LOG_PRETTY: Coloured console output instead of JSON (default: false)
type Config struct {
	HTTP    HTTPConfig    `json:"http"`
	Storage StorageConfig `json:"storage"`
	Backend BackendConfig `json:"backend"`
	Editor  EditorConfig  `json:"editor"`
	Log     LogConfig     `json:"log"`
}

type HTTPConfig struct {
	Addr            string        `json:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	UIStaticDir     string        `json:"ui_static_dir"`
	UIEnabled       bool          `json:"ui_enabled"`
}

type StorageConfig struct {
	DBPath          string `json:"db_path"`
	AutosaveWorkers int    `json:"autosave_workers"`
}

// BackendConfig holds the configuration of the video backend serving SRT tracks
type BackendConfig struct {
	URL     string        `json:"url"`
	Token   string        `json:"-"`
	Timeout time.Duration `json:"timeout"`
}

type EditorConfig struct {
	HistoryMaxSize int           `json:"history_max_size"`
	IdleTTL        time.Duration `json:"idle_ttl"`
	SweepCron      string        `json:"sweep_cron"`
	StrictParsing  bool          `json:"strict_parsing"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		HTTP: HTTPConfig{
			Addr:            getEnvString("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			UIStaticDir:     getEnvString("UI_STATIC_DIR", "/app/web"),
			UIEnabled:       getEnvBool("UI_ENABLED", true),
		},
		Storage: StorageConfig{
			DBPath:          getEnvString("DB_PATH", "/app/data/subedit.db"),
			AutosaveWorkers: getEnvInt("AUTOSAVE_WORKERS", 1),
		},
		Backend: BackendConfig{
			URL:     getEnvString("BACKEND_URL", "http://localhost:8000"),
			Token:   getEnvString("BACKEND_TOKEN", ""),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 30*time.Second),
		},
		Editor: EditorConfig{
			HistoryMaxSize: getEnvInt("HISTORY_MAX_SIZE", 50),
			IdleTTL:        getEnvDuration("SESSION_IDLE_TTL", 2*time.Hour),
			SweepCron:      getEnvString("SESSION_SWEEP_CRON", "*/10 * * * *"),
			StrictParsing:  getEnvBool("SRT_STRICT", false),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", *config)
	return config, nil
}

// WithDBPath overrides the database path
func WithDBPath(path string) Option {
	return func(c *Config) {
		if strings.TrimSpace(path) != "" {
			c.Storage.DBPath = path
		}
	}
}

// WithAddr overrides the listen address
func WithAddr(addr string) Option {
	return func(c *Config) {
		if strings.TrimSpace(addr) != "" {
			c.HTTP.Addr = addr
		}
	}
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if strings.TrimSpace(c.Storage.DBPath) == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if err := validateBackendURL(c.Backend.URL); err != nil {
		return fmt.Errorf("BACKEND_URL: %w", err)
	}
	if c.Editor.HistoryMaxSize <= 0 {
		return fmt.Errorf("HISTORY_MAX_SIZE must be positive, got %d", c.Editor.HistoryMaxSize)
	}
	if c.Editor.IdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", c.Editor.IdleTTL)
	}
	if _, err := cron.ParseStandard(c.Editor.SweepCron); err != nil {
		return fmt.Errorf("invalid SESSION_SWEEP_CRON: %w", err)
	}
	return nil
}

func validateBackendURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
