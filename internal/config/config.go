package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultLocalBackend = "http://localhost:8000"
	defaultStreamURL    = "http://192.168.1.244:8080/video"
	productionAPIPrefix = "/api"
)

// Config represents the full application configuration surface.
type Config struct {
	Backend BackendConfig
	Polling PollingConfig
	Stream  StreamConfig
	Server  ServerConfig
	Store   StoreConfig
	MongoDB MongoDBConfig
	Sheets  SheetsConfig
	Log     LogConfig
}

// BackendConfig describes how the console reaches the barcode backend.
type BackendConfig struct {
	// BaseURL is resolved once at load time and injected into every client.
	BaseURL        string
	Environment    string
	RequestTimeout time.Duration
}

// PollingConfig holds the refresh cadence of live screens.
type PollingConfig struct {
	ScanInterval time.Duration
}

// StreamConfig holds the camera stream defaults.
type StreamConfig struct {
	DefaultURL        string
	FireAndForgetStop bool
}

// ServerConfig holds HTTP server related options for the development backend.
type ServerConfig struct {
	Port string
}

// StoreConfig selects the development backend storage driver.
type StoreConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to export reports to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	ReportRange     string
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string
}

// Enabled reports whether report export is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	pollInterval, err := getenvDuration("LEITOR_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getenvDuration("LEITOR_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	fireAndForget, err := getenvBool("LEITOR_STOP_FIRE_AND_FORGET", false)
	if err != nil {
		return nil, err
	}

	environment := getenvWithDefault("APP_ENV", "development")

	cfg := &Config{
		Backend: BackendConfig{
			BaseURL:        ResolveBaseURL(os.Getenv("LEITOR_API_URL"), environment, os.Getenv("LEITOR_PUBLIC_ORIGIN")),
			Environment:    environment,
			RequestTimeout: requestTimeout,
		},
		Polling: PollingConfig{
			ScanInterval: pollInterval,
		},
		Stream: StreamConfig{
			DefaultURL:        getenvWithDefault("LEITOR_STREAM_URL", defaultStreamURL),
			FireAndForgetStop: fireAndForget,
		},
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8000"),
		},
		Store: StoreConfig{
			Driver: getenvWithDefault("STORE_DRIVER", "memory"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "leitor"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_REPORT_ID"),
			ReportRange:     getenvWithDefault("GOOGLE_SHEET_REPORT_RANGE", "Relatorio!A:C"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolveBaseURL picks the backend address. An explicit URL always wins;
// production deployments go through the public origin's /api prefix.
func ResolveBaseURL(explicit, environment, publicOrigin string) string {
	if explicit != "" {
		return strings.TrimSuffix(explicit, "/")
	}
	if strings.EqualFold(environment, "production") {
		return strings.TrimSuffix(publicOrigin, "/") + productionAPIPrefix
	}
	return defaultLocalBackend
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Backend.BaseURL == "" {
		return errors.New("LEITOR_API_URL must not be empty")
	}

	if strings.EqualFold(c.Backend.Environment, "production") && !strings.Contains(c.Backend.BaseURL, "://") {
		return errors.New("LEITOR_PUBLIC_ORIGIN must be provided in production")
	}

	if c.Backend.RequestTimeout <= 0 {
		return errors.New("LEITOR_REQUEST_TIMEOUT must be positive")
	}

	if c.Polling.ScanInterval <= 0 {
		return errors.New("LEITOR_POLL_INTERVAL must be positive")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case "memory":
	case "mongodb":
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided when STORE_DRIVER=mongodb")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must not be empty")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided with GOOGLE_SHEET_REPORT_ID")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}
