package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"budgetdash/internal/core"
)

type Config struct {
	// Dashboard
	Port           string        `koanf:"port"`
	Source         string        `koanf:"source"`
	Endpoint       string        `koanf:"endpoint"`
	MonthlyBudget  string        `koanf:"budget"`
	CurrencySymbol string        `koanf:"currency"`
	RemoteTimeout  time.Duration `koanf:"remote_timeout"`

	LogLevel string `koanf:"log_level"`

	// Expense store
	StorePort    string `koanf:"store_port"`
	DataBackend  string `koanf:"backend"`
	SQLiteDBPath string `koanf:"sqlite_path"`
	DataDir      string `koanf:"data_dir"`

	// AMQP
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`
	AMQPQueue    string `koanf:"amqp_queue"`

	// Google Sheets
	GoogleSpreadsheetID       string        `koanf:"google_spreadsheet_id"`
	GoogleSheetName           string        `koanf:"google_sheet_name"`
	GoogleServiceAccountJSON  string        `koanf:"google_service_account_json"`
	GoogleServiceAccountFile  string        `koanf:"google_service_account_file"`
	GoogleApplicationCredFile string        `koanf:"google_application_credentials"`
	SheetsCacheTTL            time.Duration `koanf:"sheets_cache_ttl"`

	// Worker
	SyncInterval time.Duration `koanf:"sync_interval"`
}

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// envKeys maps environment variables onto configuration keys.
var envKeys = map[string]string{
	"PORT":                           "port",
	"DASHBOARD_SOURCE":               "source",
	"EXPENSES_ENDPOINT":              "endpoint",
	"MONTHLY_BUDGET":                 "budget",
	"CURRENCY_SYMBOL":                "currency",
	"REMOTE_TIMEOUT":                 "remote_timeout",
	"LOG_LEVEL":                      "log_level",
	"STORE_PORT":                     "store_port",
	"DATA_BACKEND":                   "backend",
	"SQLITE_DB_PATH":                 "sqlite_path",
	"DATA_DIR":                       "data_dir",
	"AMQP_URL":                       "amqp_url",
	"AMQP_EXCHANGE":                  "amqp_exchange",
	"AMQP_QUEUE":                     "amqp_queue",
	"GOOGLE_SPREADSHEET_ID":          "google_spreadsheet_id",
	"GOOGLE_SHEET_NAME":              "google_sheet_name",
	"GOOGLE_SERVICE_ACCOUNT_JSON":    "google_service_account_json",
	"GOOGLE_SERVICE_ACCOUNT_FILE":    "google_service_account_file",
	"GOOGLE_APPLICATION_CREDENTIALS": "google_application_credentials",
	"SHEETS_CACHE_TTL":               "sheets_cache_ttl",
	"SYNC_INTERVAL":                  "sync_interval",
}

// Defaults returns the configuration used when nothing else is provided.
func Defaults() Config {
	return Config{
		Port:           "8081",
		Source:         SourceRemote,
		Endpoint:       "http://localhost:8082/",
		MonthlyBudget:  "25000.00",
		CurrencySymbol: "₹",
		RemoteTimeout:  15 * time.Second,
		LogLevel:       "info",

		StorePort:    "8082",
		DataBackend:  "memory",
		SQLiteDBPath: "./data/expenses.db",
		DataDir:      "data",

		AMQPExchange: "expenses",
		AMQPQueue:    "expense_changes",

		GoogleSheetName: "Expenses",
		SheetsCacheTTL:  30 * time.Second,

		SyncInterval: 30 * time.Second,
	}
}

// LoadEnvFile loads a .env file for local development. A missing file is fine.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load layers defaults, an optional YAML file and the environment, in that order.
// The YAML path comes from CONFIG_FILE and defaults to config.yaml.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit YAML path.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			mapped, ok := envKeys[key]
			if !ok || value == "" {
				return "", nil
			}
			return mapped, value
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Budget parses the configured monthly budget.
func (c *Config) Budget() (core.Money, error) {
	cents, err := core.ParseDecimalToCents(c.MonthlyBudget)
	if err != nil {
		return core.Money{}, fmt.Errorf("invalid monthly budget %q: %w", c.MonthlyBudget, err)
	}
	if cents <= 0 {
		return core.Money{}, fmt.Errorf("invalid monthly budget %q: must be greater than zero", c.MonthlyBudget)
	}
	return core.Money{Cents: cents}, nil
}

// Validate checks the dashboard settings and returns every problem at once.
func (c *Config) Validate() error {
	var errs []string

	errs = appendPortError(errs, "port", c.Port)

	if _, err := c.Budget(); err != nil {
		errs = append(errs, err.Error())
	}

	if strings.TrimSpace(c.CurrencySymbol) == "" {
		errs = append(errs, "currency symbol cannot be empty")
	}

	if c.RemoteTimeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid remote timeout %v: must not be negative", c.RemoteTimeout))
	}

	switch c.Source {
	case SourceRemote:
		if u, err := url.Parse(c.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid expenses endpoint '%s': must be an absolute http(s) URL", c.Endpoint))
		}
	case SourceLocal:
		errs = append(errs, c.backendErrors()...)
	default:
		errs = append(errs, fmt.Sprintf("invalid dashboard source '%s': must be one of [%s %s]", c.Source, SourceRemote, SourceLocal))
	}

	return combine(errs)
}

// ValidateStore checks the settings used by the expense store endpoint.
func (c *Config) ValidateStore() error {
	var errs []string
	errs = appendPortError(errs, "store port", c.StorePort)
	errs = append(errs, c.backendErrors()...)
	errs = append(errs, c.amqpErrors()...)
	return combine(errs)
}

// ValidateWorker checks the settings used by the sync worker.
func (c *Config) ValidateWorker() error {
	var errs []string
	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP URL is required for the sync worker")
	}
	errs = append(errs, c.amqpErrors()...)
	errs = append(errs, c.sheetsErrors()...)
	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	return combine(errs)
}

func (c *Config) backendErrors() []string {
	var errs []string
	validBackends := []string{"memory", "sqlite", "sheets"}
	if !slices.Contains(validBackends, c.DataBackend) {
		return append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "sheets":
		errs = append(errs, c.sheetsErrors()...)
	}
	return errs
}

func (c *Config) sheetsErrors() []string {
	var errs []string
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required when using sheets")
	}
	if c.GoogleSheetName == "" {
		errs = append(errs, "Google Sheet name is required when using sheets")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredFile == "" {
		errs = append(errs, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided")
	}
	if c.SheetsCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid sheets cache TTL %v: must not be negative", c.SheetsCacheTTL))
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errs
}

func (c *Config) amqpErrors() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errs []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errs
}

func appendPortError(errs []string, name, value string) []string {
	if port, err := strconv.Atoi(value); err != nil {
		return append(errs, fmt.Sprintf("invalid %s '%s': must be a number", name, value))
	} else if port < 1 || port > 65535 {
		return append(errs, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port))
	}
	return errs
}

func combine(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
