package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // FORECAST_TIMEZONE must resolve in minimal containers

	"apdash/internal/logger"
)

// Ledger source kinds
const (
	SourceSheets = "sheets" // Google Sheets API with service-account credentials
	SourceCSV    = "csv"    // public CSV export of a Google Sheet
	SourceFile   = "file"   // local CSV file
)

type Config struct {
	// Ledger Source Configuration
	LedgerSource         string
	GoogleSheetURL       string
	GoogleSheetWorksheet string
	LedgerFile           string
	LedgerCacheTTL       time.Duration
	FetchTimeout         time.Duration

	// Report Configuration
	ForecastTimezone string
	DepartmentOrder  []string
	PublishWorksheet string

	// Server Configuration
	HTTPPort        int
	RefreshSchedule string
	DevMode         bool

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// DefaultDepartmentOrder is the display order of the store's departments.
var DefaultDepartmentOrder = []string{"杂货", "菜部", "冻部", "肉部", "鱼部", "厨房", "牛奶生鲜", "酒水", "面包"}

func Load() (*Config, error) {
	config := &Config{
		LedgerSource:         strings.ToLower(getEnv("LEDGER_SOURCE", SourceCSV)),
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Ledger"),
		LedgerFile:           getEnv("LEDGER_FILE", ""),
		ForecastTimezone:     getEnv("FORECAST_TIMEZONE", "America/Toronto"),
		PublishWorksheet:     getEnv("PUBLISH_WORKSHEET", "Forecast"),
		RefreshSchedule:      getEnv("REFRESH_SCHEDULE", "@every 1h"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
		DepartmentOrder:      getList("DEPARTMENT_ORDER", DefaultDepartmentOrder),
	}

	var err error
	if config.LedgerCacheTTL, err = getDuration("LEDGER_CACHE_TTL", time.Hour); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.FetchTimeout, err = getDuration("LEDGER_FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.HTTPPort, err = getInt("HTTP_PORT", 8080); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.DevMode, err = getBool("DEV_MODE", false); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.LedgerSource {
	case SourceSheets, SourceCSV:
		if c.GoogleSheetURL == "" {
			return fmt.Errorf("GOOGLE_SHEET_URL is required for LEDGER_SOURCE=%s", c.LedgerSource)
		}
	case SourceFile:
		if c.LedgerFile == "" {
			return fmt.Errorf("LEDGER_FILE is required for LEDGER_SOURCE=file")
		}
	default:
		return fmt.Errorf("LEDGER_SOURCE must be one of sheets, csv, file (got %q)", c.LedgerSource)
	}
	if c.LedgerSource == SourceSheets && c.GoogleSheetWorksheet == "" {
		return fmt.Errorf("GOOGLE_SHEET_WORKSHEET is required for LEDGER_SOURCE=sheets")
	}
	if c.LedgerCacheTTL < 0 {
		return fmt.Errorf("LEDGER_CACHE_TTL must not be negative")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort)
	}
	if _, err := time.LoadLocation(c.ForecastTimezone); err != nil {
		return fmt.Errorf("FORECAST_TIMEZONE is invalid: %w", err)
	}
	return nil
}

// Location returns the time zone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ForecastTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
