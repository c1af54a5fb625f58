package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Analytics AnalyticsConfig
	Scheduler SchedulerConfig
	Notifier  NotifierConfig
	Sheets    SheetsConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// AnalyticsConfig carries the thresholds driving aggregation and alert
// classification.
type AnalyticsConfig struct {
	// ProductionDropFactor fires an alert when a day's total falls below
	// the rolling 7-day average multiplied by this factor.
	ProductionDropFactor float64
	// MortalityAbsolute is the per-day death count that always fires.
	MortalityAbsolute int
	// MortalityFlockPct fires when daily deaths exceed this fraction of the
	// opening flock.
	MortalityFlockPct float64
	// AttendanceRateMin is the daily attendance rate floor.
	AttendanceRateMin float64
	// StaleDays is how many consecutive missing days mark a shed stale.
	StaleDays int
	// LateCredit is the attendance credit a late worker earns, in [0,1].
	LateCredit float64
	// MaxRangeDays caps report and aggregation date ranges.
	MaxRangeDays int
}

// SchedulerConfig holds cron specs for the periodic triggers.
type SchedulerConfig struct {
	ReportCron string
	AlertCron  string
	Timezone   string
}

// NotifierConfig holds delivery webhook client options.
type NotifierConfig struct {
	AuthToken      string
	TimeoutSeconds int
}

// SheetsConfig contains configuration for the Google Sheets report export.
type SheetsConfig struct {
	Enabled         bool
	CredentialsPath string
	SpreadsheetID   string
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

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "coopmetrics"),
		},
		Analytics: AnalyticsConfig{
			ProductionDropFactor: getenvFloat("ALERT_PRODUCTION_DROP_FACTOR", 0.85),
			MortalityAbsolute:    getenvInt("ALERT_MORTALITY_ABSOLUTE", 20),
			MortalityFlockPct:    getenvFloat("ALERT_MORTALITY_FLOCK_PCT", 0.02),
			AttendanceRateMin:    getenvFloat("ALERT_ATTENDANCE_RATE_MIN", 0.7),
			StaleDays:            getenvInt("ALERT_STALE_DAYS", 2),
			LateCredit:           getenvFloat("ATTENDANCE_LATE_CREDIT", 1.0),
			MaxRangeDays:         getenvInt("REPORT_MAX_RANGE_DAYS", 730),
		},
		Scheduler: SchedulerConfig{
			ReportCron: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 * * * *"),
			AlertCron:  getenvWithDefault("ALERT_CRON_SCHEDULE", "0 7 * * *"),
			Timezone:   getenvWithDefault("TIMEZONE", "UTC"),
		},
		Notifier: NotifierConfig{
			AuthToken:      os.Getenv("NOTIFIER_AUTH_TOKEN"),
			TimeoutSeconds: getenvInt("NOTIFIER_TIMEOUT_SECONDS", 15),
		},
		Sheets: SheetsConfig{
			Enabled:         os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH") != "",
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_EXPORT_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and the
// thresholds are within sane bounds.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	a := c.Analytics
	switch {
	case a.ProductionDropFactor <= 0 || a.ProductionDropFactor >= 1:
		return errors.New("ALERT_PRODUCTION_DROP_FACTOR must be in (0,1)")
	case a.MortalityAbsolute <= 0:
		return errors.New("ALERT_MORTALITY_ABSOLUTE must be positive")
	case a.MortalityFlockPct <= 0 || a.MortalityFlockPct >= 1:
		return errors.New("ALERT_MORTALITY_FLOCK_PCT must be in (0,1)")
	case a.AttendanceRateMin <= 0 || a.AttendanceRateMin > 1:
		return errors.New("ALERT_ATTENDANCE_RATE_MIN must be in (0,1]")
	case a.StaleDays < 1:
		return errors.New("ALERT_STALE_DAYS must be at least 1")
	case a.LateCredit < 0 || a.LateCredit > 1:
		return errors.New("ATTENDANCE_LATE_CREDIT must be in [0,1]")
	case a.MaxRangeDays < 1:
		return errors.New("REPORT_MAX_RANGE_DAYS must be positive")
	}

	if c.Scheduler.ReportCron == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if c.Scheduler.AlertCron == "" {
		return errors.New("ALERT_CRON_SCHEDULE must be provided")
	}
	if c.Scheduler.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.Sheets.Enabled && c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_EXPORT_ID must be provided when sheets export is enabled")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
