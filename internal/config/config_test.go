package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080", LogLevel: "info"},
		MongoDB: MongoDBConfig{URI: "mongodb://localhost:27017", DBName: "coopmetrics"},
		Analytics: AnalyticsConfig{
			ProductionDropFactor: 0.85,
			MortalityAbsolute:    20,
			MortalityFlockPct:    0.02,
			AttendanceRateMin:    0.7,
			StaleDays:            2,
			LateCredit:           1.0,
			MaxRangeDays:         730,
		},
		Scheduler: SchedulerConfig{ReportCron: "0 * * * *", AlertCron: "0 7 * * *", Timezone: "UTC"},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MONGODB_DB_NAME", "")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "coopmetrics", cfg.MongoDB.DBName)
	require.Equal(t, 0.85, cfg.Analytics.ProductionDropFactor)
	require.Equal(t, 1.0, cfg.Analytics.LateCredit)
	require.Equal(t, 730, cfg.Analytics.MaxRangeDays)
	require.Equal(t, "UTC", cfg.Scheduler.Timezone)
	require.False(t, cfg.Sheets.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ATTENDANCE_LATE_CREDIT", "0.5")
	t.Setenv("REPORT_MAX_RANGE_DAYS", "365")
	t.Setenv("ALERT_MORTALITY_ABSOLUTE", "50")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 0.5, cfg.Analytics.LateCredit)
	require.Equal(t, 365, cfg.Analytics.MaxRangeDays)
	require.Equal(t, 50, cfg.Analytics.MortalityAbsolute)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := validConfig()
	cfg.Analytics.ProductionDropFactor = 1.5
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Analytics.LateCredit = -0.1
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Analytics.StaleDays = 0
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Analytics.MaxRangeDays = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresSpreadsheetWhenSheetsEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Sheets = SheetsConfig{Enabled: true, CredentialsPath: "/tmp/creds.json"}
	require.Error(t, cfg.Validate())

	cfg.Sheets.SpreadsheetID = "sheet-id"
	require.NoError(t, cfg.Validate())
}
