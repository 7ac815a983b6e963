package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Run modes.
const (
	RunModeOnce  = "once"
	RunModeServe = "serve"
)

type Config struct {
	LogLevel    string
	RunMode     string
	RunInterval time.Duration
	AdminPort   string

	DBPath string

	WCLClientID     string
	WCLClientSecret string
	WCLAPIURL       string
	WCLTokenURL     string

	SpreadsheetID    string
	SheetsCredsFile  string
	ReportsTab       string
	RosterMapTab     string
	TeamRosterTab    string
	OverridesTab     string
	NightQATab       string
	BenchNightsTab   string
	BenchWeeksTab    string
	BenchRankingsTab string

	Timezone string
	Location *time.Location

	// Engine knobs. Window bounds are minute offsets from the night's first
	// boss pull; the break band is the accepted break duration in minutes.
	BreakWindowStartMin int
	BreakWindowEndMin   int
	MinBreakMin         int
	MaxBreakMin         int
	RoundToleranceMs    int64

	ResetWeekday time.Weekday
	ResetHour    int
	ResetMinute  int

	CacheDir      string
	CacheTTLShort time.Duration
	CacheTTLLong  time.Duration
}

// Load reads configuration from the environment. It takes no logger so the
// process logger can be built from Config.LogLevel afterwards.
func Load() (*Config, error) {
	// .env is optional; without one the plain environment applies.
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RunMode:     getEnv("RUN_MODE", RunModeOnce),
		RunInterval: getEnvDuration("RUN_INTERVAL", 30*time.Minute),
		AdminPort:   getEnv("ADMIN_PORT", "8080"),

		DBPath: getEnv("DB_PATH", "raidbench.db"),

		WCLClientID:     getEnv("WCL_CLIENT_ID", ""),
		WCLClientSecret: getEnv("WCL_CLIENT_SECRET", ""),
		WCLAPIURL:       getEnv("WCL_API_URL", "https://www.warcraftlogs.com/api/v2/client"),
		WCLTokenURL:     getEnv("WCL_TOKEN_URL", "https://www.warcraftlogs.com/oauth/token"),

		SpreadsheetID:    getEnv("SPREADSHEET_ID", ""),
		SheetsCredsFile:  getEnv("SHEETS_CREDENTIALS_FILE", "service-account.json"),
		ReportsTab:       getEnv("REPORTS_TAB", "Reports"),
		RosterMapTab:     getEnv("ROSTER_MAP_TAB", "Roster Map"),
		TeamRosterTab:    getEnv("TEAM_ROSTER_TAB", "Team Roster"),
		OverridesTab:     getEnv("OVERRIDES_TAB", "Availability Overrides"),
		NightQATab:       getEnv("NIGHT_QA_TAB", "Night QA"),
		BenchNightsTab:   getEnv("BENCH_NIGHTS_TAB", "Bench Nights"),
		BenchWeeksTab:    getEnv("BENCH_WEEKS_TAB", "Bench Weeks"),
		BenchRankingsTab: getEnv("BENCH_RANKINGS_TAB", "Bench Rankings"),

		Timezone: getEnv("TIMEZONE", "America/Los_Angeles"),

		BreakWindowStartMin: getEnvInt("BREAK_WINDOW_START_MIN", 30),
		BreakWindowEndMin:   getEnvInt("BREAK_WINDOW_END_MIN", 120),
		MinBreakMin:         getEnvInt("MIN_BREAK_MIN", 5),
		MaxBreakMin:         getEnvInt("MAX_BREAK_MIN", 90),
		RoundToleranceMs:    int64(getEnvInt("FIGHT_ROUND_TOLERANCE_MS", 100)),

		CacheDir:      getEnv("CACHE_DIR", "reportcache"),
		CacheTTLShort: getEnvDuration("CACHE_TTL_SHORT", 5*time.Minute),
		CacheTTLLong:  getEnvDuration("CACHE_TTL_LONG", 180*24*time.Hour),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	weekday, err := parseWeekday(getEnv("WEEK_RESET_DAY", "Tuesday"))
	if err != nil {
		return nil, err
	}
	cfg.ResetWeekday = weekday

	hour, minute, err := parseClock(getEnv("WEEK_RESET_TIME", "08:00"))
	if err != nil {
		return nil, err
	}
	cfg.ResetHour, cfg.ResetMinute = hour, minute

	if cfg.RunMode != RunModeOnce && cfg.RunMode != RunModeServe {
		return nil, fmt.Errorf("RUN_MODE must be %q or %q, got %q", RunModeOnce, RunModeServe, cfg.RunMode)
	}
	if cfg.WCLClientID == "" || cfg.WCLClientSecret == "" {
		return nil, fmt.Errorf("WCL_CLIENT_ID and WCL_CLIENT_SECRET are required")
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("SPREADSHEET_ID is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid WEEK_RESET_DAY %q", s)
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid WEEK_RESET_TIME %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

var Module = fx.Provide(Load)
