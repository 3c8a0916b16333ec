// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// Discord bot, the streak ledger store, the AI oracle, the scheduler, the
// dashboard server, logging, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tbourn/go-streak-bot/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "streakbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DiscordConfig holds gateway credentials and channel conventions.
type DiscordConfig struct {
	Token             string // DISCORD_TOKEN
	GuildID           string // DISCORD_GUILD_ID; register commands per guild when set
	StreakChannelName string // STREAK_CHANNEL_NAME; fallback when no streak channel is configured
	OpsWebhookURL     string // OPS_WEBHOOK_URL; optional operator alerts
}

// DBConfig selects the ledger store.
type DBConfig struct {
	Driver string // sqlite|mysql|postgres
	DSN    string // DB_DSN; for sqlite defaults to Path
	Path   string // DB_PATH
}

// OracleConfig configures the Gemini-backed classifier and challenge writer.
type OracleConfig struct {
	APIKey         string
	TextModel      string
	ChallengeModel string
	Timeout        time.Duration
}

// StreakConfig tunes the streak pipeline.
type StreakConfig struct {
	MaxDayNumber     int
	PairingCapacity  int
	PairingTTL       time.Duration // 0 disables
	BackfillOnStart  bool
	BackfillLookback time.Duration
}

// SchedulerConfig configures time-driven posts.
type SchedulerConfig struct {
	Interval         time.Duration
	ChallengeWeekday time.Weekday
	ChallengeTime    string // HH:MM UTC
	SummaryWeekday   time.Weekday
	SummaryTime      string // HH:MM UTC
}

// CacheConfig selects the fun-command cache backend. Redis is used when
// RedisAddr is set.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	DashboardEnabled  bool          // DASHBOARD_ENABLED

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	LogFile     string // optional rolling log file
	APIBasePath string // base path for API routes

	Discord   DiscordConfig
	DB        DBConfig
	Oracle    OracleConfig
	Streak    StreakConfig
	Scheduler SchedulerConfig
	Cache     CacheConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// LoadDotenv loads variables from the given .env files (default ".env")
// without overriding the real environment. Missing files are ignored.
func LoadDotenv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		DashboardEnabled:  getbool("DASHBOARD_ENABLED", true),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		LogFile:     getenv("LOG_FILE", ""),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		Discord: DiscordConfig{
			Token:             getenv("DISCORD_TOKEN", ""),
			GuildID:           getenv("DISCORD_GUILD_ID", ""),
			StreakChannelName: strings.ToLower(getenv("STREAK_CHANNEL_NAME", "daily-code")),
			OpsWebhookURL:     getenv("OPS_WEBHOOK_URL", ""),
		},
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:    getenv("DB_DSN", ""),
			Path:   getenv("DB_PATH", "streaks.db"),
		},
		Oracle: OracleConfig{
			APIKey:         getenv("GEMINI_API_KEY", ""),
			TextModel:      getenv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
			ChallengeModel: getenv("GEMINI_CHALLENGE_MODEL", "gemini-2.5-pro"),
			Timeout:        getdur("ORACLE_TIMEOUT", 10*time.Second),
		},
		Streak: StreakConfig{
			MaxDayNumber:     getint("MAX_DAY_NUMBER", 10000),
			PairingCapacity:  getint("PAIRING_CAPACITY", 5),
			PairingTTL:       getdur("PAIRING_TTL", 0),
			BackfillOnStart:  getbool("BACKFILL_ON_START", true),
			BackfillLookback: getdur("BACKFILL_LOOKBACK", 168*time.Hour),
		},
		Scheduler: SchedulerConfig{
			Interval:      getdur("SCHEDULER_INTERVAL", time.Minute),
			ChallengeTime: getenv("CHALLENGE_TIME", "09:00"),
			SummaryTime:   getenv("SUMMARY_TIME", "18:00"),
		},
		Cache: CacheConfig{
			RedisAddr:     getenv("REDIS_ADDR", ""),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
			TTL:           getdur("CACHE_TTL", 10*time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "streakbot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "sqlite3" {
		cfg.DB.Driver = "sqlite"
	}
	if cfg.DB.Driver == "sqlite" && cfg.DB.DSN == "" {
		cfg.DB.DSN = cfg.DB.Path
	}

	var ok bool
	if cfg.Scheduler.ChallengeWeekday, ok = ParseWeekday(getenv("CHALLENGE_WEEKDAY", "monday")); !ok {
		return cfg, errors.New("CHALLENGE_WEEKDAY must be a weekday name")
	}
	if cfg.Scheduler.SummaryWeekday, ok = ParseWeekday(getenv("SUMMARY_WEEKDAY", "sunday")); !ok {
		return cfg, errors.New("SUMMARY_WEEKDAY must be a weekday name")
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, mysql, postgres")
	}
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty")
	}
	if cfg.Oracle.Timeout <= 0 {
		return cfg, errors.New("ORACLE_TIMEOUT must be > 0")
	}
	if cfg.Streak.MaxDayNumber < 1 {
		return cfg, errors.New("MAX_DAY_NUMBER must be >= 1")
	}
	if cfg.Streak.PairingCapacity < 1 {
		return cfg, errors.New("PAIRING_CAPACITY must be >= 1")
	}
	if cfg.Streak.PairingTTL < 0 || cfg.Streak.BackfillLookback <= 0 {
		return cfg, errors.New("PAIRING_TTL must be >= 0 and BACKFILL_LOOKBACK > 0")
	}
	if cfg.Scheduler.Interval <= 0 {
		return cfg, errors.New("SCHEDULER_INTERVAL must be > 0")
	}
	if !validClock(cfg.Scheduler.ChallengeTime) || !validClock(cfg.Scheduler.SummaryTime) {
		return cfg, errors.New("CHALLENGE_TIME and SUMMARY_TIME must be HH:MM")
	}
	if cfg.Cache.TTL <= 0 {
		return cfg, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ParseWeekday parses an English weekday name ("monday", "Mon") case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return time.Sunday, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.HasPrefix(strings.ToLower(d.String()), s) {
			return d, true
		}
	}
	return time.Sunday, false
}

// ---- helpers ----

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h, err1 := strconv.Atoi(s[:2])
	m, err2 := strconv.Atoi(s[3:])
	return err1 == nil && err2 == nil && h >= 0 && h < 24 && m >= 0 && m < 60
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if b, ok := sysutil.ParseFlag(os.Getenv(k)); ok {
		return b
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
