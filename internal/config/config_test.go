package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}

// --- Load defaults ---

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.DSN != "streaks.db" {
		t.Fatalf("db defaults unexpected: %+v", cfg.DB)
	}
	if cfg.Oracle.TextModel != "gemini-2.5-flash" || cfg.Oracle.ChallengeModel != "gemini-2.5-pro" || cfg.Oracle.Timeout != 10*time.Second {
		t.Fatalf("oracle defaults unexpected: %+v", cfg.Oracle)
	}
	if cfg.Streak.MaxDayNumber != 10000 || cfg.Streak.PairingCapacity != 5 || cfg.Streak.PairingTTL != 0 ||
		!cfg.Streak.BackfillOnStart || cfg.Streak.BackfillLookback != 168*time.Hour {
		t.Fatalf("streak defaults unexpected: %+v", cfg.Streak)
	}
	if cfg.Scheduler.Interval != time.Minute ||
		cfg.Scheduler.ChallengeWeekday != time.Monday || cfg.Scheduler.ChallengeTime != "09:00" ||
		cfg.Scheduler.SummaryWeekday != time.Sunday || cfg.Scheduler.SummaryTime != "18:00" {
		t.Fatalf("scheduler defaults unexpected: %+v", cfg.Scheduler)
	}
	if cfg.Discord.StreakChannelName != "daily-code" || cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("discord/cache defaults unexpected: %+v %+v", cfg.Discord, cfg.Cache)
	}
	if cfg.APIBasePath != "/api/v1" || cfg.OTEL.ServiceName != "streakbot" {
		t.Fatalf("server defaults unexpected: %+v", cfg)
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("LOG_FILE", "bot.log")
	t.Setenv("API_BASE_PATH", "api/v2/")

	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_GUILD_ID", "42")
	t.Setenv("STREAK_CHANNEL_NAME", "Streaks")

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "host=db user=bot")

	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("ORACLE_TIMEOUT", "3s")

	t.Setenv("MAX_DAY_NUMBER", "500")
	t.Setenv("PAIRING_CAPACITY", "3")
	t.Setenv("PAIRING_TTL", "5m")
	t.Setenv("BACKFILL_ON_START", "off")
	t.Setenv("BACKFILL_LOOKBACK", "24h")

	t.Setenv("SCHEDULER_INTERVAL", "30s")
	t.Setenv("CHALLENGE_WEEKDAY", "Wed")
	t.Setenv("CHALLENGE_TIME", "07:30")
	t.Setenv("SUMMARY_WEEKDAY", "FRIDAY")

	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CACHE_TTL", "1m")

	t.Setenv("RATE_RPS", "x") // -> default 5.0
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.LogFile != "bot.log" || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging fields unexpected: %+v", cfg)
	}
	if cfg.Discord.Token != "tok" || cfg.Discord.GuildID != "42" || cfg.Discord.StreakChannelName != "streaks" {
		t.Fatalf("discord unexpected: %+v", cfg.Discord)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "host=db user=bot" {
		t.Fatalf("db unexpected: %+v", cfg.DB)
	}
	if cfg.Oracle.APIKey != "k" || cfg.Oracle.Timeout != 3*time.Second {
		t.Fatalf("oracle unexpected: %+v", cfg.Oracle)
	}
	if cfg.Streak.MaxDayNumber != 500 || cfg.Streak.PairingCapacity != 3 || cfg.Streak.PairingTTL != 5*time.Minute ||
		cfg.Streak.BackfillOnStart || cfg.Streak.BackfillLookback != 24*time.Hour {
		t.Fatalf("streak unexpected: %+v", cfg.Streak)
	}
	if cfg.Scheduler.Interval != 30*time.Second || cfg.Scheduler.ChallengeWeekday != time.Wednesday ||
		cfg.Scheduler.ChallengeTime != "07:30" || cfg.Scheduler.SummaryWeekday != time.Friday {
		t.Fatalf("scheduler unexpected: %+v", cfg.Scheduler)
	}
	if cfg.Cache.RedisAddr != "redis:6379" || cfg.Cache.RedisDB != 2 || cfg.Cache.TTL != time.Minute {
		t.Fatalf("cache unexpected: %+v", cfg.Cache)
	}
	if cfg.RateRPS != 5.0 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, value, want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT via spaces", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes <= 0", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"unknown driver", "DB_DRIVER", "oracle", "DB_DRIVER"},
		{"empty sqlite path", "DB_PATH", "   ", "DB_DSN"},
		{"oracle timeout", "ORACLE_TIMEOUT", "0s", "ORACLE_TIMEOUT"},
		{"max day", "MAX_DAY_NUMBER", "0", "MAX_DAY_NUMBER"},
		{"pairing capacity", "PAIRING_CAPACITY", "0", "PAIRING_CAPACITY"},
		{"pairing ttl", "PAIRING_TTL", "-1s", "PAIRING_TTL"},
		{"scheduler interval", "SCHEDULER_INTERVAL", "0s", "SCHEDULER_INTERVAL"},
		{"challenge weekday", "CHALLENGE_WEEKDAY", "someday", "CHALLENGE_WEEKDAY"},
		{"summary time", "SUMMARY_TIME", "25:00", "SUMMARY_TIME"},
		{"cache ttl", "CACHE_TTL", "0s", "CACHE_TTL"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst < 1", "RATE_BURST", "0", "RATE_BURST"},
		{"hsts max age negative", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"otel sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoadDotenv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("STREAKBOT_TEST_A=fromfile\nSTREAKBOT_TEST_B=fromfile\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STREAKBOT_TEST_A", "fromenv")
	t.Cleanup(func() { os.Unsetenv("STREAKBOT_TEST_B") })

	LoadDotenv(path, filepath.Join(dir, "missing.env"))

	if os.Getenv("STREAKBOT_TEST_A") != "fromenv" {
		t.Fatalf("real env overridden")
	}
	if os.Getenv("STREAKBOT_TEST_B") != "fromfile" {
		t.Fatalf(".env value not loaded")
	}
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]time.Weekday{"monday": time.Monday, "Tue": time.Tuesday, " SUNDAY ": time.Sunday, "sat": time.Saturday}
	for in, want := range cases {
		got, ok := ParseWeekday(in)
		if !ok || got != want {
			t.Errorf("ParseWeekday(%q) = %v,%v want %v", in, got, ok, want)
		}
	}
	for _, bad := range []string{"", "mo", "funday"} {
		if _, ok := ParseWeekday(bad); ok {
			t.Errorf("ParseWeekday(%q) should fail", bad)
		}
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}
	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", " no ", "N", "off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
}

func TestHelpers_splitCSV_normalizeBasePath_validClock(t *testing.T) {
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: %#v", got)
	}
	if normalizeBasePath("") != "/" || normalizeBasePath("v1") != "/v1" || normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath failed")
	}
	if !validClock("00:00") || !validClock("23:59") || validClock("24:00") || validClock("9:00") {
		t.Fatalf("validClock failed")
	}
}

func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
