// Package app is the composition root shared by the streakbot and streakctl
// binaries: it opens the store and builds the services, the Discord adapter
// and the scheduler from one Config.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-streak-bot/internal/cache"
	"github.com/tbourn/go-streak-bot/internal/classifier"
	"github.com/tbourn/go-streak-bot/internal/config"
	"github.com/tbourn/go-streak-bot/internal/discord"
	"github.com/tbourn/go-streak-bot/internal/fun"
	"github.com/tbourn/go-streak-bot/internal/oracle"
	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/scheduler"
	"github.com/tbourn/go-streak-bot/internal/services"
)

// App holds the wired components.
type App struct {
	DB        *gorm.DB
	Streaks   *services.StreakService
	Settings  *services.SettingsService
	Bot       *discord.Bot
	Scheduler *scheduler.Scheduler
	Importer  *services.Importer

	closers []io.Closer
	logger  zerolog.Logger
}

// New opens the database, runs migrations and wires every component. The
// Discord gateway is not opened.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{logger: log.With().Str("component", "app").Logger()}

	db, err := repo.Open(repo.Options{
		Driver:   cfg.DB.Driver,
		DSN:      cfg.DB.DSN,
		Tracing:  cfg.OTEL.Enabled,
		LogLevel: gormLevel(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.DB = db

	a.Streaks = services.NewStreakService(db, cfg.Streak.MaxDayNumber)
	a.Settings = &services.SettingsService{DB: db}

	var (
		textOracle classifier.Oracle
		challenges = oracle.NewChallenges(nil)
	)
	if cfg.Oracle.APIKey != "" {
		g, err := oracle.NewGemini(ctx, cfg.Oracle.APIKey, cfg.Oracle.TextModel, cfg.Oracle.ChallengeModel)
		if err != nil {
			return nil, fmt.Errorf("oracle: %w", err)
		}
		textOracle = g
		challenges = oracle.NewChallenges(g)
	} else {
		a.logger.Warn().Msg("GEMINI_API_KEY not set: heuristics only, screenshots accepted unchecked")
	}
	cls := classifier.New(textOracle, classifier.NewHTTPFetcher(), cfg.Oracle.Timeout)

	var c cache.Cache
	if cfg.Cache.RedisAddr != "" {
		r := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		a.closers = append(a.closers, r)
		c = r
	} else {
		c = cache.NewMemory(1000)
	}

	ops, err := discord.NewOpsNotifier(cfg.Discord.OpsWebhookURL, cfg.OTEL.ServiceName)
	if err != nil {
		a.logger.Warn().Err(err).Msg("ops webhook disabled")
	}

	channels := discord.NewChannelDirectory(cfg.Discord.StreakChannelName)
	bot, err := discord.New(discord.Options{
		Token:          cfg.Discord.Token,
		CommandGuildID: cfg.Discord.GuildID,
	}, &discord.Bot{
		Processor: &services.Processor{
			Streaks:         a.Streaks,
			Classifier:      cls,
			Pairing:         services.NewPairingBuffer(cfg.Streak.PairingCapacity, cfg.Streak.PairingTTL),
			IsStreakChannel: channels.IsStreakChannel,
		},
		Streaks:  a.Streaks,
		Settings: a.Settings,
		Fun:      fun.New(c, cfg.Cache.TTL),
		Channels: channels,
		Ops:      ops,
	})
	if err != nil {
		return nil, err
	}
	a.Bot = bot

	a.Importer = &services.Importer{
		Streaks:         a.Streaks,
		Classifier:      cls,
		Source:          bot,
		IsStreakChannel: channels.IsStreakChannel,
		Lookback:        cfg.Streak.BackfillLookback,
		PairingCapacity: cfg.Streak.PairingCapacity,
		PairingTTL:      cfg.Streak.PairingTTL,
	}

	s := scheduler.New(db, a.Streaks, bot, challenges)
	s.Snippets = bot
	s.Interval = cfg.Scheduler.Interval
	s.Challenge = scheduler.WeeklySlot{Weekday: cfg.Scheduler.ChallengeWeekday, Time: cfg.Scheduler.ChallengeTime}
	s.Summary = scheduler.WeeklySlot{Weekday: cfg.Scheduler.SummaryWeekday, Time: cfg.Scheduler.SummaryTime}
	a.Scheduler = s

	return a, nil
}

// Backfill imports missed history for every known streak channel.
func (a *App) Backfill(ctx context.Context) (services.ImportReport, error) {
	if err := a.Bot.LoadChannels(ctx); err != nil {
		return services.ImportReport{}, err
	}
	rep, err := a.Importer.Run(ctx, a.Bot.BackfillChannels())
	if err == nil && rep.Failed > 0 {
		a.Bot.Ops.Alert("Backfill incomplete", fmt.Sprintf("%d of %d channels failed", rep.Failed, rep.Channels))
	}
	return rep, err
}

// Close releases the cache and database connections.
func (a *App) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// gormLevel keeps SQL logging quiet unless the bot runs at debug level.
func gormLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.Info
	case "warn", "warning", "info", "":
		return logger.Warn
	default:
		return logger.Error
	}
}
