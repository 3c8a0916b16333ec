// Command streakctl runs one-off maintenance tasks against the streak store
// and Discord REST API without opening the gateway.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-streak-bot/internal/app"
	"github.com/tbourn/go-streak-bot/internal/config"
	"github.com/tbourn/go-streak-bot/internal/sysutil"
)

type backfillCmd struct {
	Lookback time.Duration `arg:"--lookback" help:"override BACKFILL_LOOKBACK (e.g. 72h)"`
}

type tickCmd struct {
	At string `arg:"--at" help:"evaluate triggers as of this RFC3339 time (default now)"`
}

type exportCmd struct {
	Guild string `arg:"positional,required" help:"guild ID"`
	Limit int    `arg:"-n,--limit" default:"50" help:"number of entries"`
}

type args struct {
	Backfill *backfillCmd `arg:"subcommand:backfill" help:"import missed streak-channel history"`
	Tick     *tickCmd     `arg:"subcommand:tick" help:"run one scheduler pass (reminders, challenge, summary)"`
	Export   *exportCmd   `arg:"subcommand:export" help:"print a guild leaderboard as JSON"`
	Env      string       `arg:"--env" default:".env" help:"dotenv file to load"`
	Verbose  bool         `arg:"-v,--verbose" help:"debug logging"`
}

func (args) Description() string {
	return "streakctl: maintenance commands for the coding-streak bot"
}

func main() {
	var opts args
	p := arg.MustParse(&opts)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	config.LoadDotenv(opts.Env)
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, closer := sysutil.NewLogger(sysutil.LoggerOptions{Level: level, Pretty: true, Stdout: os.Stderr})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.Backfill != nil && opts.Backfill.Lookback > 0 {
		cfg.Streak.BackfillLookback = opts.Backfill.Lookback
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup")
	}
	defer a.Close()

	switch {
	case opts.Backfill != nil:
		err = runBackfill(ctx, a)
	case opts.Tick != nil:
		err = runTick(ctx, a, opts.Tick.At)
	case opts.Export != nil:
		err = runExport(ctx, a, opts.Export)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("command failed")
	}
}

func runBackfill(ctx context.Context, a *app.App) error {
	rep, err := a.Backfill(ctx)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(rep)
}

func runTick(ctx context.Context, a *app.App, at string) error {
	now := time.Now().UTC()
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		now = t
	}
	if err := a.Bot.LoadChannels(ctx); err != nil {
		return err
	}
	a.Scheduler.Tick(ctx, now)
	return nil
}

func runExport(ctx context.Context, a *app.App, cmd *exportCmd) error {
	entries, err := a.Streaks.Leaderboard(ctx, cmd.Guild, cmd.Limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
