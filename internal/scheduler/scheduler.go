// Package scheduler runs the bot's time-driven posts: the daily reminder,
// the weekly coding challenge and the weekly leaderboard summary.
//
// Each trigger is evaluated per guild on every tick and guarded by a marker
// persisted in bot_meta (the local date for reminders, the ISO week for the
// weekly posts). A trigger fires once its scheduled instant has passed and
// its marker is stale, so ticks missed while the process was down are caught
// up on the next tick instead of being lost.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/observability"
	"github.com/tbourn/go-streak-bot/internal/oracle"
	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/services"
	"github.com/tbourn/go-streak-bot/internal/sysutil"
)

// Trigger names, used in logs and metrics.
const (
	TriggerReminder  = "reminder"
	TriggerChallenge = "challenge"
	TriggerSummary   = "summary"
)

// SummarySize is the number of users shown in the weekly summary.
const SummarySize = 3

// Summary is the payload of the weekly summary post.
type Summary struct {
	Week  string
	Top   []services.LeaderboardEntry
	Stats repo.GuildStats
}

// Sender delivers scheduled posts to a channel.
type Sender interface {
	SendReminder(ctx context.Context, guildID, channelID string, targets []repo.ReminderTarget) error
	SendChallenge(ctx context.Context, guildID, channelID, text string) error
	SendSummary(ctx context.Context, guildID, channelID string, s Summary) error
}

// ChallengeWriter produces the weekly challenge text. It never fails.
type ChallengeWriter interface {
	Weekly(ctx context.Context, snippets []string, cc oracle.ChallengeContext) string
}

// SnippetSource returns recent code snippets posted in a channel, used as
// context for challenge generation. Optional.
type SnippetSource interface {
	RecentSnippets(ctx context.Context, channelID string, limit int) ([]string, error)
}

// WeeklySlot is a weekday and UTC wall-clock time ("HH:MM").
type WeeklySlot struct {
	Weekday time.Weekday
	Time    string
}

// Scheduler evaluates every trigger for every known guild on each tick.
type Scheduler struct {
	DB         *gorm.DB
	Streaks    *services.StreakService
	Sender     Sender
	Challenges ChallengeWriter
	Snippets   SnippetSource

	Challenge WeeklySlot
	Summary   WeeklySlot
	Interval  time.Duration
	Now       func() time.Time

	logger zerolog.Logger
}

// New returns a Scheduler with a component logger.
func New(db *gorm.DB, streaks *services.StreakService, sender Sender, challenges ChallengeWriter) *Scheduler {
	return &Scheduler{
		DB:         db,
		Streaks:    streaks,
		Sender:     sender,
		Challenges: challenges,
		Challenge:  WeeklySlot{Weekday: time.Monday, Time: "09:00"},
		Summary:    WeeklySlot{Weekday: time.Sunday, Time: "18:00"},
		Interval:   time.Minute,
		Now:        time.Now,
		logger:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Run ticks until ctx is done. The first tick runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Tick(ctx, s.now())
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx, s.now())
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Tick evaluates all triggers at now. Failures are logged per guild and
// trigger; a failed post leaves its marker untouched so the next tick retries.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	guilds, err := repo.ListGuildSettings(ctx, s.DB)
	if err != nil {
		s.logger.Error().Err(err).Msg("list guilds")
		return
	}
	for _, g := range guilds {
		if ctx.Err() != nil {
			return
		}
		marker, err := repo.GetMarker(ctx, s.DB, g.GuildID)
		if err != nil {
			s.logger.Error().Err(err).Str("guild_id", g.GuildID).Msg("load marker")
			continue
		}
		s.run(ctx, g.GuildID, TriggerReminder, func() error { return s.reminder(ctx, g, marker, now) })
		s.run(ctx, g.GuildID, TriggerChallenge, func() error { return s.challenge(ctx, g, marker, now) })
		s.run(ctx, g.GuildID, TriggerSummary, func() error { return s.summary(ctx, g, marker, now) })
	}
}

func (s *Scheduler) run(_ context.Context, guildID, trigger string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.Warn().Err(err).Str("guild_id", guildID).Str("trigger", trigger).Msg("scheduled post failed")
	}
}

func (s *Scheduler) reminder(ctx context.Context, g domain.GuildSettings, m *domain.GuildMarker, now time.Time) error {
	channel := sysutil.FirstNonEmpty(g.ReminderChannelID, g.StreakChannelID)
	if channel == "" {
		return nil
	}
	local := now.In(Location(g.Timezone))
	localDate := domain.DateOf(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC))
	if m.LastReminderDate == localDate {
		return nil
	}
	due, err := atClock(local, g.ReminderTime)
	if err != nil {
		return err
	}
	if local.Before(due) {
		return nil
	}

	targets, err := repo.UsersToRemind(ctx, s.DB, g.GuildID, domain.DateOf(now))
	if err != nil {
		return err
	}
	if len(targets) > 0 {
		if err := s.Sender.SendReminder(ctx, g.GuildID, channel, targets); err != nil {
			return err
		}
		observability.RecordSchedulerPost(TriggerReminder)
	}
	s.logger.Info().Str("guild_id", g.GuildID).Int("users", len(targets)).Str("date", localDate.String()).Msg("daily reminder")
	return repo.SetReminderMarker(ctx, s.DB, g.GuildID, localDate)
}

func (s *Scheduler) challenge(ctx context.Context, g domain.GuildSettings, m *domain.GuildMarker, now time.Time) error {
	channel := sysutil.FirstNonEmpty(g.ChallengeChannelID, g.StreakChannelID)
	if channel == "" || s.Challenges == nil {
		return nil
	}
	week, due, err := WeekSlot(now, s.Challenge)
	if err != nil {
		return err
	}
	if m.LastChallengeWeek == week || now.Before(due) {
		return nil
	}

	var snippets []string
	if s.Snippets != nil && g.StreakChannelID != "" {
		snippets, err = s.Snippets.RecentSnippets(ctx, g.StreakChannelID, oracle.MaxSnippets)
		if err != nil {
			s.logger.Warn().Err(err).Str("guild_id", g.GuildID).Msg("collect snippets")
			snippets = nil
		}
	}
	text := s.Challenges.Weekly(ctx, snippets, oracle.ChallengeContext{GuildName: g.Name})
	if err := s.Sender.SendChallenge(ctx, g.GuildID, channel, text); err != nil {
		return err
	}
	observability.RecordSchedulerPost(TriggerChallenge)
	s.logger.Info().Str("guild_id", g.GuildID).Str("week", week).Msg("weekly challenge posted")
	return repo.SetChallengeMarker(ctx, s.DB, g.GuildID, week)
}

func (s *Scheduler) summary(ctx context.Context, g domain.GuildSettings, m *domain.GuildMarker, now time.Time) error {
	channel := sysutil.FirstNonEmpty(g.StreakChannelID, g.ReminderChannelID)
	if channel == "" {
		return nil
	}
	week, due, err := WeekSlot(now, s.Summary)
	if err != nil {
		return err
	}
	if m.LastSummaryWeek == week || now.Before(due) {
		return nil
	}

	top, err := s.Streaks.Leaderboard(ctx, g.GuildID, SummarySize)
	if err != nil {
		return err
	}
	stats, err := s.Streaks.ServerStats(ctx, g.GuildID)
	if err != nil {
		return err
	}
	if len(top) > 0 {
		if err := s.Sender.SendSummary(ctx, g.GuildID, channel, Summary{Week: week, Top: top, Stats: stats}); err != nil {
			return err
		}
		observability.RecordSchedulerPost(TriggerSummary)
	}
	s.logger.Info().Str("guild_id", g.GuildID).Str("week", week).Int("entries", len(top)).Msg("weekly summary")
	return repo.SetSummaryMarker(ctx, s.DB, g.GuildID, week)
}

// ISOWeek formats t's ISO year and week as "2006-W01".
func ISOWeek(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// WeekSlot returns the UTC ISO week of now and the instant the slot falls
// on within that week (weeks start on Monday).
func WeekSlot(now time.Time, slot WeeklySlot) (week string, due time.Time, err error) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monday := midnight.AddDate(0, 0, -isoIndex(now.Weekday()))
	day := monday.AddDate(0, 0, isoIndex(slot.Weekday))
	due, err = atClock(day, slot.Time)
	return ISOWeek(now), due, err
}

// Location loads an IANA zone, falling back to UTC.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// isoIndex maps Monday..Sunday to 0..6.
func isoIndex(d time.Weekday) int { return (int(d) + 6) % 7 }

// atClock returns day's date at the "HH:MM" wall-clock time in day's zone.
func atClock(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad clock %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
