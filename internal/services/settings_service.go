package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/repo"
)

var reminderTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ValidReminderTime reports whether s is a 24h "HH:MM" time.
func ValidReminderTime(s string) bool { return reminderTimeRe.MatchString(s) }

// ChannelKind selects which guild channel a setting targets.
type ChannelKind string

const (
	ChannelReminder  ChannelKind = "reminder"
	ChannelChallenge ChannelKind = "challenge"
	ChannelStreak    ChannelKind = "streak"
)

var channelColumns = map[ChannelKind]string{
	ChannelReminder:  repo.ColReminderChannelID,
	ChannelChallenge: repo.ColChallengeChannelID,
	ChannelStreak:    repo.ColStreakChannelID,
}

// SettingsService manages guild and user preferences.
type SettingsService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// TrackGuild records that the bot is present in a guild.
func (s *SettingsService) TrackGuild(ctx context.Context, guildID, name string) error {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return repo.EnsureGuild(ctx, s.DB, guildID, name, now)
}

// Guild returns a guild's settings (defaults when unknown).
func (s *SettingsService) Guild(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	return repo.GetGuildSettings(ctx, s.DB, guildID)
}

// Guilds lists all tracked guilds.
func (s *SettingsService) Guilds(ctx context.Context) ([]domain.GuildSettings, error) {
	return repo.ListGuildSettings(ctx, s.DB)
}

// SetReminder validates and stores the daily reminder time and, when tz is
// non-empty, the guild timezone. The time is kept as local wall-clock plus
// zone name and converted to an instant only when the scheduler runs.
func (s *SettingsService) SetReminder(ctx context.Context, guildID, hhmm, tz string) error {
	hhmm = strings.TrimSpace(hhmm)
	if !ValidReminderTime(hhmm) {
		return ErrInvalidReminderTime
	}
	if tz = strings.TrimSpace(tz); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
		}
		if err := repo.UpdateGuildSettings(ctx, s.DB, guildID, repo.ColTimezone, tz); err != nil {
			return err
		}
	}
	return repo.UpdateGuildSettings(ctx, s.DB, guildID, repo.ColReminderTime, hhmm)
}

// SetChannel stores one of the guild's channel settings.
func (s *SettingsService) SetChannel(ctx context.Context, guildID string, kind ChannelKind, channelID string) error {
	col, ok := channelColumns[kind]
	if !ok {
		return fmt.Errorf("unknown channel kind %q", kind)
	}
	return repo.UpdateGuildSettings(ctx, s.DB, guildID, col, channelID)
}

// SetMentions stores whether the user wants to be mentioned.
func (s *SettingsService) SetMentions(ctx context.Context, userID, guildID string, enabled bool) error {
	return repo.SetOptOutMentions(ctx, s.DB, userID, guildID, !enabled)
}

// MentionsEnabled reports whether notifications may mention the user.
func (s *SettingsService) MentionsEnabled(ctx context.Context, userID, guildID string) (bool, error) {
	us, err := repo.GetUserSettings(ctx, s.DB, userID, guildID)
	if err != nil {
		return true, err
	}
	return !us.OptOutMentions, nil
}

// TouchProfile caches a user's display data.
func (s *SettingsService) TouchProfile(ctx context.Context, p domain.UserProfile) error {
	return repo.UpsertProfile(ctx, s.DB, p)
}
