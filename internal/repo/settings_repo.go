// Package repo implements the data persistence layer for the streak ledger.
// This file provides guild settings, user preferences, and the scheduler's
// per-guild dedup markers.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

// Guild settings columns that may be changed through UpdateGuildSettings.
const (
	ColReminderTime       = "reminder_time"
	ColTimezone           = "timezone"
	ColReminderChannelID  = "reminder_channel_id"
	ColChallengeChannelID = "challenge_channel_id"
	ColStreakChannelID    = "streak_channel_id"
)

var settingsColumns = map[string]struct{}{
	ColReminderTime:       {},
	ColTimezone:           {},
	ColReminderChannelID:  {},
	ColChallengeChannelID: {},
	ColStreakChannelID:    {},
}

// EnsureGuild creates the settings row for a guild with defaults (or refreshes
// its name) and stamps the marker's last_seen_at.
func EnsureGuild(ctx context.Context, db *gorm.DB, guildID, name string, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gs := domain.GuildSettings{
			GuildID:      guildID,
			Name:         name,
			ReminderTime: domain.DefaultReminderTime,
			Timezone:     domain.DefaultTimezone,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).Create(&gs).Error
		if err != nil {
			return err
		}
		seen := now.UTC()
		m := domain.GuildMarker{GuildID: guildID, LastSeenAt: &seen}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen_at"}),
		}).Create(&m).Error
	})
}

// GetGuildSettings returns the settings row, or defaults when the guild was
// never seen.
func GetGuildSettings(ctx context.Context, db *gorm.DB, guildID string) (*domain.GuildSettings, error) {
	var gs domain.GuildSettings
	err := db.WithContext(ctx).Where("guild_id = ?", guildID).First(&gs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.GuildSettings{
			GuildID:      guildID,
			ReminderTime: domain.DefaultReminderTime,
			Timezone:     domain.DefaultTimezone,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

// ListGuildSettings returns every known guild ordered by ID.
func ListGuildSettings(ctx context.Context, db *gorm.DB) ([]domain.GuildSettings, error) {
	var out []domain.GuildSettings
	err := db.WithContext(ctx).Order("guild_id ASC").Find(&out).Error
	return out, err
}

// UpdateGuildSettings sets a single settings column, creating the row with
// defaults first if needed. Only the Col* columns are accepted.
func UpdateGuildSettings(ctx context.Context, db *gorm.DB, guildID, column, value string) error {
	if _, ok := settingsColumns[column]; !ok {
		return fmt.Errorf("unknown settings column %q", column)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gs := domain.GuildSettings{
			GuildID:      guildID,
			ReminderTime: domain.DefaultReminderTime,
			Timezone:     domain.DefaultTimezone,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&gs).Error; err != nil {
			return err
		}
		return tx.Model(&domain.GuildSettings{}).
			Where("guild_id = ?", guildID).
			Updates(map[string]any{column: value, "updated_at": time.Now().UTC()}).Error
	})
}

// GetUserSettings returns a user's preferences; missing rows yield defaults.
func GetUserSettings(ctx context.Context, db *gorm.DB, userID, guildID string) (*domain.UserSettings, error) {
	var us domain.UserSettings
	err := db.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		First(&us).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.UserSettings{UserID: userID, GuildID: guildID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// SetOptOutMentions stores the user's mention preference.
func SetOptOutMentions(ctx context.Context, db *gorm.DB, userID, guildID string, optOut bool) error {
	us := domain.UserSettings{UserID: userID, GuildID: guildID, OptOutMentions: optOut}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "guild_id"}},
			DoUpdates: clause.Assignments(map[string]any{"opt_out_mentions": optOut}),
		}).
		Create(&us).Error
}

// GetMarker returns the scheduler markers of a guild (zero value if none).
func GetMarker(ctx context.Context, db *gorm.DB, guildID string) (*domain.GuildMarker, error) {
	var m domain.GuildMarker
	err := db.WithContext(ctx).Where("guild_id = ?", guildID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.GuildMarker{GuildID: guildID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetReminderMarker records the local date the daily reminder was sent for.
func SetReminderMarker(ctx context.Context, db *gorm.DB, guildID string, date domain.Date) error {
	return setMarker(ctx, db, guildID, "last_reminder_date", date)
}

// SetChallengeMarker records the ISO week the weekly challenge was posted for.
func SetChallengeMarker(ctx context.Context, db *gorm.DB, guildID, week string) error {
	return setMarker(ctx, db, guildID, "last_challenge_week", week)
}

// SetSummaryMarker records the ISO week the weekly summary was posted for.
func SetSummaryMarker(ctx context.Context, db *gorm.DB, guildID, week string) error {
	return setMarker(ctx, db, guildID, "last_summary_week", week)
}

func setMarker(ctx context.Context, db *gorm.DB, guildID, column string, value any) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.GuildMarker{GuildID: guildID}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.GuildMarker{}).
			Where("guild_id = ?", guildID).
			Update(column, value).Error
	})
}
