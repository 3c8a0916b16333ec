// Package repo implements the data persistence layer for the streak ledger.
// This file provides aggregate queries: the guild statistics shown by
// /serverstats and the dashboard, the reminder target list, and the cheap
// count/max(updated_at) pair used for leaderboard ETags.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

// GuildStats is a snapshot of a guild's activity.
type GuildStats struct {
	TotalUsers    int64   `json:"total_users"`
	ActiveToday   int64   `json:"active_today"`
	TotalDays     int64   `json:"total_days"`
	AverageStreak float64 `json:"average_streak"`
	TopStreak     int     `json:"top_streak"`
	// ActivityRate is the percentage of tracked users who logged today.
	ActivityRate float64 `json:"activity_rate"`
}

// ServerStats computes GuildStats for today's UTC date.
func ServerStats(ctx context.Context, db *gorm.DB, guildID string, now time.Time) (GuildStats, error) {
	var s GuildStats
	q := db.WithContext(ctx)

	if err := q.Model(&domain.StreakRecord{}).Where("guild_id = ?", guildID).Count(&s.TotalUsers).Error; err != nil {
		return s, err
	}
	if err := q.Model(&domain.DailyLogEntry{}).
		Where("guild_id = ? AND log_date = ?", guildID, domain.DateOf(now)).
		Count(&s.ActiveToday).Error; err != nil {
		return s, err
	}
	if err := q.Model(&domain.DailyLogEntry{}).Where("guild_id = ?", guildID).Count(&s.TotalDays).Error; err != nil {
		return s, err
	}
	if s.TotalUsers == 0 {
		return s, nil
	}

	var agg struct {
		Avg float64
		Top int
	}
	if err := q.Model(&domain.StreakRecord{}).
		Select("COALESCE(AVG(current_streak), 0) AS avg, COALESCE(MAX(current_streak), 0) AS top").
		Where("guild_id = ?", guildID).
		Scan(&agg).Error; err != nil {
		return s, err
	}
	s.AverageStreak = agg.Avg
	s.TopStreak = agg.Top
	s.ActivityRate = float64(s.ActiveToday) / float64(s.TotalUsers) * 100
	return s, nil
}

// ReminderTarget is a user with an active streak who has not logged yet.
type ReminderTarget struct {
	UserID         string
	CurrentStreak  int
	OptOutMentions *bool
}

// UsersToRemind lists users of a guild with current_streak > 0 and no entry
// for date, joined with their mention preference.
func UsersToRemind(ctx context.Context, db *gorm.DB, guildID string, date domain.Date) ([]ReminderTarget, error) {
	var out []ReminderTarget
	err := db.WithContext(ctx).
		Table("streaks AS s").
		Select("s.user_id AS user_id, s.current_streak AS current_streak, us.opt_out_mentions AS opt_out_mentions").
		Joins("LEFT JOIN daily_logs AS dl ON dl.user_id = s.user_id AND dl.guild_id = s.guild_id AND dl.log_date = ?", date).
		Joins("LEFT JOIN user_settings AS us ON us.user_id = s.user_id AND us.guild_id = s.guild_id").
		Where("s.guild_id = ? AND s.current_streak > 0 AND dl.user_id IS NULL", guildID).
		Order("s.current_streak DESC").
		Scan(&out).Error
	return out, err
}

// LeaderboardStats returns the number of streak rows in a guild and the most
// recent UpdatedAt among them (nil when there are none).
func LeaderboardStats(ctx context.Context, db *gorm.DB, guildID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.StreakRecord{}).Where("guild_id = ?", guildID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.StreakRecord{}).
		Where("guild_id = ?", guildID).
		Select("updated_at").Order("updated_at DESC").Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
