// Package repo implements the data persistence layer for the streak ledger.
// This file provides the StreakRecord accessors and the leaderboard query.
//
// Error semantics:
//   - GetStreak returns ErrNotFound when the user has no record in the guild.
//   - Every other DB error is propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

var streakKey = []clause.Column{{Name: "user_id"}, {Name: "guild_id"}}

// GetStreak loads the streak record for (userID, guildID).
func GetStreak(ctx context.Context, db *gorm.DB, userID, guildID string) (*domain.StreakRecord, error) {
	var rec domain.StreakRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertStreak writes the streak counters and stamps last_log_date with the
// UTC calendar date of now.
func UpsertStreak(ctx context.Context, db *gorm.DB, userID, guildID string, current, longest, lastDay int, now time.Time) error {
	return UpsertStreakWithDate(ctx, db, userID, guildID, current, longest, lastDay, domain.DateOf(now))
}

// UpsertStreakWithDate is UpsertStreak with an explicit last_log_date.
func UpsertStreakWithDate(ctx context.Context, db *gorm.DB, userID, guildID string, current, longest, lastDay int, date domain.Date) error {
	rec := domain.StreakRecord{
		UserID:        userID,
		GuildID:       guildID,
		CurrentStreak: current,
		LongestStreak: longest,
		LastLogDate:   date,
		LastDayNumber: lastDay,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   streakKey,
			DoUpdates: clause.AssignmentColumns([]string{"current_streak", "longest_streak", "last_log_date", "last_day_number", "updated_at"}),
		}).
		Create(&rec).Error
}

// ResetStreak zeroes current_streak and last_day_number and stamps
// last_log_date with today. longest_streak is left untouched.
func ResetStreak(ctx context.Context, db *gorm.DB, userID, guildID string, now time.Time) error {
	rec := domain.StreakRecord{
		UserID:      userID,
		GuildID:     guildID,
		LastLogDate: domain.DateOf(now),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   streakKey,
			DoUpdates: clause.AssignmentColumns([]string{"current_streak", "last_log_date", "last_day_number", "updated_at"}),
		}).
		Create(&rec).Error
}

// SetLastLogDate moves last_log_date without touching the counters.
func SetLastLogDate(ctx context.Context, db *gorm.DB, userID, guildID string, date domain.Date) error {
	res := db.WithContext(ctx).
		Model(&domain.StreakRecord{}).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Updates(map[string]any{"last_log_date": date, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLeaderboard returns up to limit records of a guild ordered by
// current_streak desc, then longest_streak desc. Records with a zero current
// streak are included so broken streaks still show their best.
func GetLeaderboard(ctx context.Context, db *gorm.DB, guildID string, limit int) ([]domain.StreakRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []domain.StreakRecord
	err := db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("current_streak DESC").
		Order("longest_streak DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UserRank returns the 1-based leaderboard position of userID (by current
// streak), or 0 when the user has no record.
func UserRank(ctx context.Context, db *gorm.DB, userID, guildID string) (int, error) {
	rec, err := GetStreak(ctx, db, userID, guildID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var ahead int64
	err = db.WithContext(ctx).
		Model(&domain.StreakRecord{}).
		Where("guild_id = ?", guildID).
		Where("current_streak > ? OR (current_streak = ? AND longest_streak > ?)",
			rec.CurrentStreak, rec.CurrentStreak, rec.LongestStreak).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}
