// Package repo implements the data persistence layer for the streak ledger.
// This file provides DailyLogEntry accessors: "logged today" checks, live and
// historical upserts, and per-user history pages.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

var dailyLogKey = []clause.Column{{Name: "user_id"}, {Name: "guild_id"}, {Name: "log_date"}}

// GetDailyEntry returns the entry for date or ErrNotFound.
func GetDailyEntry(ctx context.Context, db *gorm.DB, userID, guildID string, date domain.Date) (*domain.DailyLogEntry, error) {
	var e domain.DailyLogEntry
	err := db.WithContext(ctx).
		Where("user_id = ? AND guild_id = ? AND log_date = ?", userID, guildID, date).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// HasLoggedToday reports whether an entry exists for the UTC date of now.
func HasLoggedToday(ctx context.Context, db *gorm.DB, userID, guildID string, now time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.DailyLogEntry{}).
		Where("user_id = ? AND guild_id = ? AND log_date = ?", userID, guildID, domain.DateOf(now)).
		Count(&n).Error
	return n > 0, err
}

// GetTodaysDayNumber returns the day number logged today, with ok false when
// nothing was logged.
func GetTodaysDayNumber(ctx context.Context, db *gorm.DB, userID, guildID string, now time.Time) (day int, ok bool, err error) {
	e, err := GetDailyEntry(ctx, db, userID, guildID, domain.DateOf(now))
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return e.DayNumber, true, nil
}

// LogDailyEntry upserts today's entry. A second call on the same day
// overwrites the day number.
func LogDailyEntry(ctx context.Context, db *gorm.DB, userID, guildID string, dayNumber int, now time.Time) error {
	return upsertEntry(ctx, db, userID, guildID, domain.DateOf(now), dayNumber)
}

// LogHistoricalEntry upserts the entry for an explicit past date. It never
// touches the streak record.
func LogHistoricalEntry(ctx context.Context, db *gorm.DB, userID, guildID string, date domain.Date, dayNumber int) error {
	return upsertEntry(ctx, db, userID, guildID, date, dayNumber)
}

// InsertDailyEntry inserts an entry and returns ErrDuplicate when one already
// exists for that date. The streak engine uses it inside its transaction so a
// concurrent writer for the same day is detected by the primary key.
func InsertDailyEntry(ctx context.Context, db *gorm.DB, userID, guildID string, date domain.Date, dayNumber int) error {
	e := domain.DailyLogEntry{UserID: userID, GuildID: guildID, LogDate: date, DayNumber: dayNumber}
	if err := db.WithContext(ctx).Create(&e).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func upsertEntry(ctx context.Context, db *gorm.DB, userID, guildID string, date domain.Date, dayNumber int) error {
	e := domain.DailyLogEntry{UserID: userID, GuildID: guildID, LogDate: date, DayNumber: dayNumber}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   dailyLogKey,
			DoUpdates: clause.AssignmentColumns([]string{"day_number"}),
		}).
		Create(&e).Error
}

// LatestEntryBefore returns the most recent entry strictly before date.
func LatestEntryBefore(ctx context.Context, db *gorm.DB, userID, guildID string, date domain.Date) (*domain.DailyLogEntry, error) {
	var e domain.DailyLogEntry
	err := db.WithContext(ctx).
		Where("user_id = ? AND guild_id = ? AND log_date < ?", userID, guildID, date).
		Order("log_date DESC").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CountHistory returns how many days a user has logged in a guild.
func CountHistory(ctx context.Context, db *gorm.DB, userID, guildID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.DailyLogEntry{}).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Count(&n).Error
	return n, err
}

// History returns a page of a user's entries, newest first.
func History(ctx context.Context, db *gorm.DB, userID, guildID string, offset, limit int) ([]domain.DailyLogEntry, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 30
	}
	var out []domain.DailyLogEntry
	err := db.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Order("log_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
