// Package repo implements the data persistence layer for the streak ledger.
// This file provides FreezeBalance accessors. Decrements are a single guarded
// UPDATE so two concurrent uses cannot drive the balance below zero.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

// ErrExhausted is returned by ConsumeFreeze when the balance is zero.
var ErrExhausted = errors.New("balance exhausted")

// GetFreezeCount returns the user's balance; users without a row have the
// default balance.
func GetFreezeCount(ctx context.Context, db *gorm.DB, userID, guildID string) (int, error) {
	var fb domain.FreezeBalance
	err := db.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		First(&fb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DefaultFreezeCount, nil
	}
	if err != nil {
		return 0, err
	}
	return fb.FreezeCount, nil
}

// ConsumeFreeze atomically decrements the balance and stamps
// last_freeze_date. It returns the remaining balance, or ErrExhausted.
func ConsumeFreeze(ctx context.Context, db *gorm.DB, userID, guildID string, date domain.Date) (int, error) {
	if err := ensureFreezeRow(ctx, db, userID, guildID); err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).
		Model(&domain.FreezeBalance{}).
		Where("user_id = ? AND guild_id = ? AND freeze_count > 0", userID, guildID).
		Updates(map[string]any{
			"freeze_count":     gorm.Expr("freeze_count - 1"),
			"last_freeze_date": date,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrExhausted
	}
	return GetFreezeCount(ctx, db, userID, guildID)
}

// AddFreezes increases the balance by amount and returns the new balance.
func AddFreezes(ctx context.Context, db *gorm.DB, userID, guildID string, amount int) (int, error) {
	if err := ensureFreezeRow(ctx, db, userID, guildID); err != nil {
		return 0, err
	}
	err := db.WithContext(ctx).
		Model(&domain.FreezeBalance{}).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Update("freeze_count", gorm.Expr("freeze_count + ?", amount)).Error
	if err != nil {
		return 0, err
	}
	return GetFreezeCount(ctx, db, userID, guildID)
}

func ensureFreezeRow(ctx context.Context, db *gorm.DB, userID, guildID string) error {
	fb := domain.FreezeBalance{UserID: userID, GuildID: guildID, FreezeCount: domain.DefaultFreezeCount}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fb).Error
}
