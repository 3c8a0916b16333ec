package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

// GetCursor returns the last processed message ID for a channel, or
// ErrNotFound when the channel was never backfilled.
func GetCursor(ctx context.Context, db *gorm.DB, guildID, channelID string) (string, error) {
	var c domain.ChannelCursor
	err := db.WithContext(ctx).
		Where("guild_id = ? AND channel_id = ?", guildID, channelID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return c.LastProcessedID, nil
}

// SetCursor records messageID as the channel's high-water mark.
func SetCursor(ctx context.Context, db *gorm.DB, guildID, channelID, messageID string) error {
	c := domain.ChannelCursor{GuildID: guildID, ChannelID: channelID, LastProcessedID: messageID}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "channel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_processed_id", "updated_at"}),
		}).
		Create(&c).Error
}
