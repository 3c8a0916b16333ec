// Package domain defines the persistence models for streak tracking: per-user
// streak records, the daily attendance log, freeze balances, backfill cursors,
// and per-guild settings and scheduler markers. These types are mapped with
// GORM and form the core data layer of the bot.
//
// Discord snowflakes are stored as strings so the schema stays portable across
// SQLite, MySQL, and Postgres without unsigned 64-bit column tricks.
package domain

import "time"

// StreakRecord is the durable streak state for one user in one guild.
//
// Fields:
//   - UserID / GuildID: composite primary key.
//   - CurrentStreak: consecutive qualifying days; 0 after a reset.
//   - LongestStreak: maximum CurrentStreak ever observed; never decreases.
//   - LastLogDate: UTC calendar date of the most recent qualifying event
//     (or of the last reset).
//   - LastDayNumber: the day label attached to the last qualifying event.
type StreakRecord struct {
	UserID        string    `json:"user_id"         gorm:"type:varchar(32);primaryKey"`
	GuildID       string    `json:"guild_id"        gorm:"type:varchar(32);primaryKey;index:idx_streak_board,priority:1"`
	CurrentStreak int       `json:"current_streak"  gorm:"not null;default:0;index:idx_streak_board,priority:2"`
	LongestStreak int       `json:"longest_streak"  gorm:"not null;default:0"`
	LastLogDate   Date      `json:"last_log_date"   gorm:"type:varchar(10);not null;default:''"`
	LastDayNumber int       `json:"last_day_number" gorm:"not null;default:0"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for StreakRecord.
func (StreakRecord) TableName() string { return "streaks" }

// DailyLogEntry records that a user logged on a given calendar date. The
// composite primary key makes a second write for the same date collide, which
// is how concurrent duplicate submissions are detected.
type DailyLogEntry struct {
	UserID    string    `json:"user_id"    gorm:"type:varchar(32);primaryKey"`
	GuildID   string    `json:"guild_id"   gorm:"type:varchar(32);primaryKey;index:idx_log_guild_date,priority:1"`
	LogDate   Date      `json:"log_date"   gorm:"type:varchar(10);primaryKey;index:idx_log_guild_date,priority:2"`
	DayNumber int       `json:"day_number" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for DailyLogEntry.
func (DailyLogEntry) TableName() string { return "daily_logs" }

// FreezeBalance holds a user's streak freezes. New users start with one.
type FreezeBalance struct {
	UserID         string `json:"user_id"          gorm:"type:varchar(32);primaryKey"`
	GuildID        string `json:"guild_id"         gorm:"type:varchar(32);primaryKey"`
	FreezeCount    int    `json:"freeze_count"     gorm:"not null;default:1;check:freeze_count >= 0"`
	LastFreezeDate Date   `json:"last_freeze_date" gorm:"type:varchar(10);not null;default:''"`
}

// TableName returns the database table name for FreezeBalance.
func (FreezeBalance) TableName() string { return "streak_freezes" }

// DefaultFreezeCount is the balance a user has before any freeze was used.
const DefaultFreezeCount = 1

// ChannelCursor is the backfill high-water mark for a channel.
type ChannelCursor struct {
	GuildID         string    `json:"guild_id"          gorm:"type:varchar(32);primaryKey"`
	ChannelID       string    `json:"channel_id"        gorm:"type:varchar(32);primaryKey"`
	LastProcessedID string    `json:"last_processed_id" gorm:"type:varchar(32);not null"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChannelCursor.
func (ChannelCursor) TableName() string { return "bot_channel_state" }

// GuildSettings carries per-guild configuration managed via admin commands.
//
// ReminderTime is a wall-clock "HH:MM" interpreted in Timezone (an IANA zone
// name). Channel IDs are empty when unset.
type GuildSettings struct {
	GuildID            string    `json:"guild_id"             gorm:"type:varchar(32);primaryKey"`
	Name               string    `json:"name"                 gorm:"type:varchar(100)"`
	ReminderTime       string    `json:"reminder_time"        gorm:"type:varchar(5);not null;default:'18:00'"`
	Timezone           string    `json:"timezone"             gorm:"type:varchar(64);not null;default:'UTC'"`
	ReminderChannelID  string    `json:"reminder_channel_id"  gorm:"type:varchar(32)"`
	ChallengeChannelID string    `json:"challenge_channel_id" gorm:"type:varchar(32)"`
	StreakChannelID    string    `json:"streak_channel_id"    gorm:"type:varchar(32)"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the database table name for GuildSettings.
func (GuildSettings) TableName() string { return "server_settings" }

// Default guild settings.
const (
	DefaultReminderTime = "18:00"
	DefaultTimezone     = "UTC"
)

// UserSettings holds per-user preferences.
type UserSettings struct {
	UserID         string `json:"user_id"          gorm:"type:varchar(32);primaryKey"`
	GuildID        string `json:"guild_id"         gorm:"type:varchar(32);primaryKey"`
	OptOutMentions bool   `json:"opt_out_mentions" gorm:"not null;default:false"`
}

// TableName returns the database table name for UserSettings.
func (UserSettings) TableName() string { return "user_settings" }

// GuildMarker stores the scheduler dedup markers for a guild. Each field is
// the last period a trigger fired for: a local date for reminders, an ISO
// year-week ("2025-W07") for the weekly posts.
type GuildMarker struct {
	GuildID           string     `json:"guild_id"            gorm:"type:varchar(32);primaryKey"`
	LastReminderDate  Date       `json:"last_reminder_date"  gorm:"type:varchar(10);not null;default:''"`
	LastChallengeWeek string     `json:"last_challenge_week" gorm:"type:varchar(8)"`
	LastSummaryWeek   string     `json:"last_summary_week"   gorm:"type:varchar(8)"`
	LastSeenAt        *time.Time `json:"last_seen_at"`
}

// TableName returns the database table name for GuildMarker.
func (GuildMarker) TableName() string { return "bot_meta" }

// UserProfile caches display data for the dashboard.
type UserProfile struct {
	UserID      string    `json:"user_id"      gorm:"type:varchar(32);primaryKey"`
	Username    string    `json:"username"     gorm:"type:varchar(100)"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(100)"`
	AvatarURL   string    `json:"avatar_url"   gorm:"type:varchar(255)"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "users" }
