package services

import (
	"context"
	"errors"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/repo"
)

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Username      string `json:"username,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	LastDayNumber int    `json:"last_day_number"`
	Badge         string `json:"badge"`
}

// Leaderboard returns the top limit users of a guild, decorated with cached
// profile data when available.
func (s *StreakService) Leaderboard(ctx context.Context, guildID string, limit int) ([]LeaderboardEntry, error) {
	recs, err := repo.GetLeaderboard(ctx, s.DB, guildID, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.UserID
	}
	profiles, err := repo.GetProfiles(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}

	out := make([]LeaderboardEntry, len(recs))
	for i, r := range recs {
		p := profiles[r.UserID]
		name := p.DisplayName
		if name == "" {
			name = p.Username
		}
		out[i] = LeaderboardEntry{
			Rank:          i + 1,
			UserID:        r.UserID,
			Username:      name,
			AvatarURL:     p.AvatarURL,
			CurrentStreak: r.CurrentStreak,
			LongestStreak: r.LongestStreak,
			LastDayNumber: r.LastDayNumber,
			Badge:         Badge(r.CurrentStreak),
		}
	}
	return out, nil
}

// UserStats is the /mystats and dashboard view of one user.
type UserStats struct {
	Record    domain.StreakRecord `json:"record"`
	Rank      int                 `json:"rank"`
	Freezes   int                 `json:"freezes"`
	TotalDays int64               `json:"total_days"`
	Badge     string              `json:"badge"`
	NextGoal  int                 `json:"next_goal"`
	// LoggedToday is whether the user already posted today (UTC).
	LoggedToday bool `json:"logged_today"`
}

// Stats returns a user's statistics or ErrNoStreak.
func (s *StreakService) Stats(ctx context.Context, userID, guildID string) (*UserStats, error) {
	rec, err := repo.GetStreak(ctx, s.DB, userID, guildID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoStreak
	}
	if err != nil {
		return nil, err
	}
	rank, err := repo.UserRank(ctx, s.DB, userID, guildID)
	if err != nil {
		return nil, err
	}
	freezes, err := repo.GetFreezeCount(ctx, s.DB, userID, guildID)
	if err != nil {
		return nil, err
	}
	total, err := repo.CountHistory(ctx, s.DB, userID, guildID)
	if err != nil {
		return nil, err
	}
	logged, err := repo.HasLoggedToday(ctx, s.DB, userID, guildID, s.now())
	if err != nil {
		return nil, err
	}
	return &UserStats{
		Record:      *rec,
		Rank:        rank,
		Freezes:     freezes,
		TotalDays:   total,
		Badge:       Badge(rec.CurrentStreak),
		NextGoal:    NextGoal(rec.CurrentStreak),
		LoggedToday: logged,
	}, nil
}

// History returns a page of a user's log entries (newest first) and the
// total count.
func (s *StreakService) History(ctx context.Context, userID, guildID string, offset, limit int) ([]domain.DailyLogEntry, int64, error) {
	total, err := repo.CountHistory(ctx, s.DB, userID, guildID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.DailyLogEntry{}, 0, nil
	}
	items, err := repo.History(ctx, s.DB, userID, guildID, offset, limit)
	return items, total, err
}

// ServerStats returns today's activity snapshot for a guild.
func (s *StreakService) ServerStats(ctx context.Context, guildID string) (repo.GuildStats, error) {
	return repo.ServerStats(ctx, s.DB, guildID, s.now())
}
