// Streak dashboard HTTP handlers.
//
// This file exposes read-only REST endpoints over the streak ledger:
//   - GET /guilds                              (tracked guilds)
//   - GET /guilds/{guild_id}/stats             (activity snapshot)
//   - GET /guilds/{guild_id}/leaderboard       (top streaks, ETag support)
//   - GET /guilds/{guild_id}/users/{user_id}   (user stats + paginated history)
//
// Handlers are transport-thin: they validate path and query input, call the
// streak services, and translate results into HTTP responses. All writes
// happen through Discord; the dashboard never mutates state.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/services"
	"github.com/tbourn/go-streak-bot/internal/utils"
)

//
// Service contracts (context-aware)
//

// StreakQueries is the read side of the streak service consumed by the
// dashboard. *services.StreakService implements it.
type StreakQueries interface {
	Leaderboard(ctx context.Context, guildID string, limit int) ([]services.LeaderboardEntry, error)
	Stats(ctx context.Context, userID, guildID string) (*services.UserStats, error)
	History(ctx context.Context, userID, guildID string, offset, limit int) ([]domain.DailyLogEntry, int64, error)
	ServerStats(ctx context.Context, guildID string) (repo.GuildStats, error)
}

// GuildLister lists tracked guilds. *services.SettingsService implements it.
type GuildLister interface {
	Guilds(ctx context.Context) ([]domain.GuildSettings, error)
}

// BoardVersion reports the row count and latest update of a guild's
// leaderboard, used to derive a weak ETag. Optional.
type BoardVersion func(ctx context.Context, guildID string) (count int64, maxUpdatedAt *time.Time, err error)

//
// Handler wiring
//

// Handlers groups the dashboard endpoints.
type Handlers struct {
	streaks StreakQueries
	guilds  GuildLister
	version BoardVersion
}

// New constructs Handlers. version may be nil to disable ETags.
func New(streaks StreakQueries, guilds GuildLister, version BoardVersion) *Handlers {
	return &Handlers{streaks: streaks, guilds: guilds, version: version}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListGuildsResponse lists tracked guilds.
type ListGuildsResponse struct {
	Guilds []domain.GuildSettings `json:"guilds"`
}

// LeaderboardResponse is the ranked board of a guild.
type LeaderboardResponse struct {
	GuildID string                      `json:"guild_id"`
	Entries []services.LeaderboardEntry `json:"entries"`
}

// UserResponse is a user's statistics and a page of their log.
type UserResponse struct {
	Stats      *services.UserStats    `json:"stats"`
	History    []domain.DailyLogEntry `json:"history"`
	Pagination Pagination             `json:"pagination"`
}

//
// Helpers
//

// snowflakeRE matches Discord ids.
var snowflakeRE = regexp.MustCompile(`^\d{1,20}$`)

// pathID reads a snowflake path parameter or aborts with 400.
func pathID(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if !snowflakeRE.MatchString(v) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a Discord id")
		return "", false
	}
	return v, true
}

// pageFrom parses page/page_size from query parameters.
func pageFrom(c *gin.Context) utils.Page {
	const (
		defaultPageSize = 30
		maxPageSize     = 100
	)
	return utils.NewPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		maxPageSize,
	)
}

//
// Handlers
//

// ListGuilds returns every tracked guild with its settings.
func (h *Handlers) ListGuilds(c *gin.Context) {
	gs, err := h.guilds.Guilds(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if gs == nil {
		gs = []domain.GuildSettings{}
	}
	ok(c, http.StatusOK, ListGuildsResponse{Guilds: gs})
}

// GuildStats returns today's activity snapshot for a guild.
func (h *Handlers) GuildStats(c *gin.Context) {
	guildID, valid := pathID(c, "guild_id")
	if !valid {
		return
	}
	s, err := h.streaks.ServerStats(c.Request.Context(), guildID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, s)
}

// Leaderboard returns the top streaks of a guild. The ?limit= query caps the
// number of entries (default 10, max 100). Responses carry a weak ETag built
// from the board's row count and last update.
func (h *Handlers) Leaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	guildID, valid := pathID(c, "guild_id")
	if !valid {
		return
	}

	limit := utils.Clamp(utils.AtoiDefault(c.Query("limit"), 10), 1, 100)

	// ETag pre-check (best effort).
	if h.version != nil {
		if count, maxTS, err := h.version(ctx, guildID); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"board:%s:%d:%d:%d"`, guildID, limit, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	entries, err := h.streaks.Leaderboard(ctx, guildID, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if entries == nil {
		entries = []services.LeaderboardEntry{}
	}
	ok(c, http.StatusOK, LeaderboardResponse{GuildID: guildID, Entries: entries})
}

// User returns a user's statistics and a page of their daily log, newest
// first.
func (h *Handlers) User(c *gin.Context) {
	ctx := c.Request.Context()
	guildID, valid := pathID(c, "guild_id")
	if !valid {
		return
	}
	userID, valid := pathID(c, "user_id")
	if !valid {
		return
	}

	st, err := h.streaks.Stats(ctx, userID, guildID)
	if errors.Is(err, services.ErrNoStreak) {
		fail(c, http.StatusNotFound, ErrCodeNoStreak, "user has no streak in this guild")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}

	page := pageFrom(c)
	items, total, err := h.streaks.History(ctx, userID, guildID, page.Offset(), page.Size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, UserResponse{
		Stats:   st,
		History: items,
		Pagination: Pagination{
			Page:       page.Number,
			PageSize:   page.Size,
			Total:      total,
			TotalPages: page.TotalPages(total),
			HasNext:    page.HasNext(total),
		},
	})
}
