package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/services"
)

// ---------- fakes ----------

type fakeStreaks struct {
	board      []services.LeaderboardEntry
	gotLimit   int
	stats      *services.UserStats
	statsErr   error
	history    []domain.DailyLogEntry
	total      int64
	gotOffset  int
	gotPageLen int
	server     repo.GuildStats
	serverErr  error
}

func (f *fakeStreaks) Leaderboard(_ context.Context, _ string, limit int) ([]services.LeaderboardEntry, error) {
	f.gotLimit = limit
	return f.board, nil
}

func (f *fakeStreaks) Stats(context.Context, string, string) (*services.UserStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeStreaks) History(_ context.Context, _, _ string, offset, limit int) ([]domain.DailyLogEntry, int64, error) {
	f.gotOffset, f.gotPageLen = offset, limit
	return f.history, f.total, nil
}

func (f *fakeStreaks) ServerStats(context.Context, string) (repo.GuildStats, error) {
	return f.server, f.serverErr
}

type fakeGuilds struct{ list []domain.GuildSettings }

func (f fakeGuilds) Guilds(context.Context) ([]domain.GuildSettings, error) { return f.list, nil }

func newRouter(s *fakeStreaks, v BoardVersion) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(s, fakeGuilds{list: []domain.GuildSettings{{GuildID: "100", Name: "Gophers"}}}, v)
	r.GET("/guilds", h.ListGuilds)
	r.GET("/guilds/:guild_id/stats", h.GuildStats)
	r.GET("/guilds/:guild_id/leaderboard", h.Leaderboard)
	r.GET("/guilds/:guild_id/users/:user_id", h.User)
	return r
}

func do(r http.Handler, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------- tests ----------

func TestListGuilds(t *testing.T) {
	w := do(newRouter(&fakeStreaks{}, nil), "/guilds", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ListGuildsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Guilds) != 1 || resp.Guilds[0].Name != "Gophers" {
		t.Fatalf("body: %+v", resp)
	}
}

func TestGuildStats(t *testing.T) {
	s := &fakeStreaks{server: repo.GuildStats{TotalUsers: 4, ActiveToday: 2, ActivityRate: 50}}
	r := newRouter(s, nil)

	w := do(r, "/guilds/100/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var got repo.GuildStats
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.TotalUsers != 4 || got.ActivityRate != 50 {
		t.Fatalf("body: %+v", got)
	}

	if w := do(r, "/guilds/not-an-id/stats", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", w.Code)
	}

	s.serverErr = errors.New("db down")
	if w := do(r, "/guilds/100/stats", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("error status=%d", w.Code)
	}
}

func TestLeaderboard_LimitAndETag(t *testing.T) {
	s := &fakeStreaks{board: []services.LeaderboardEntry{{Rank: 1, UserID: "1", CurrentStreak: 7}}}
	ts := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	version := func(context.Context, string) (int64, *time.Time, error) { return 1, &ts, nil }
	r := newRouter(s, version)

	w := do(r, "/guilds/100/leaderboard?limit=500", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if s.gotLimit != 100 {
		t.Fatalf("limit should be capped, got %d", s.gotLimit)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	w = do(r, "/guilds/100/leaderboard?limit=500", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional status=%d", w.Code)
	}

	w = do(r, "/guilds/100/leaderboard", nil)
	var resp LeaderboardResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if s.gotLimit != 10 || len(resp.Entries) != 1 || resp.GuildID != "100" {
		t.Fatalf("default limit=%d body=%+v", s.gotLimit, resp)
	}
}

func TestUser(t *testing.T) {
	s := &fakeStreaks{
		stats:   &services.UserStats{Rank: 2, Badge: "🔥"},
		history: []domain.DailyLogEntry{{UserID: "1", GuildID: "100", DayNumber: 3}},
		total:   45,
	}
	r := newRouter(s, nil)

	w := do(r, "/guilds/100/users/1?page=2&page_size=20", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if s.gotOffset != 20 || s.gotPageLen != 20 {
		t.Fatalf("offset=%d limit=%d", s.gotOffset, s.gotPageLen)
	}
	var resp UserResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNext || resp.Stats.Rank != 2 {
		t.Fatalf("body: %+v", resp)
	}

	s.statsErr = services.ErrNoStreak
	w = do(r, "/guilds/100/users/1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("no streak status=%d", w.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeNoStreak {
		t.Fatalf("code=%q", er.Code)
	}
}
