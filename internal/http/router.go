// Package httpapi serves the read-only streak dashboard: health, Prometheus
// metrics and JSON views of guild leaderboards and user history. The bot
// itself never depends on it; it runs only when DASHBOARD_ENABLED is set.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. AccessLog (scrubbed)
//  4. Recovery
//  5. Metrics
//  6. Rate limiter (per IP)
//  7. gzip, CORS and security headers
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-streak-bot/internal/config"
	"github.com/tbourn/go-streak-bot/internal/http/handlers"
	"github.com/tbourn/go-streak-bot/internal/http/middleware"
	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/services"
)

// Deps are the services the dashboard reads from.
type Deps struct {
	DB       *gorm.DB
	Streaks  *services.StreakService
	Settings *services.SettingsService
}

// RegisterRoutes attaches middleware and endpoints to r.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.AccessLogOptions{}))
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(corsFor(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(deps.Streaks, deps.Settings, func(ctx context.Context, guildID string) (int64, *time.Time, error) {
		return repo.LeaderboardStats(ctx, deps.DB, guildID)
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/guilds", h.ListGuilds)
		api.GET("/guilds/:guild_id/stats", h.GuildStats)
		api.GET("/guilds/:guild_id/leaderboard", h.Leaderboard)
		api.GET("/guilds/:guild_id/users/:user_id", h.User)
	}
}

// corsFor allows any origin when none are configured; the dashboard is
// read-only and carries no credentials.
func corsFor(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Accept", "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", "ETag"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// NewServer wraps r in an http.Server using the configured timeouts.
func NewServer(r http.Handler, cfg config.Config) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
