// Command streakbot runs the Discord coding-streak bot: the gateway
// listener, the startup backfill, the scheduler and (optionally) the
// read-only dashboard.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-streak-bot/internal/app"
	"github.com/tbourn/go-streak-bot/internal/config"
	httpapi "github.com/tbourn/go-streak-bot/internal/http"
	"github.com/tbourn/go-streak-bot/internal/observability"
	"github.com/tbourn/go-streak-bot/internal/sysutil"
)

var version = "dev"

func main() {
	config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger, closer := sysutil.NewLogger(sysutil.LoggerOptions{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing setup")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup")
	}
	defer a.Close()

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Str("task", name).Msg("task stopped")
				stop()
			}
		}()
	}

	run("gateway", a.Bot.Run)
	run("scheduler", func(ctx context.Context) error {
		a.Scheduler.Run(ctx)
		return nil
	})
	if cfg.Streak.BackfillOnStart {
		run("backfill", func(ctx context.Context) error {
			_, err := a.Backfill(ctx)
			return err
		})
	}
	if cfg.DashboardEnabled {
		run("dashboard", func(ctx context.Context) error { return serveDashboard(ctx, a, cfg) })
	}

	logger.Info().Str("version", version).Msg("streakbot running")
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	wg.Wait()
}

func serveDashboard(ctx context.Context, a *app.App, cfg config.Config) error {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{DB: a.DB, Streaks: a.Streaks, Settings: a.Settings}, cfg)
	srv := httpapi.NewServer(r, cfg)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
