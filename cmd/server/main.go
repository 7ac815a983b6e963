package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"raidbench/internal/config"
	"raidbench/internal/constants"
	fxmodules "raidbench/internal/fx"
	"raidbench/internal/middleware"
	"raidbench/internal/reportcache"
	"raidbench/internal/scheduler"
	"raidbench/internal/server"
	"raidbench/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(run),
	).Run()
}

func run(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	pipeline *service.Pipeline,
	sched *scheduler.Scheduler,
	adminServer *server.AdminServer,
	cache *reportcache.Cache,
	db *sql.DB,
	logger zerolog.Logger,
) {
	logger.Info().
		Str("run_mode", cfg.RunMode).
		Str("log_level", cfg.LogLevel).
		Str("db_path", cfg.DBPath).
		Str("timezone", cfg.Timezone).
		Int("break_window_start_min", cfg.BreakWindowStartMin).
		Int("break_window_end_min", cfg.BreakWindowEndMin).
		Int("min_break_min", cfg.MinBreakMin).
		Int("max_break_min", cfg.MaxBreakMin).
		Msg("configuration loaded")

	if cfg.RunMode == config.RunModeOnce {
		runOnce(lc, shutdowner, pipeline, cache, db, logger)
		return
	}
	serve(lc, cfg, sched, adminServer, cache, db, logger)
}

func runOnce(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	pipeline *service.Pipeline,
	cache *reportcache.Cache,
	db *sql.DB,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if _, err := pipeline.Run(context.Background()); err != nil {
					logger.Error().Err(err).Msg("run failed")
					shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return closeResources(cache, db, logger)
		},
	})
}

func serve(
	lc fx.Lifecycle,
	cfg *config.Config,
	sched *scheduler.Scheduler,
	adminServer *server.AdminServer,
	cache *reportcache.Cache,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	requestIDMiddleware := middleware.RequestID(logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.AdminPort),
		Handler: requestIDMiddleware(c.Handler(adminServer.Mux())),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sched.Start()
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("admin server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("admin server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down")
			sched.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("admin server shutdown failed")
			}
			return closeResources(cache, db, logger)
		},
	})
}

func closeResources(cache *reportcache.Cache, db *sql.DB, logger zerolog.Logger) error {
	if err := cache.Close(); err != nil {
		logger.Warn().Err(err).Msg("error closing report cache")
	}
	if err := db.Close(); err != nil {
		logger.Warn().Err(err).Msg("error closing database connection")
	}
	logger.Info().Msg("stopped gracefully")
	return nil
}
