package fx

import (
	"raidbench/internal/config"
	"raidbench/internal/database"
	"raidbench/internal/logger"
	"raidbench/internal/reportcache"
	"raidbench/internal/repository"
	"raidbench/internal/scheduler"
	"raidbench/internal/server"
	"raidbench/internal/service"
	"raidbench/internal/sheets"
	"raidbench/internal/wcl"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(config.Load),
	fx.Provide(newLogger),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewReportRepository),
	fx.Provide(repository.NewFightRepository),
	fx.Provide(repository.NewBlockRepository),
	fx.Provide(repository.NewBenchRepository),
	fx.Provide(repository.NewWeekRepository),
	fx.Provide(repository.NewRosterRepository),
	fx.Provide(repository.NewRunRepository),
	// external clients
	fx.Provide(wcl.NewClient),
	fx.Provide(reportcache.New),
	fx.Provide(sheets.NewService),
	// svc
	fx.Provide(service.NewIngestService),
	fx.Provide(service.NewComputeService),
	fx.Provide(service.NewRollupService),
	fx.Provide(service.NewExportService),
	fx.Provide(service.NewPipeline),
	// runtime
	fx.Provide(scheduler.New),
	fx.Provide(server.NewAdminServer),
)

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(cfg.LogLevel)
}
