package service

import (
	"context"
	"fmt"

	"raidbench/internal/config"
	"raidbench/internal/domain"
	"raidbench/internal/engine"
	"raidbench/internal/repository"
	"raidbench/internal/timeutil"

	"github.com/rs/zerolog"
)

// RollupService aggregates all persisted per-night rows into week totals and
// season rankings. Both tables are replaced wholesale so removed nights and
// roster changes wash out on the next run.
type RollupService struct {
	benchRepo *repository.BenchRepository
	weekRepo  *repository.WeekRepository
	cfg       *config.Config
	logger    zerolog.Logger
}

func NewRollupService(
	benchRepo *repository.BenchRepository,
	weekRepo *repository.WeekRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *RollupService {
	return &RollupService{benchRepo: benchRepo, weekRepo: weekRepo, cfg: cfg, logger: logger}
}

func (s *RollupService) anchor(nightID string) (string, error) {
	return timeutil.WeekAnchor(nightID, s.cfg.Location, s.cfg.ResetWeekday, s.cfg.ResetHour, s.cfg.ResetMinute)
}

func (s *RollupService) Run(ctx context.Context, roster []domain.RosterMember) error {
	benchRows, err := s.benchRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bench rows: %w", err)
	}

	weeks := engine.RollupWeeks(benchRows, roster, s.anchor)
	if err := s.weekRepo.ReplaceAll(ctx, weeks); err != nil {
		return err
	}

	rankings := engine.Rankings(weeks, roster)
	if err := s.weekRepo.ReplaceRankings(ctx, rankings); err != nil {
		return err
	}

	s.logger.Info().
		Int("week_rows", len(weeks)).
		Int("rankings", len(rankings)).
		Msg("rollup completed")
	return nil
}
