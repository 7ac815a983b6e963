package service

import (
	"context"
	"fmt"

	"raidbench/internal/constants"
	"raidbench/internal/repository"
	"raidbench/internal/sheets"

	"github.com/rs/zerolog"
)

// ExportService replaces the four result tabs of the workbook from the
// store.
type ExportService struct {
	sheets    *sheets.Service
	benchRepo *repository.BenchRepository
	weekRepo  *repository.WeekRepository
	logger    zerolog.Logger
}

func NewExportService(
	sheetsSvc *sheets.Service,
	benchRepo *repository.BenchRepository,
	weekRepo *repository.WeekRepository,
	logger zerolog.Logger,
) *ExportService {
	return &ExportService{sheets: sheetsSvc, benchRepo: benchRepo, weekRepo: weekRepo, logger: logger}
}

func (s *ExportService) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.SheetsTimeout)
	defer cancel()

	summaries, err := s.benchRepo.GetSummaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to load night summaries: %w", err)
	}
	if err := s.sheets.WriteNightQA(ctx, summaries); err != nil {
		return err
	}

	benchRows, err := s.benchRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bench rows: %w", err)
	}
	if err := s.sheets.WriteBenchNights(ctx, benchRows); err != nil {
		return err
	}

	weeks, err := s.weekRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load week rows: %w", err)
	}
	if err := s.sheets.WriteBenchWeeks(ctx, weeks); err != nil {
		return err
	}

	rankings, err := s.weekRepo.GetRankings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rankings: %w", err)
	}
	if err := s.sheets.WriteRankings(ctx, rankings); err != nil {
		return err
	}

	s.logger.Info().
		Int("nights", len(summaries)).
		Int("bench_rows", len(benchRows)).
		Int("week_rows", len(weeks)).
		Int("rankings", len(rankings)).
		Msg("export completed")
	return nil
}
