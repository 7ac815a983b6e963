package service

import (
	"context"
	"fmt"
	"sort"

	"raidbench/internal/config"
	"raidbench/internal/constants"
	"raidbench/internal/domain"
	"raidbench/internal/engine"
	"raidbench/internal/repository"
	"raidbench/internal/timeutil"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ComputeService runs the per-night chain: canonicalize, envelope, break,
// participation, blocks, bench rows, QA summary. Each night is independent;
// nights run under a bounded errgroup.
type ComputeService struct {
	fightRepo *repository.FightRepository
	blockRepo *repository.BlockRepository
	benchRepo *repository.BenchRepository
	cfg       *config.Config
	logger    zerolog.Logger
}

func NewComputeService(
	fightRepo *repository.FightRepository,
	blockRepo *repository.BlockRepository,
	benchRepo *repository.BenchRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *ComputeService {
	return &ComputeService{
		fightRepo: fightRepo,
		blockRepo: blockRepo,
		benchRepo: benchRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run computes every night present in the observation set and returns the
// number of nights processed.
func (s *ComputeService) Run(ctx context.Context, snap *domain.Snapshot, obsByNight map[string][]domain.FightObservation) (int, error) {
	nights := make([]string, 0, len(obsByNight))
	for night := range obsByNight {
		nights = append(nights, night)
	}
	sort.Strings(nights)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.NightComputeLimit)
	for _, night := range nights {
		night := night
		g.Go(func() error {
			if err := s.ComputeNight(gCtx, night, obsByNight[night], snap); err != nil {
				return fmt.Errorf("night %s: %w", night, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(nights), nil
}

// ComputeNight processes one night end to end. A night without primary-tier
// fights is recorded in QA and its derived rows cleared; it is not an error.
func (s *ComputeService) ComputeNight(ctx context.Context, nightID string, obs []domain.FightObservation, snap *domain.Snapshot) error {
	fights := engine.Canonicalize(obs, s.cfg.RoundToleranceMs)
	if err := s.fightRepo.ReplaceNight(ctx, nightID, fights); err != nil {
		return err
	}

	summary := domain.NightSummary{
		NightID:     nightID,
		ReportCodes: reportCodesFor(snap.Reports, nightID),
	}

	env := engine.ComputeEnvelope(fights)
	if env == nil {
		s.logger.Warn().Str("night", nightID).Msg("no primary-tier fights, skipping night")
		if err := s.blockRepo.ReplaceNight(ctx, nightID, nil); err != nil {
			return err
		}
		if err := s.benchRepo.ReplaceNight(ctx, nightID, nil); err != nil {
			return err
		}
		return s.benchRepo.UpsertSummary(ctx, &summary)
	}
	summary.NightStartMs = env.StartMs
	summary.NightEndMs = env.EndMs
	for _, f := range fights {
		if f.Mythic && !f.Trash() {
			summary.MythicFights++
		}
	}

	br, diag := s.resolveBreak(nightID, fights, snap, &summary)
	preMs, postMs := engine.SplitPrePost(*env, br)
	summary.PreMin = timeutil.MsToMin(preMs)
	summary.PostMin = timeutil.MsToMin(postMs)
	summary.LargestGap = diag.LargestGapMin
	summary.Candidates = diag.Candidates

	participation := engine.BuildParticipation(fights)
	if err := s.fightRepo.ReplaceParticipation(ctx, nightID, participation); err != nil {
		return err
	}

	blocks := engine.BuildBlocks(participation, br, fights)
	if err := s.blockRepo.ReplaceNight(ctx, nightID, blocks); err != nil {
		return err
	}

	lastTier := engine.LastTierBossMains(fights, env.StartMs, snap.AliasMap)
	benchRows := engine.BenchMinutesForNight(nightID, blocks, preMs, postMs, snap.OverridesFor(nightID), lastTier, snap.AliasMap)
	if err := s.benchRepo.ReplaceNight(ctx, nightID, benchRows); err != nil {
		return err
	}

	if err := s.benchRepo.UpsertSummary(ctx, &summary); err != nil {
		return err
	}

	s.logger.Info().
		Str("night", nightID).
		Int("fights", len(fights)).
		Int("blocks", len(blocks)).
		Int("bench_rows", len(benchRows)).
		Bool("break_found", br != nil).
		Msg("night computed")
	return nil
}

// resolveBreak prefers an operator-supplied override from any of the night's
// reports; detection diagnostics are recorded either way.
func (s *ComputeService) resolveBreak(nightID string, fights []domain.Fight, snap *domain.Snapshot, summary *domain.NightSummary) (*domain.Range, domain.BreakDiagnostics) {
	detected, diag := engine.DetectBreak(fights, engine.BreakConfig{
		WindowStartMin: s.cfg.BreakWindowStartMin,
		WindowEndMin:   s.cfg.BreakWindowEndMin,
		MinBreakMin:    s.cfg.MinBreakMin,
		MaxBreakMin:    s.cfg.MaxBreakMin,
	})

	for _, rep := range snap.Reports {
		if rep.NightID != nightID || rep.BreakOverrideStartMs == nil || rep.BreakOverrideEndMs == nil {
			continue
		}
		if *rep.BreakOverrideEndMs <= *rep.BreakOverrideStartMs {
			s.logger.Warn().Str("night", nightID).Str("code", rep.Code).Msg("ignoring inverted break override")
			continue
		}
		summary.OverrideUsed = true
		br := &domain.Range{StartMs: *rep.BreakOverrideStartMs, EndMs: *rep.BreakOverrideEndMs}
		summary.BreakStartMs, summary.BreakEndMs = &br.StartMs, &br.EndMs
		return br, diag
	}

	if detected != nil {
		summary.BreakStartMs, summary.BreakEndMs = &detected.StartMs, &detected.EndMs
	}
	return detected, diag
}

func reportCodesFor(reports []domain.Report, nightID string) []string {
	var codes []string
	for _, r := range reports {
		if r.NightID == nightID {
			codes = append(codes, r.Code)
		}
	}
	sort.Strings(codes)
	return codes
}
