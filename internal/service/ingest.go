package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"raidbench/internal/config"
	"raidbench/internal/constants"
	"raidbench/internal/domain"
	"raidbench/internal/reportcache"
	"raidbench/internal/repository"
	"raidbench/internal/sheets"
	"raidbench/internal/timeutil"
	"raidbench/internal/wcl"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// IngestService pulls the operator workbook and the listed reports into the
// store and hands the pipeline a per-run snapshot plus raw observations
// grouped by night.
type IngestService struct {
	sheets     *sheets.Service
	wcl        *wcl.Client
	cache      *reportcache.Cache
	reportRepo *repository.ReportRepository
	rosterRepo *repository.RosterRepository
	cfg        *config.Config
	logger     zerolog.Logger
}

func NewIngestService(
	sheetsSvc *sheets.Service,
	wclClient *wcl.Client,
	cache *reportcache.Cache,
	reportRepo *repository.ReportRepository,
	rosterRepo *repository.RosterRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *IngestService {
	return &IngestService{
		sheets:     sheetsSvc,
		wcl:        wclClient,
		cache:      cache,
		reportRepo: reportRepo,
		rosterRepo: rosterRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run ingests the workbook and every listed report. Returns the snapshot and
// the fight observations grouped by night id.
func (s *IngestService) Run(ctx context.Context) (*domain.Snapshot, map[string][]domain.FightObservation, error) {
	sheetsCtx, cancel := context.WithTimeout(ctx, constants.SheetsTimeout)
	defer cancel()

	aliasMap, err := s.sheets.ReadAliasMap(sheetsCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read alias map: %w", err)
	}
	roster, err := s.sheets.ReadRoster(sheetsCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read roster: %w", err)
	}
	overrides, err := s.sheets.ReadOverrides(sheetsCtx, aliasMap)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read overrides: %w", err)
	}
	refs, err := s.sheets.ReadReports(sheetsCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read reports tab: %w", err)
	}

	if err := s.rosterRepo.ReplaceAliases(ctx, aliasMap); err != nil {
		return nil, nil, err
	}
	if err := s.rosterRepo.ReplaceRoster(ctx, roster); err != nil {
		return nil, nil, err
	}
	if err := s.rosterRepo.ReplaceOverrides(ctx, overrides); err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Int("reports", len(refs)).
		Int("roster", len(roster)).
		Int("aliases", len(aliasMap)).
		Int("overrides", len(overrides)).
		Msg("workbook ingested")

	reports, obsByNight, err := s.fetchReports(ctx, refs)
	if err != nil {
		return nil, nil, err
	}

	for i := range reports {
		if err := s.reportRepo.Upsert(ctx, &reports[i]); err != nil {
			return nil, nil, err
		}
	}

	snap := &domain.Snapshot{
		Reports:   reports,
		AliasMap:  aliasMap,
		Roster:    roster,
		Overrides: groupOverrides(overrides),
	}
	return snap, obsByNight, nil
}

func (s *IngestService) fetchReports(ctx context.Context, refs []sheets.ReportRef) ([]domain.Report, map[string][]domain.FightObservation, error) {
	var mu sync.Mutex
	reports := make([]domain.Report, 0, len(refs))
	obsByNight := make(map[string][]domain.FightObservation)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.WCLFetchParallel)

	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gCtx, constants.WCLTimeout)
			defer cancel()

			bundle, err := s.cache.Get(ref.Code)
			if err != nil {
				s.logger.Warn().Err(err).Str("code", ref.Code).Msg("cache read failed")
			}
			if bundle == nil {
				bundle, err = s.wcl.FetchReport(fetchCtx, ref.Code)
				if err != nil {
					return fmt.Errorf("failed to fetch report %s: %w", ref.Code, err)
				}
				if err := s.cache.Set(bundle); err != nil {
					s.logger.Warn().Err(err).Str("code", ref.Code).Msg("cache write failed")
				}
			}

			rep, obs := s.buildReport(ref, bundle)

			mu.Lock()
			reports = append(reports, rep)
			obsByNight[rep.NightID] = append(obsByNight[rep.NightID], obs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].Code < reports[j].Code })
	return reports, obsByNight, nil
}

func (s *IngestService) buildReport(ref sheets.ReportRef, bundle *wcl.ReportBundle) (domain.Report, []domain.FightObservation) {
	startMs := int64(bundle.StartTime)
	endMs := int64(bundle.EndTime)
	nightID := timeutil.NightID(startMs, s.cfg.Location)

	rep := domain.Report{
		Code:                 bundle.Code,
		Title:                bundle.Title,
		StartMs:              startMs,
		EndMs:                endMs,
		NightID:              nightID,
		BreakOverrideStartMs: timeutil.WallClockToMs(ref.BreakOverrideStart, startMs, s.cfg.Location),
		BreakOverrideEndMs:   timeutil.WallClockToMs(ref.BreakOverrideEnd, startMs, s.cfg.Location),
	}

	obs := wcl.Observations(bundle, nightID)
	s.logger.Debug().
		Str("code", bundle.Code).
		Str("night", nightID).
		Int("fights", len(obs)).
		Msg("report ingested")
	return rep, obs
}

func groupOverrides(overrides []domain.Override) map[string]map[string]domain.Override {
	out := make(map[string]map[string]domain.Override)
	for _, ov := range overrides {
		if out[ov.NightID] == nil {
			out[ov.NightID] = make(map[string]domain.Override)
		}
		out[ov.NightID][ov.Main] = ov
	}
	return out
}
