package service

import (
	"context"
	"sync/atomic"

	"raidbench/internal/constants"
	"raidbench/internal/domain"
	"raidbench/internal/repository"

	"github.com/rs/zerolog"
)

// Pipeline orchestrates ingest, compute, rollup, and export, bracketed by a
// run record. Runs are serialized; a second Run while one is active is a
// no-op.
type Pipeline struct {
	ingest  *IngestService
	compute *ComputeService
	rollup  *RollupService
	export  *ExportService
	runRepo *repository.RunRepository
	logger  zerolog.Logger
	running atomic.Bool
}

func NewPipeline(
	ingest *IngestService,
	compute *ComputeService,
	rollup *RollupService,
	export *ExportService,
	runRepo *repository.RunRepository,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		ingest:  ingest,
		compute: compute,
		rollup:  rollup,
		export:  export,
		runRepo: runRepo,
		logger:  logger,
	}
}

// Running reports whether a run is currently in flight.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run executes one full pipeline pass. Returns the run id, or "" when a run
// was already in flight.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Info().Msg("run already in flight, skipping")
		return "", nil
	}
	defer p.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, constants.RunTimeout)
	defer cancel()

	id, err := p.runRepo.Start(ctx)
	if err != nil {
		return "", err
	}
	p.logger.Info().Str("run_id", id).Msg("run started")

	nights, reports, err := p.run(ctx)
	if err != nil {
		p.logger.Error().Err(err).Str("run_id", id).Msg("run failed")
		if finishErr := p.finish(id, domain.RunFailed, nights, reports, err.Error()); finishErr != nil {
			p.logger.Error().Err(finishErr).Str("run_id", id).Msg("failed to record run failure")
		}
		return id, err
	}

	if err := p.finish(id, domain.RunOK, nights, reports, ""); err != nil {
		return id, err
	}
	p.logger.Info().
		Str("run_id", id).
		Int("nights", nights).
		Int("reports", reports).
		Msg("run completed")
	return id, nil
}

// finish writes the terminal run record. The run context may already be
// expired when a run fails on its deadline, so the record gets its own
// short-lived context.
func (p *Pipeline) finish(id, status string, nights, reports int, runErr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()
	return p.runRepo.Finish(ctx, id, status, nights, reports, runErr)
}

func (p *Pipeline) run(ctx context.Context) (nights, reports int, err error) {
	snap, obsByNight, err := p.ingest.Run(ctx)
	if err != nil {
		return 0, 0, err
	}
	reports = len(snap.Reports)

	nights, err = p.compute.Run(ctx, snap, obsByNight)
	if err != nil {
		return nights, reports, err
	}

	if err := p.rollup.Run(ctx, snap.Roster); err != nil {
		return nights, reports, err
	}
	if err := p.export.Run(ctx); err != nil {
		return nights, reports, err
	}
	return nights, reports, nil
}
