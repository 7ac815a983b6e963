package scheduler

import (
	"context"
	"time"

	"raidbench/internal/config"
	"raidbench/internal/service"

	"github.com/rs/zerolog"
)

// Scheduler triggers pipeline runs on a fixed interval. The first run fires
// immediately on start; overlapping runs are skipped by the pipeline itself.
type Scheduler struct {
	pipeline *service.Pipeline
	cfg      *config.Config
	logger   zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(pipeline *service.Pipeline, cfg *config.Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		cfg:      cfg,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx)
	s.logger.Info().Dur("interval", s.cfg.RunInterval).Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.pipeline.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled run failed")
	}
}
