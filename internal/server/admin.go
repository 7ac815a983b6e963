package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"raidbench/internal/constants"
	"raidbench/internal/domain"
	"raidbench/internal/middleware"
	"raidbench/internal/reportcache"
	"raidbench/internal/repository"
	"raidbench/internal/service"

	"github.com/rs/zerolog"
)

// AdminServer exposes the small operational surface: health, last-run
// status, manual run trigger, and cache flush.
type AdminServer struct {
	pipeline  *service.Pipeline
	runRepo   *repository.RunRepository
	benchRepo *repository.BenchRepository
	cache     *reportcache.Cache
	logger    zerolog.Logger
}

func NewAdminServer(
	pipeline *service.Pipeline,
	runRepo *repository.RunRepository,
	benchRepo *repository.BenchRepository,
	cache *reportcache.Cache,
	logger zerolog.Logger,
) *AdminServer {
	return &AdminServer{
		pipeline:  pipeline,
		runRepo:   runRepo,
		benchRepo: benchRepo,
		cache:     cache,
		logger:    logger,
	}
}

func (s *AdminServer) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("POST /api/v1/run", s.handleRun)
	mux.HandleFunc("POST /api/v1/cache/flush", s.handleCacheFlush)
	return mux
}

// reqLogger tags handler logs with the request id set by the middleware.
func (s *AdminServer) reqLogger(r *http.Request) zerolog.Logger {
	return s.logger.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Running bool              `json:"running"`
	Nights  int               `json:"nights"`
	LastRun *domain.RunRecord `json:"last_run"`
}

func (s *AdminServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	logger := s.reqLogger(r)
	lastRun, err := s.runRepo.GetLatest(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load last run")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	nights, err := s.benchRepo.NightCount(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to count nights")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Running: s.pipeline.Running(),
		Nights:  nights,
		LastRun: lastRun,
	})
}

func (s *AdminServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.pipeline.Running() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "run already in flight"})
		return
	}

	logger := s.reqLogger(r)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RunTimeout+time.Minute)
		defer cancel()
		if _, err := s.pipeline.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("triggered run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *AdminServer) handleCacheFlush(w http.ResponseWriter, r *http.Request) {
	n, err := s.cache.Flush()
	if err != nil {
		logger := s.reqLogger(r)
		logger.Error().Err(err).Msg("cache flush failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"flushed": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
