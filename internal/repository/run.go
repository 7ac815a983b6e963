package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"raidbench/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// RunRepository tracks pipeline invocations for the admin status endpoint.
type RunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRunRepository(db *sql.DB, logger zerolog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Start inserts a new running record and returns its id.
func (r *RunRepository) Start(ctx context.Context) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate nanoid: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)
	`, id, time.Now().UTC(), domain.RunRunning)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// Finish marks a run as completed or failed and records its counters.
func (r *RunRepository) Finish(ctx context.Context, id, status string, nights, reports int, runErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, nights = ?, reports = ?, error = ? WHERE id = ?
	`, time.Now().UTC(), status, nights, reports, runErr, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	return nil
}

// GetLatest returns the most recently started run, or nil if none exist.
func (r *RunRepository) GetLatest(ctx context.Context) (*domain.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, nights, reports, error
		FROM runs ORDER BY started_at DESC LIMIT 1
	`)

	var rec domain.RunRecord
	var finished sql.NullTime
	err := row.Scan(&rec.ID, &rec.StartedAt, &finished, &rec.Status, &rec.Nights, &rec.Reports, &rec.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		rec.FinishedAt = &finished.Time
	}
	return &rec, nil
}
