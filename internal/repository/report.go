package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"raidbench/internal/domain"

	"github.com/rs/zerolog"
)

type ReportRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewReportRepository(db *sql.DB, logger zerolog.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: logger}
}

func (r *ReportRepository) Upsert(ctx context.Context, rep *domain.Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (code, title, start_ms, end_ms, night_id, break_override_start_ms, break_override_end_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			title = excluded.title,
			start_ms = excluded.start_ms,
			end_ms = excluded.end_ms,
			night_id = excluded.night_id,
			break_override_start_ms = excluded.break_override_start_ms,
			break_override_end_ms = excluded.break_override_end_ms,
			updated_at = excluded.updated_at
	`, rep.Code, rep.Title, rep.StartMs, rep.EndMs, rep.NightID,
		nullableInt64(rep.BreakOverrideStartMs), nullableInt64(rep.BreakOverrideEndMs), time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert report %s: %w", rep.Code, err)
	}
	return nil
}

func (r *ReportRepository) GetByNight(ctx context.Context, nightID string) ([]domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, title, start_ms, end_ms, night_id, break_override_start_ms, break_override_end_ms
		FROM reports WHERE night_id = ? ORDER BY code
	`, nightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *ReportRepository) GetAll(ctx context.Context) ([]domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, title, start_ms, end_ms, night_id, break_override_start_ms, break_override_end_ms
		FROM reports ORDER BY night_id, code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func scanReports(rows *sql.Rows) ([]domain.Report, error) {
	var out []domain.Report
	for rows.Next() {
		var rep domain.Report
		var bos, boe sql.NullInt64
		if err := rows.Scan(&rep.Code, &rep.Title, &rep.StartMs, &rep.EndMs, &rep.NightID, &bos, &boe); err != nil {
			return nil, err
		}
		if bos.Valid {
			rep.BreakOverrideStartMs = &bos.Int64
		}
		if boe.Valid {
			rep.BreakOverrideEndMs = &boe.Int64
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
