package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"raidbench/internal/constants"
	"raidbench/internal/domain"

	"github.com/rs/zerolog"
)

// BenchRepository stores per-night bench rows and the night QA summaries.
type BenchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBenchRepository(db *sql.DB, logger zerolog.Logger) *BenchRepository {
	return &BenchRepository{db: db, logger: logger}
}

func (r *BenchRepository) ReplaceNight(ctx context.Context, nightID string, benchRows []domain.BenchRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bench_nights WHERE night_id = ?`, nightID); err != nil {
		return fmt.Errorf("failed to delete stale bench rows for %s: %w", nightID, err)
	}

	for i := 0; i < len(benchRows); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(benchRows) {
			end = len(benchRows)
		}
		for _, b := range benchRows[i:end] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO bench_nights (night_id, main, played_pre_min, played_post_min, played_total_min,
					bench_pre_min, bench_post_min, bench_total_min, avail_pre, avail_post, status_source)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, b.NightID, b.Main, b.PlayedPreMin, b.PlayedPostMin, b.PlayedTotalMin,
				b.BenchPreMin, b.BenchPostMin, b.BenchTotalMin, b.AvailPre, b.AvailPost, b.StatusSource)
			if err != nil {
				return fmt.Errorf("failed to insert bench row %s/%s: %w", b.NightID, b.Main, err)
			}
		}
	}

	return tx.Commit()
}

func (r *BenchRepository) GetByNight(ctx context.Context, nightID string) ([]domain.BenchRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT night_id, main, played_pre_min, played_post_min, played_total_min,
			bench_pre_min, bench_post_min, bench_total_min, avail_pre, avail_post, status_source
		FROM bench_nights WHERE night_id = ? ORDER BY main
	`, nightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBenchRows(rows)
}

func (r *BenchRepository) GetAll(ctx context.Context) ([]domain.BenchRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT night_id, main, played_pre_min, played_post_min, played_total_min,
			bench_pre_min, bench_post_min, bench_total_min, avail_pre, avail_post, status_source
		FROM bench_nights ORDER BY night_id, main
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBenchRows(rows)
}

func scanBenchRows(rows *sql.Rows) ([]domain.BenchRow, error) {
	var out []domain.BenchRow
	for rows.Next() {
		var b domain.BenchRow
		if err := rows.Scan(&b.NightID, &b.Main, &b.PlayedPreMin, &b.PlayedPostMin, &b.PlayedTotalMin,
			&b.BenchPreMin, &b.BenchPostMin, &b.BenchTotalMin, &b.AvailPre, &b.AvailPost, &b.StatusSource); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BenchRepository) UpsertSummary(ctx context.Context, s *domain.NightSummary) error {
	codes, err := json.Marshal(s.ReportCodes)
	if err != nil {
		return fmt.Errorf("failed to marshal report codes: %w", err)
	}
	candidates, err := json.Marshal(s.Candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO night_qa (night_id, report_codes, night_start_ms, night_end_ms, mythic_fights,
			break_start_ms, break_end_ms, override_used, pre_min, post_min, largest_gap_min, candidates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(night_id) DO UPDATE SET
			report_codes = excluded.report_codes,
			night_start_ms = excluded.night_start_ms,
			night_end_ms = excluded.night_end_ms,
			mythic_fights = excluded.mythic_fights,
			break_start_ms = excluded.break_start_ms,
			break_end_ms = excluded.break_end_ms,
			override_used = excluded.override_used,
			pre_min = excluded.pre_min,
			post_min = excluded.post_min,
			largest_gap_min = excluded.largest_gap_min,
			candidates = excluded.candidates
	`, s.NightID, string(codes), s.NightStartMs, s.NightEndMs, s.MythicFights,
		nullableInt64(s.BreakStartMs), nullableInt64(s.BreakEndMs), s.OverrideUsed,
		s.PreMin, s.PostMin, s.LargestGap, string(candidates))
	if err != nil {
		return fmt.Errorf("failed to upsert night summary %s: %w", s.NightID, err)
	}
	return nil
}

func (r *BenchRepository) GetSummaries(ctx context.Context) ([]domain.NightSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT night_id, report_codes, night_start_ms, night_end_ms, mythic_fights,
			break_start_ms, break_end_ms, override_used, pre_min, post_min, largest_gap_min, candidates
		FROM night_qa ORDER BY night_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NightSummary
	for rows.Next() {
		var s domain.NightSummary
		var codes, candidates string
		var bs, be sql.NullInt64
		if err := rows.Scan(&s.NightID, &codes, &s.NightStartMs, &s.NightEndMs, &s.MythicFights,
			&bs, &be, &s.OverrideUsed, &s.PreMin, &s.PostMin, &s.LargestGap, &candidates); err != nil {
			return nil, err
		}
		if bs.Valid {
			s.BreakStartMs = &bs.Int64
		}
		if be.Valid {
			s.BreakEndMs = &be.Int64
		}
		if err := json.Unmarshal([]byte(codes), &s.ReportCodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report codes: %w", err)
		}
		if err := json.Unmarshal([]byte(candidates), &s.Candidates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidates: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// NightCount reports how many nights have bench rows; the admin status
// endpoint surfaces it.
func (r *BenchRepository) NightCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT night_id) FROM bench_nights`).Scan(&n)
	return n, err
}
