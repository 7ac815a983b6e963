package repository

import (
	"context"
	"database/sql"
	"fmt"

	"raidbench/internal/constants"
	"raidbench/internal/domain"

	"github.com/rs/zerolog"
)

// WeekRepository stores week rollups and season rankings. Both tables are
// fully derived, so writes replace the whole table in one transaction:
// weeks no longer supported by the source bench rows disappear with the
// replace.
type WeekRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewWeekRepository(db *sql.DB, logger zerolog.Logger) *WeekRepository {
	return &WeekRepository{db: db, logger: logger}
}

func (r *WeekRepository) ReplaceAll(ctx context.Context, weeks []domain.WeekRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bench_weeks`); err != nil {
		return fmt.Errorf("failed to delete stale week rows: %w", err)
	}

	for i := 0; i < len(weeks); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(weeks) {
			end = len(weeks)
		}
		for _, w := range weeks[i:end] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO bench_weeks (week_id, main, played_week_min, bench_week_min, bench_pre_min, bench_post_min)
				VALUES (?, ?, ?, ?, ?, ?)
			`, w.WeekID, w.Main, w.PlayedWeekMin, w.BenchWeekMin, w.BenchPreMin, w.BenchPostMin)
			if err != nil {
				return fmt.Errorf("failed to insert week row %s/%s: %w", w.WeekID, w.Main, err)
			}
		}
	}

	return tx.Commit()
}

func (r *WeekRepository) GetAll(ctx context.Context) ([]domain.WeekRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT week_id, main, played_week_min, bench_week_min, bench_pre_min, bench_post_min
		FROM bench_weeks ORDER BY week_id, main
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WeekRow
	for rows.Next() {
		var w domain.WeekRow
		if err := rows.Scan(&w.WeekID, &w.Main, &w.PlayedWeekMin, &w.BenchWeekMin, &w.BenchPreMin, &w.BenchPostMin); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WeekRepository) ReplaceRankings(ctx context.Context, rankings []domain.RankingRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bench_rankings`); err != nil {
		return fmt.Errorf("failed to delete stale rankings: %w", err)
	}

	for _, rk := range rankings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bench_rankings (main, rank, bench_min) VALUES (?, ?, ?)
		`, rk.Main, rk.Rank, rk.BenchMin)
		if err != nil {
			return fmt.Errorf("failed to insert ranking for %s: %w", rk.Main, err)
		}
	}

	return tx.Commit()
}

func (r *WeekRepository) GetRankings(ctx context.Context) ([]domain.RankingRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT main, rank, bench_min FROM bench_rankings ORDER BY rank
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RankingRow
	for rows.Next() {
		var rk domain.RankingRow
		if err := rows.Scan(&rk.Main, &rk.Rank, &rk.BenchMin); err != nil {
			return nil, err
		}
		out = append(out, rk)
	}
	return out, rows.Err()
}
