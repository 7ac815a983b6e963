package repository

import (
	"context"
	"database/sql"
	"fmt"

	"raidbench/internal/domain"

	"github.com/rs/zerolog"
)

// RosterRepository stores the workbook-sourced inputs: team roster, alias
// map, and availability overrides. Each ingest replaces the tables wholesale;
// the workbook is the source of truth.
type RosterRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRosterRepository(db *sql.DB, logger zerolog.Logger) *RosterRepository {
	return &RosterRepository{db: db, logger: logger}
}

func (r *RosterRepository) ReplaceRoster(ctx context.Context, members []domain.RosterMember) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM roster`); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}
	for _, m := range members {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO roster (main, join_night, leave_night, active) VALUES (?, ?, ?, ?)
			ON CONFLICT(main) DO UPDATE SET
				join_night = excluded.join_night,
				leave_night = excluded.leave_night,
				active = excluded.active
		`, m.Main, m.JoinNight, m.LeaveNight, m.Active)
		if err != nil {
			return fmt.Errorf("failed to insert roster member %s: %w", m.Main, err)
		}
	}
	return tx.Commit()
}

func (r *RosterRepository) GetRoster(ctx context.Context) ([]domain.RosterMember, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT main, join_night, leave_night, active FROM roster ORDER BY main`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RosterMember
	for rows.Next() {
		var m domain.RosterMember
		if err := rows.Scan(&m.Main, &m.JoinNight, &m.LeaveNight, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *RosterRepository) ReplaceAliases(ctx context.Context, aliasMap map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM aliases`); err != nil {
		return fmt.Errorf("failed to clear aliases: %w", err)
	}
	for alias, main := range aliasMap {
		if _, err := tx.ExecContext(ctx, `INSERT INTO aliases (alias, main) VALUES (?, ?)`, alias, main); err != nil {
			return fmt.Errorf("failed to insert alias %s: %w", alias, err)
		}
	}
	return tx.Commit()
}

func (r *RosterRepository) GetAliases(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT alias, main FROM aliases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var alias, main string
		if err := rows.Scan(&alias, &main); err != nil {
			return nil, err
		}
		out[alias] = main
	}
	return out, rows.Err()
}

func (r *RosterRepository) ReplaceOverrides(ctx context.Context, overrides []domain.Override) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM overrides`); err != nil {
		return fmt.Errorf("failed to clear overrides: %w", err)
	}
	for _, ov := range overrides {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO overrides (night_id, main, avail_pre, avail_post) VALUES (?, ?, ?, ?)
			ON CONFLICT(night_id, main) DO UPDATE SET
				avail_pre = excluded.avail_pre,
				avail_post = excluded.avail_post
		`, ov.NightID, ov.Main, nullableBool(ov.Pre), nullableBool(ov.Post))
		if err != nil {
			return fmt.Errorf("failed to insert override %s/%s: %w", ov.NightID, ov.Main, err)
		}
	}
	return tx.Commit()
}

func (r *RosterRepository) GetOverrides(ctx context.Context) (map[string]map[string]domain.Override, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT night_id, main, avail_pre, avail_post FROM overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]domain.Override)
	for rows.Next() {
		var ov domain.Override
		var pre, post sql.NullBool
		if err := rows.Scan(&ov.NightID, &ov.Main, &pre, &post); err != nil {
			return nil, err
		}
		if pre.Valid {
			ov.Pre = &pre.Bool
		}
		if post.Valid {
			ov.Post = &post.Bool
		}
		if out[ov.NightID] == nil {
			out[ov.NightID] = make(map[string]domain.Override)
		}
		out[ov.NightID][ov.Main] = ov
	}
	return out, rows.Err()
}
