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

// FightRepository stores canonical fights and participation rows. Both are
// derived artifacts: each write replaces the night's rows wholesale so stale
// entries from earlier runs disappear.
type FightRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewFightRepository(db *sql.DB, logger zerolog.Logger) *FightRepository {
	return &FightRepository{db: db, logger: logger}
}

func (r *FightRepository) ReplaceNight(ctx context.Context, nightID string, fights []domain.Fight) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fights WHERE night_id = ?`, nightID); err != nil {
		return fmt.Errorf("failed to delete stale fights for %s: %w", nightID, err)
	}

	for i := 0; i < len(fights); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(fights) {
			end = len(fights)
		}
		for _, f := range fights[i:end] {
			participants, err := json.Marshal(f.Participants)
			if err != nil {
				return fmt.Errorf("failed to marshal participants: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO fights (night_id, encounter_id, difficulty, start_rounded_ms, end_rounded_ms,
					start_ms, end_ms, name, mythic, kill, report_code, fight_id, participants)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, f.NightID, f.EncounterID, f.Difficulty, f.StartRoundedMs, f.EndRoundedMs,
				f.StartMs, f.EndMs, f.Name, f.Mythic, f.Kill, f.ReportCode, f.FightID, string(participants))
			if err != nil {
				return fmt.Errorf("failed to insert fight %d/%d: %w", f.EncounterID, f.FightID, err)
			}
		}
	}

	return tx.Commit()
}

func (r *FightRepository) GetByNight(ctx context.Context, nightID string) ([]domain.Fight, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT night_id, encounter_id, difficulty, start_rounded_ms, end_rounded_ms,
			start_ms, end_ms, name, mythic, kill, report_code, fight_id, participants
		FROM fights WHERE night_id = ?
		ORDER BY start_rounded_ms, end_rounded_ms, encounter_id, difficulty
	`, nightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Fight
	for rows.Next() {
		var f domain.Fight
		var participants string
		if err := rows.Scan(&f.NightID, &f.EncounterID, &f.Difficulty, &f.StartRoundedMs, &f.EndRoundedMs,
			&f.StartMs, &f.EndMs, &f.Name, &f.Mythic, &f.Kill, &f.ReportCode, &f.FightID, &participants); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(participants), &f.Participants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FightRepository) ReplaceParticipation(ctx context.Context, nightID string, rows []domain.ParticipationRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM participation WHERE night_id = ?`, nightID); err != nil {
		return fmt.Errorf("failed to delete stale participation for %s: %w", nightID, err)
	}

	for i := 0; i < len(rows); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		for _, p := range rows[i:end] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO participation (night_id, main, report_code, fight_id, start_ms, end_ms)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(night_id, main, report_code, fight_id) DO UPDATE SET
					start_ms = excluded.start_ms,
					end_ms = excluded.end_ms
			`, p.NightID, p.Main, p.ReportCode, p.FightID, p.StartMs, p.EndMs)
			if err != nil {
				return fmt.Errorf("failed to insert participation %s/%s: %w", p.NightID, p.Main, err)
			}
		}
	}

	return tx.Commit()
}

func (r *FightRepository) GetParticipationByNight(ctx context.Context, nightID string) ([]domain.ParticipationRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT night_id, main, report_code, fight_id, start_ms, end_ms
		FROM participation WHERE night_id = ? ORDER BY main, start_ms
	`, nightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ParticipationRow
	for rows.Next() {
		var p domain.ParticipationRow
		if err := rows.Scan(&p.NightID, &p.Main, &p.ReportCode, &p.FightID, &p.StartMs, &p.EndMs); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
