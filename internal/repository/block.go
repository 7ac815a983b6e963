package repository

import (
	"context"
	"database/sql"
	"fmt"

	"raidbench/internal/constants"
	"raidbench/internal/domain"

	"github.com/rs/zerolog"
)

type BlockRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBlockRepository(db *sql.DB, logger zerolog.Logger) *BlockRepository {
	return &BlockRepository{db: db, logger: logger}
}

func (r *BlockRepository) ReplaceNight(ctx context.Context, nightID string, blocks []domain.Block) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE night_id = ?`, nightID); err != nil {
		return fmt.Errorf("failed to delete stale blocks for %s: %w", nightID, err)
	}

	for i := 0; i < len(blocks); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		for _, b := range blocks[i:end] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO blocks (night_id, main, half, seq, start_ms, end_ms)
				VALUES (?, ?, ?, ?, ?, ?)
			`, b.NightID, b.Main, b.Half, b.Seq, b.StartMs, b.EndMs)
			if err != nil {
				return fmt.Errorf("failed to insert block %s/%s/%s/%d: %w", b.NightID, b.Main, b.Half, b.Seq, err)
			}
		}
	}

	return tx.Commit()
}

func (r *BlockRepository) GetByNight(ctx context.Context, nightID string) ([]domain.Block, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT night_id, main, half, seq, start_ms, end_ms
		FROM blocks WHERE night_id = ? ORDER BY main, half, seq
	`, nightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Block
	for rows.Next() {
		var b domain.Block
		if err := rows.Scan(&b.NightID, &b.Main, &b.Half, &b.Seq, &b.StartMs, &b.EndMs); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
