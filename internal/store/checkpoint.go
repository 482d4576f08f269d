package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"redarch/internal/archive"
	"redarch/internal/model"
)

const upsertCheckpointSQL = `
	INSERT INTO checkpoints (stage, cursor, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (stage) DO UPDATE
	SET cursor = EXCLUDED.cursor, updated_at = now()`

func putCheckpointTx(ctx context.Context, tx pgx.Tx, stage, cursor string) error {
	if _, err := tx.Exec(ctx, upsertCheckpointSQL, stage, cursor); err != nil {
		return fmt.Errorf("advancing checkpoint %q: %w", stage, err)
	}
	return nil
}

// GetCheckpoint returns the stage's checkpoint, or nil when the stage has
// never run.
func (s *PostgresStore) GetCheckpoint(ctx context.Context, stage string) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	err := s.pool.QueryRow(ctx,
		`SELECT stage, cursor, updated_at FROM checkpoints WHERE stage = $1`,
		stage).Scan(&cp.Stage, &cp.Cursor, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %q: %w", stage, err)
	}
	return &cp, nil
}

// PutCheckpoint writes a checkpoint outside of a load transaction.
func (s *PostgresStore) PutCheckpoint(ctx context.Context, stage, cursor string) error {
	if _, err := s.pool.Exec(ctx, upsertCheckpointSQL, stage, cursor); err != nil {
		return fmt.Errorf("writing checkpoint %q: %w", stage, err)
	}
	return nil
}

// ResetStages implements force-rebuild: one transaction removes the
// platform/community's posts, their comments (including orphans that carry
// the platform's ID prefix), and every checkpoint under the stage prefix.
func (s *PostgresStore) ResetStages(ctx context.Context, stagePrefix, platform, community string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning reset transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM comments
		WHERE id LIKE $1 || '\_%' AND community IN ($2, $3)`,
		platform, community, archive.FallbackCommunity)
	if err != nil {
		return fmt.Errorf("resetting comments for %s/%s: %w", platform, community, err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM posts WHERE platform = $1 AND community = $2`,
		platform, community)
	if err != nil {
		return fmt.Errorf("resetting posts for %s/%s: %w", platform, community, err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM checkpoints WHERE stage LIKE $1 || '%'`, stagePrefix)
	if err != nil {
		return fmt.Errorf("resetting checkpoints %q: %w", stagePrefix, err)
	}
	return tx.Commit(ctx)
}
