package store

import (
	"context"
	"fmt"

	"github.com/roach88/qstream/internal/ir"
)

// WriteBatch appends a change batch and its entries in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: rewriting a stored batch
// is silently ignored. A different batch claiming an existing (repo, seq)
// pair still fails on the UNIQUE constraint.
//
// WriteBatch implements journal.Sink.
func (s *Store) WriteBatch(ctx context.Context, batch ir.ChangeBatch) error {
	if batch.ID == "" {
		return fmt.Errorf("write batch: empty id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	added, updated, deleted := batch.Counts()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO change_batches (id, repo, seq, added, updated, deleted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, batch.ID, batch.Repo, batch.Seq, added, updated, deleted)
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write batch: rows affected: %w", err)
	}
	if rows == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO change_entries (batch_id, idx, op, key, type, fields)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write batch: prepare entries: %w", err)
	}
	defer stmt.Close()

	for i, e := range batch.Entries {
		fields, err := marshalFields(e.Fields)
		if err != nil {
			return fmt.Errorf("write batch: entry %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, batch.ID, i, string(e.Op), e.Key, e.Type, fields); err != nil {
			return fmt.Errorf("write batch: entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write batch: commit: %w", err)
	}
	return nil
}
