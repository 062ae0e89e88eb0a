package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qstream/internal/ir"
)

// ErrNotFound is returned when a requested batch does not exist.
var ErrNotFound = errors.New("store: batch not found")

// HistoryEntry is one change of a single entity, with the batch it came from.
type HistoryEntry struct {
	BatchID string
	Repo    string
	Seq     int64
	Entry   ir.ChangeEntry
}

// ReadBatches returns all batches of one repository, with entries.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the repository has no batches.
func (s *Store) ReadBatches(ctx context.Context, repo string) ([]ir.ChangeBatch, error) {
	return s.readBatches(ctx, `
		SELECT id, repo, seq FROM change_batches
		WHERE repo = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, repo)
}

// ReadAllBatches returns every batch in the journal, with entries.
// Batches of different repositories interleave by seq.
func (s *Store) ReadAllBatches(ctx context.Context) ([]ir.ChangeBatch, error) {
	return s.readBatches(ctx, `
		SELECT id, repo, seq FROM change_batches
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ReadBatch returns a single batch by id, or ErrNotFound.
func (s *Store) ReadBatch(ctx context.Context, id string) (ir.ChangeBatch, error) {
	var b ir.ChangeBatch
	err := s.db.QueryRowContext(ctx, `
		SELECT id, repo, seq FROM change_batches WHERE id = ?
	`, id).Scan(&b.ID, &b.Repo, &b.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ChangeBatch{}, fmt.Errorf("read batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.ChangeBatch{}, fmt.Errorf("read batch %s: %w", id, err)
	}

	entries, err := s.readEntries(ctx, b.ID)
	if err != nil {
		return ir.ChangeBatch{}, err
	}
	b.Entries = entries
	return b, nil
}

func (s *Store) readBatches(ctx context.Context, query string, args ...any) ([]ir.ChangeBatch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}

	// Collect headers first: the single connection is busy until rows close.
	var batches []ir.ChangeBatch
	for rows.Next() {
		var b ir.ChangeBatch
		if err := rows.Scan(&b.ID, &b.Repo, &b.Seq); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	rows.Close()

	for i := range batches {
		entries, err := s.readEntries(ctx, batches[i].ID)
		if err != nil {
			return nil, err
		}
		batches[i].Entries = entries
	}

	if batches == nil {
		batches = []ir.ChangeBatch{}
	}
	return batches, nil
}

func (s *Store) readEntries(ctx context.Context, batchID string) ([]ir.ChangeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT op, key, type, fields FROM change_entries
		WHERE batch_id = ?
		ORDER BY idx ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.ChangeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// History returns every recorded change of the entity with the given key,
// across all repositories, oldest first.
func (s *Store) History(ctx context.Context, key string) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.repo, b.seq, e.op, e.key, e.type, e.fields
		FROM change_entries e
		JOIN change_batches b ON e.batch_id = b.id
		WHERE e.key = ?
		ORDER BY b.seq ASC, b.id COLLATE BINARY ASC, e.idx ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []HistoryEntry{}
	for rows.Next() {
		var (
			h      HistoryEntry
			op     string
			fields sql.NullString
		)
		if err := rows.Scan(&h.BatchID, &h.Repo, &h.Seq, &op, &h.Entry.Key, &h.Entry.Type, &fields); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Entry.Op = ir.Op(op)
		if h.Entry.Fields, err = unmarshalFields(fields); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return history, nil
}

// LastSeq returns the highest seq in the journal, or 0 when it is empty.
// A journal.Clock created with NewClockAt(LastSeq) continues the sequence.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM change_batches`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Repos returns the keys of all repositories with recorded batches, sorted.
func (s *Store) Repos(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT repo FROM change_batches
		ORDER BY repo COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query repos: %w", err)
	}
	defer rows.Close()

	repos := []string{}
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repos: %w", err)
	}
	return repos, nil
}

func scanEntry(rows *sql.Rows) (ir.ChangeEntry, error) {
	var (
		e      ir.ChangeEntry
		op     string
		fields sql.NullString
	)
	if err := rows.Scan(&op, &e.Key, &e.Type, &fields); err != nil {
		return ir.ChangeEntry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Op = ir.Op(op)
	f, err := unmarshalFields(fields)
	if err != nil {
		return ir.ChangeEntry{}, err
	}
	e.Fields = f
	return e, nil
}
