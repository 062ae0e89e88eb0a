package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/qstream/internal/ir"
)

// createTestStore opens a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBatch builds a batch with its content-addressed id.
func createTestBatch(repo string, seq int64, entries ...ir.ChangeEntry) ir.ChangeBatch {
	if entries == nil {
		entries = []ir.ChangeEntry{}
	}
	return ir.ChangeBatch{
		ID:      ir.MustBatchID(repo, seq, entries),
		Repo:    repo,
		Seq:     seq,
		Entries: entries,
	}
}
