// Package store provides a SQLite journal of repository change batches.
//
// The journal is append-only:
//   - change_batches: one row per drained batch, keyed by its content hash
//   - change_entries: the added, updated, and deleted entries of a batch
//
// Writing a batch whose id is already stored is a no-op, so a drain can be
// retried safely after a failed write.
//
// All reads order by seq then id, so results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Entry fields are stored as canonical JSON produced by internal/ir.
package store
