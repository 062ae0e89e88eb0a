// Package ir provides the constrained value types that entity fields carry,
// the class and change-batch records built from them, and their canonical
// encoding.
//
// This package contains type definitions and encodings only. Other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Map keys are ordered by UTF-16 code units, as RFC 8785 requires
//   - All JSON tags use snake_case
//   - Batch ordering uses logical clocks (seq), never wall-clock timestamps
package ir
