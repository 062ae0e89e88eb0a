package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/qstream/internal/ir"
)

// marshalFields converts an entry's field snapshot to canonical JSON TEXT.
// A nil snapshot is stored as NULL so it reads back as nil, not as {}.
func marshalFields(fields ir.Map) (sql.NullString, error) {
	if fields == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal fields: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalFields parses canonical JSON TEXT back to a field snapshot.
// Integers round-trip without float64 precision loss.
func unmarshalFields(data sql.NullString) (ir.Map, error) {
	if !data.Valid {
		return nil, nil
	}
	var m ir.Map
	if err := m.UnmarshalJSON([]byte(data.String)); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return m, nil
}
