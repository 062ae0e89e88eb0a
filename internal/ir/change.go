package ir

// Op is the kind of a change entry.
type Op string

const (
	OpAdded   Op = "added"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// ChangeEntry records one entity in one drained differential log.
type ChangeEntry struct {
	Op     Op     `json:"op"`
	Key    string `json:"key"`
	Type   string `json:"type,omitempty"`   // empty for deletions
	Fields Map    `json:"fields,omitempty"` // snapshot of field values, when the entity exposes them
}

// ChangeBatch is one drain of a repository's differential logs.
// Entries appear added first, then updated, then deleted, each in log order.
type ChangeBatch struct {
	ID      string        `json:"id"`   // Content-addressed hash
	Repo    string        `json:"repo"` // Repository key
	Seq     int64         `json:"seq"`  // Logical clock
	Entries []ChangeEntry `json:"entries"`
}

// Counts returns the number of entries per op.
func (b ChangeBatch) Counts() (added, updated, deleted int) {
	for _, e := range b.Entries {
		switch e.Op {
		case OpAdded:
			added++
		case OpUpdated:
			updated++
		case OpDeleted:
			deleted++
		}
	}
	return added, updated, deleted
}
