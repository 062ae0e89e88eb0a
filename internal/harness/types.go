package harness

import (
	"github.com/roach88/qstream/internal/ir"
)

// Delivery is a message received by a local repository.
type Delivery struct {
	To      string `json:"to"`   // receiving repository name
	From    string `json:"from"` // sending repository name, or the remote id
	Payload string `json:"payload"`
}

// Outbound is a message handed to the transport.
type Outbound struct {
	From      string   `json:"from"`
	Targets   []string `json:"targets,omitempty"`
	Broadcast bool     `json:"broadcast,omitempty"`
	Payload   string   `json:"payload"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Batches holds every drained batch in drain order.
	Batches []ir.ChangeBatch `json:"batches"`

	// Deliveries holds messages received by local repositories.
	Deliveries []Delivery `json:"deliveries"`

	// Outbound holds messages sent to the transport.
	Outbound []Outbound `json:"outbound"`

	// Snapshot is the final registry state with keys replaced by labels.
	Snapshot ir.Map `json:"snapshot"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Errors:     []string{},
		Batches:    []ir.ChangeBatch{},
		Deliveries: []Delivery{},
		Outbound:   []Outbound{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
