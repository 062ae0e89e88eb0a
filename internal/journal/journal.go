// Package journal drains repository differential logs into sequenced,
// content-addressed change batches and hands them to a Sink.
package journal

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/qstream/internal/ir"
	"github.com/roach88/qstream/internal/object"
)

// TracerName names the tracer used when none is configured.
const TracerName = "github.com/roach88/qstream/internal/journal"

// Sink receives drained batches.
type Sink interface {
	WriteBatch(ctx context.Context, batch ir.ChangeBatch) error
}

// Valuer is implemented by entities that expose their field values, such as
// object.Dynamic.
type Valuer interface {
	Values() ir.Map
}

// Sequencer stamps batches with strictly increasing seq values.
// Clock implements it.
type Sequencer interface {
	Next() int64
}

// Drainer takes the pending changes of one repository.
type Drainer struct {
	repo   *object.Repository
	sink   Sink
	clock  Sequencer
	tracer trace.Tracer
}

// Option configures a Drainer.
type Option func(*Drainer)

// WithClock sets the clock batches are stamped from. Drainers of several
// repositories may share one clock.
func WithClock(c Sequencer) Option {
	return func(d *Drainer) {
		d.clock = c
	}
}

// WithTracer sets the tracer for drain spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Drainer) {
		d.tracer = t
	}
}

// NewDrainer creates a Drainer for repo writing to sink.
func NewDrainer(repo *object.Repository, sink Sink, opts ...Option) *Drainer {
	d := &Drainer{repo: repo, sink: sink}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = NewClock()
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(TracerName)
	}
	return d
}

// Drain empties the repository's differential logs into one batch and
// writes it. Returns false without writing when nothing was pending.
// On a write error the batch is still returned so the caller can retry it;
// the logs stay drained.
func (d *Drainer) Drain(ctx context.Context) (ir.ChangeBatch, bool, error) {
	ctx, span := d.tracer.Start(ctx, "journal.Drain",
		trace.WithAttributes(attribute.String("repo", d.repo.Key())))
	defer span.End()

	changes := d.repo.TakeChanges()
	if changes.Empty() {
		span.SetAttributes(attribute.Bool("empty", true))
		return ir.ChangeBatch{}, false, nil
	}

	batch, err := d.build(changes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ir.ChangeBatch{}, false, err
	}
	added, updated, deleted := batch.Counts()
	span.SetAttributes(
		attribute.Int64("seq", batch.Seq),
		attribute.String("batch", batch.ID),
		attribute.Int("added", added),
		attribute.Int("updated", updated),
		attribute.Int("deleted", deleted),
	)

	if err := d.sink.WriteBatch(ctx, batch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return batch, true, fmt.Errorf("write batch %d: %w", batch.Seq, err)
	}
	return batch, true, nil
}

func (d *Drainer) build(c object.Changes) (ir.ChangeBatch, error) {
	entries := make([]ir.ChangeEntry, 0, len(c.Added)+len(c.Updated)+len(c.Deleted))
	for _, e := range c.Added {
		entries = append(entries, Entry(ir.OpAdded, e))
	}
	for _, e := range c.Updated {
		entries = append(entries, Entry(ir.OpUpdated, e))
	}
	for _, key := range c.Deleted {
		entries = append(entries, ir.ChangeEntry{Op: ir.OpDeleted, Key: key})
	}

	batch := ir.ChangeBatch{
		Repo:    d.repo.Key(),
		Seq:     d.clock.Next(),
		Entries: entries,
	}
	id, err := ir.BatchID(batch.Repo, batch.Seq, batch.Entries)
	if err != nil {
		return ir.ChangeBatch{}, err
	}
	batch.ID = id
	return batch, nil
}

// Entry records e as a change entry with a snapshot of its current fields.
func Entry(op ir.Op, e object.Entity) ir.ChangeEntry {
	return ir.ChangeEntry{
		Op:     op,
		Key:    e.Base().Key(),
		Type:   e.Base().TypeName(),
		Fields: Snapshot(e),
	}
}

// Snapshot returns the field values of e: availability, the repository
// name for nested repositories, and everything a Valuer exposes.
func Snapshot(e object.Entity) ir.Map {
	m := ir.Map{}
	if v, ok := e.(Valuer); ok {
		m = v.Values()
	}
	if r, ok := e.(*object.Repository); ok {
		m[object.FieldName] = ir.String(r.Name())
	}
	m[object.FieldAvailable] = ir.Bool(e.Base().Available())
	return m
}

// MemorySink keeps batches in memory.
type MemorySink struct {
	mu      sync.Mutex
	batches []ir.ChangeBatch
}

// WriteBatch implements Sink.
func (s *MemorySink) WriteBatch(_ context.Context, batch ir.ChangeBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

// Batches returns the written batches in write order.
func (s *MemorySink) Batches() []ir.ChangeBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.ChangeBatch, len(s.batches))
	copy(out, s.batches)
	return out
}
