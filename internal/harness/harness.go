package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/qstream/internal/compiler"
	"github.com/roach88/qstream/internal/core"
	"github.com/roach88/qstream/internal/factory"
	"github.com/roach88/qstream/internal/ident"
	"github.com/roach88/qstream/internal/ir"
	"github.com/roach88/qstream/internal/journal"
	"github.com/roach88/qstream/internal/object"
	"github.com/roach88/qstream/internal/testutil"
)

// errStepRefused marks a step the registry declined.
var errStepRefused = errors.New("refused")

// Option configures a run.
type Option func(*Harness)

// WithSink writes drained batches to sink in addition to the result.
func WithSink(sink journal.Sink) Option {
	return func(h *Harness) {
		h.sink = sink
	}
}

// WithTracer sets the tracer for drain spans.
func WithTracer(t trace.Tracer) Option {
	return func(h *Harness) {
		h.tracer = t
	}
}

// WithClock replaces the deterministic clock that numbers drained batches.
func WithClock(c journal.Sequencer) Option {
	return func(h *Harness) {
		h.clock = c
	}
}

// WithLogger sets the logger for step progress. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Harness is the scenario execution engine.
// It runs scenarios with a fixed core id, sequential object ids, and a
// deterministic clock.
type Harness struct {
	core      *core.Core
	factory   *factory.Factory
	transport *core.RecordingTransport
	clock     journal.Sequencer
	sink      journal.Sink
	tracer    trace.Tracer
	logger    *slog.Logger

	repoNames []string
	repos     map[string]*object.Repository
	objects   map[string]*object.Dynamic
	labels    map[string]string // entity key to label or repository name
	drainers  map[string]*journal.Drainer
	batches   map[string]int

	result *Result
}

// Run executes a scenario and returns the result.
//
// Each run builds a fresh core and factory, so scenarios are isolated.
// Run returns an error only when the scenario cannot be executed at all:
// classes fail to compile, or a step names an unknown object. Step
// refusals and failed assertions are reported in the result.
//
// Execution flow:
// 1. Compile and register classes
// 2. Create the named repositories
// 3. Execute steps
// 4. Evaluate assertions and take the final snapshot
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		factory:   factory.New(factory.WithGenerator(testutil.IDs())),
		transport: &core.RecordingTransport{},
		clock:     testutil.NewDeterministicClock(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		repos:     make(map[string]*object.Repository),
		objects:   make(map[string]*object.Dynamic),
		labels:    make(map[string]string),
		drainers:  make(map[string]*journal.Drainer),
		batches:   make(map[string]int),
		result:    NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.core = core.New(testutil.CoreConfig(), core.WithTransport(h.transport))

	if err := h.registerClasses(scenario); err != nil {
		return nil, fmt.Errorf("failed to register classes: %w", err)
	}

	for _, name := range scenario.Repos {
		h.addRepo(name)
	}

	ctx := context.Background()
	for i, step := range scenario.Steps {
		kind := step.Kind()
		err := h.execute(ctx, step)
		switch {
		case errors.Is(err, errStepRefused):
			if !step.Fails {
				h.result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, kind, err))
			}
		case err != nil:
			return nil, fmt.Errorf("steps[%d] %s: %w", i, kind, err)
		case step.Fails:
			h.result.AddError(fmt.Sprintf("steps[%d] %s: expected failure, step succeeded", i, kind))
		}
		h.logger.Info("step completed", "step", i, "kind", kind, "refused", err != nil)
	}

	h.recordOutbound()
	for _, errMsg := range h.evaluate(scenario.Assertions) {
		h.result.AddError(errMsg)
	}
	h.result.Snapshot = h.snapshot(scenario.Name)

	return h.result, nil
}

func (h *Harness) registerClasses(s *Scenario) error {
	var specs []ir.ClassSpec
	if s.Classes != "" {
		compiled, err := compiler.CompileSource(s.Name+".cue", s.Classes)
		if err != nil {
			return err
		}
		specs = append(specs, compiled...)
	}
	for _, path := range s.ClassFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read class file: %w", err)
		}
		compiled, err := compiler.CompileSource(path, string(src))
		if err != nil {
			return err
		}
		specs = append(specs, compiled...)
	}
	if len(specs) == 0 {
		return nil
	}
	return h.factory.Register(specs...)
}

func (h *Harness) addRepo(name string) {
	repo := h.core.NewRepository(name)
	h.repoNames = append(h.repoNames, name)
	h.repos[name] = repo
	h.labels[repo.Key()] = name
	repo.MessageReceived.Connect(h, func(msg object.Message) {
		h.result.Deliveries = append(h.result.Deliveries, Delivery{
			To:      name,
			From:    h.labelOf(ident.Key(msg.Source)),
			Payload: string(msg.Payload),
		})
	})
}

func (h *Harness) execute(ctx context.Context, s Step) error {
	switch {
	case s.Create != nil:
		return h.create(s.Create)
	case s.Set != nil:
		d, err := h.object(s.Set.Object)
		if err != nil {
			return err
		}
		v, err := ir.FromGo(s.Set.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		if err := h.factory.Set(d, s.Set.Field, v); err != nil {
			return fmt.Errorf("%w: %v", errStepRefused, err)
		}
		return nil
	case s.Forward != nil:
		return refusedUnless(h.repos[s.Forward.Repo].Forward(h.repos[s.Forward.From]))
	case s.Unforward != nil:
		return refusedUnless(h.repos[s.Unforward.Repo].Unforward(h.repos[s.Unforward.From]))
	case s.Destroy != nil:
		e, err := h.target(s.Destroy.Object, s.Destroy.Repo)
		if err != nil {
			return err
		}
		e.Base().Destroy()
		return nil
	case s.Available != nil:
		e, err := h.target(s.Available.Object, s.Available.Repo)
		if err != nil {
			return err
		}
		e.Base().SetAvailable(s.Available.Value)
		return nil
	case s.Loading != nil:
		h.repos[s.Loading.Repo].SetLoading(s.Loading.Value)
		return nil
	case s.Clear != nil:
		return refusedUnless(h.repos[s.Clear.Repo].Clear())
	case s.Remove != nil:
		d, err := h.object(s.Remove.Object)
		if err != nil {
			return err
		}
		return refusedUnless(h.repos[s.Remove.Repo].Remove(d.Key(), s.Remove.Suppress))
	case s.Drain != nil:
		return h.drain(ctx, s.Drain.Repo)
	case s.Default != nil:
		h.core.SetDefaultRepo(h.repos[s.Default.Repo])
		return nil
	case s.Send != nil:
		return h.send(s.Send)
	}
	return fmt.Errorf("no operation")
}

func refusedUnless(ok bool) error {
	if ok {
		return nil
	}
	return errStepRefused
}

func (h *Harness) create(s *CreateStep) error {
	if _, taken := h.objects[s.As]; taken {
		return fmt.Errorf("label %q already used", s.As)
	}

	var parent object.Entity
	switch {
	case s.Parent != "":
		d, err := h.object(s.Parent)
		if err != nil {
			return err
		}
		parent = d
	case s.Repo != "":
		parent = h.repos[s.Repo]
	case h.core.DefaultRepo() != nil:
		parent = h.core.DefaultRepo()
	}

	props := ir.Map{}
	for k, v := range s.Props {
		iv, err := ir.FromGo(v)
		if err != nil {
			return fmt.Errorf("props.%s: %w", k, err)
		}
		props[k] = iv
	}

	count := max(s.Count, 1)
	created, err := h.factory.CreateMany(count, s.Type, parent, props)
	if err != nil {
		return fmt.Errorf("%w: %v", errStepRefused, err)
	}
	for i, d := range created {
		label := s.As
		if count > 1 {
			label = fmt.Sprintf("%s-%d", s.As, i+1)
		}
		h.objects[label] = d
		h.labels[d.Key()] = label
	}
	return nil
}

func (h *Harness) drain(ctx context.Context, name string) error {
	d, ok := h.drainers[name]
	if !ok {
		opts := []journal.Option{journal.WithClock(h.clock)}
		if h.tracer != nil {
			opts = append(opts, journal.WithTracer(h.tracer))
		}
		d = journal.NewDrainer(h.repos[name], sinkFunc(h.writeBatch), opts...)
		h.drainers[name] = d
	}

	_, drained, err := d.Drain(ctx)
	if err != nil {
		return err
	}
	return refusedUnless(drained)
}

func (h *Harness) writeBatch(ctx context.Context, batch ir.ChangeBatch) error {
	if h.sink != nil {
		if err := h.sink.WriteBatch(ctx, batch); err != nil {
			return err
		}
	}
	h.result.Batches = append(h.result.Batches, batch)
	h.batches[h.labelOf(batch.Repo)]++
	return nil
}

// sinkFunc adapts a function to journal.Sink.
type sinkFunc func(context.Context, ir.ChangeBatch) error

func (f sinkFunc) WriteBatch(ctx context.Context, batch ir.ChangeBatch) error {
	return f(ctx, batch)
}

func (h *Harness) send(s *SendStep) error {
	from := h.repos[s.Repo]
	if len(s.To) == 0 {
		from.SendMessageToAll([]byte(s.Payload))
		return nil
	}
	targets := make([]uuid.UUID, 0, len(s.To))
	for _, to := range s.To {
		if repo, ok := h.repos[to]; ok {
			targets = append(targets, repo.ID())
			continue
		}
		id, err := ident.Parse(to)
		if err != nil {
			return fmt.Errorf("target %q is neither a repository nor an id", to)
		}
		targets = append(targets, id)
	}
	from.SendMessage(targets, []byte(s.Payload))
	return nil
}

func (h *Harness) recordOutbound() {
	for _, msg := range h.transport.Sent() {
		out := Outbound{
			From:      h.labelOf(ident.Key(msg.Source)),
			Broadcast: msg.Broadcast,
			Payload:   string(msg.Payload),
		}
		for _, t := range msg.Targets {
			out.Targets = append(out.Targets, ident.Key(t))
		}
		h.result.Outbound = append(h.result.Outbound, out)
	}
}

func (h *Harness) object(label string) (*object.Dynamic, error) {
	d, ok := h.objects[label]
	if !ok {
		return nil, fmt.Errorf("unknown object %q", label)
	}
	return d, nil
}

func (h *Harness) target(label, repo string) (object.Entity, error) {
	if repo != "" {
		return h.repos[repo], nil
	}
	return h.object(label)
}

// labelOf returns the label or repository name for key, or key itself.
func (h *Harness) labelOf(key string) string {
	if label, ok := h.labels[key]; ok {
		return label
	}
	return key
}
