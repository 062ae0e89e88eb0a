package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qstream/internal/ir"
	"github.com/roach88/qstream/internal/journal"
	"github.com/roach88/qstream/internal/object"
)

// snapshot captures the final registry state with entity keys replaced by
// labels where one is known. Batch ids are left out: they are content
// hashes and already covered by the entries they are computed from.
func (h *Harness) snapshot(name string) ir.Map {
	repos := ir.List{}
	for _, n := range h.repoNames {
		repos = append(repos, h.repoSnapshot(n, h.repos[n]))
	}

	batches := ir.List{}
	for _, b := range h.result.Batches {
		entries := ir.List{}
		for _, e := range b.Entries {
			entries = append(entries, ir.Map{
				"op":     ir.String(e.Op),
				"object": ir.String(h.labelOf(e.Key)),
			})
		}
		batches = append(batches, ir.Map{
			"repo":    ir.String(h.labelOf(b.Repo)),
			"seq":     ir.Int(b.Seq),
			"entries": entries,
		})
	}

	deliveries := ir.List{}
	for _, d := range h.result.Deliveries {
		deliveries = append(deliveries, ir.Map{
			"to":      ir.String(d.To),
			"from":    ir.String(d.From),
			"payload": ir.String(d.Payload),
		})
	}

	outbound := ir.List{}
	for _, o := range h.result.Outbound {
		m := ir.Map{
			"from":    ir.String(o.From),
			"payload": ir.String(o.Payload),
		}
		if o.Broadcast {
			m["broadcast"] = ir.Bool(true)
		}
		if len(o.Targets) > 0 {
			m["targets"] = stringList(o.Targets)
		}
		outbound = append(outbound, m)
	}

	snap := ir.Map{
		"scenario":   ir.String(name),
		"repos":      repos,
		"batches":    batches,
		"deliveries": deliveries,
		"outbound":   outbound,
	}
	if repo := h.core.DefaultRepo(); repo != nil {
		snap["default"] = ir.String(h.labelOf(repo.Key()))
	}
	return snap
}

func (h *Harness) repoSnapshot(name string, repo *object.Repository) ir.Map {
	objects := ir.List{}
	for _, key := range repo.Keys() {
		e, _ := repo.Lookup(key)
		objects = append(objects, ir.Map{
			"label":  ir.String(h.labelOf(key)),
			"key":    ir.String(key),
			"type":   ir.String(e.Base().TypeName()),
			"fields": journal.Snapshot(e),
		})
	}

	var forwarded []string
	for _, src := range repo.ForwardedRepos() {
		forwarded = append(forwarded, h.labelOf(src.Key()))
	}

	return ir.Map{
		"name":      ir.String(name),
		"key":       ir.String(repo.Key()),
		"available": ir.Bool(repo.Available()),
		"loading":   ir.Bool(repo.Loading()),
		"forwarded": stringList(forwarded),
		"objects":   objects,
		"added":     stringList(h.entityLabels(repo.AddedObjects())),
		"updated":   stringList(h.entityLabels(repo.UpdatedObjects())),
		"deleted":   stringList(h.labelsOf(repo.DeletedObjects())),
	}
}

func stringList(ss []string) ir.List {
	out := make(ir.List, len(ss))
	for i, s := range ss {
		out[i] = ir.String(s)
	}
	return out
}

// SnapshotJSON returns the canonical JSON of a result's snapshot.
func SnapshotJSON(result *Result) ([]byte, error) {
	return ir.MarshalCanonical(result.Snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
