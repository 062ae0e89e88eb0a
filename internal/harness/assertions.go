package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/qstream/internal/ir"
	"github.com/roach88/qstream/internal/object"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Subject  string // Repository or object under test
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Subject != "" {
		fmt.Fprintf(&buf, " (%s)", e.Subject)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// evaluate checks every assertion and returns the failure messages.
func (h *Harness) evaluate(assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.check(a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) check(a Assertion) error {
	switch a.Type {
	case AssertObjects:
		repo := h.repos[a.Repo]
		got := h.labelsOf(repo.Keys())
		slices.Sort(got)
		want := slices.Sorted(slices.Values(a.Objects))
		return h.compare(a, want, got)
	case AssertAdded:
		return h.compare(a, a.Objects, h.entityLabels(h.repos[a.Repo].AddedObjects()))
	case AssertUpdated:
		return h.compare(a, a.Objects, h.entityLabels(h.repos[a.Repo].UpdatedObjects()))
	case AssertDeleted:
		return h.compare(a, a.Objects, h.labelsOf(h.repos[a.Repo].DeletedObjects()))
	case AssertForwarded:
		var got []string
		for _, src := range h.repos[a.Repo].ForwardedRepos() {
			got = append(got, h.labelOf(src.Key()))
		}
		return h.compare(a, a.Repos, got)
	case AssertRepos:
		var got []string
		for _, repo := range h.core.Repos() {
			got = append(got, h.labelOf(repo.Key()))
		}
		return h.compare(a, a.Repos, got)
	case AssertAvailable:
		e, err := h.target(a.Object, a.Repo)
		if err != nil {
			return err
		}
		want := a.Value.(bool)
		if got := e.Base().Available(); got != want {
			return h.fail(a, fmt.Sprintf("available=%t", want), fmt.Sprintf("available=%t", got))
		}
		return nil
	case AssertField:
		return h.checkField(a)
	case AssertBatches:
		if got := h.batches[a.Repo]; got != a.Count {
			return h.fail(a, fmt.Sprintf("%d batches", a.Count), fmt.Sprintf("%d batches", got))
		}
		return nil
	case AssertMessages:
		got := len(h.result.Outbound)
		if a.Repo != "" {
			got = 0
			for _, d := range h.result.Deliveries {
				if d.To == a.Repo {
					got++
				}
			}
		}
		if got != a.Count {
			return h.fail(a, fmt.Sprintf("%d messages", a.Count), fmt.Sprintf("%d messages", got))
		}
		return nil
	case AssertDefault:
		got := ""
		if repo := h.core.DefaultRepo(); repo != nil {
			got = h.labelOf(repo.Key())
		}
		if got != a.Repo {
			return h.fail(a, fmt.Sprintf("default %q", a.Repo), fmt.Sprintf("default %q", got))
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (h *Harness) checkField(a Assertion) error {
	d, err := h.object(a.Object)
	if err != nil {
		return err
	}
	want, err := ir.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	got, ok := d.Get(a.Field)
	if !ok {
		return h.fail(a, fmt.Sprintf("field %s", a.Field), "no such field")
	}
	if !ir.Equal(want, got) {
		return h.fail(a, fmt.Sprintf("%s=%s", a.Field, formatValue(want)), fmt.Sprintf("%s=%s", a.Field, formatValue(got)))
	}
	return nil
}

func (h *Harness) compare(a Assertion, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return h.fail(a, fmt.Sprintf("%v", want), fmt.Sprintf("%v", got))
}

func (h *Harness) fail(a Assertion, expected, actual string) error {
	subject := a.Repo
	if a.Object != "" {
		subject = a.Object
	}
	return &AssertionError{Type: a.Type, Subject: subject, Expected: expected, Actual: actual}
}

func (h *Harness) labelsOf(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = h.labelOf(k)
	}
	return out
}

func (h *Harness) entityLabels(es []object.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = h.labelOf(e.Base().Key())
	}
	return out
}

func formatValue(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
