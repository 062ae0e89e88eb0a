package object

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// ============================================================================
// Property-Based Tests for Repository Invariants
// ============================================================================

// entityPool builds n entities over k distinct ids so that key collisions occur.
func entityPool(t *rapid.T, r *Repository) []*item {
	n := rapid.IntRange(1, 8).Draw(t, "entities")
	k := rapid.IntRange(1, n).Draw(t, "distinctIDs")
	pool := make([]*item, n)
	for i := range pool {
		pool[i] = newItem(nil, WithID(scopedID(r, byte(i%k+1))))
	}
	return pool
}

type op struct {
	kind  string
	index int
	force bool
}

func drawOps(t *rapid.T, size int) []op {
	count := rapid.IntRange(0, 40).Draw(t, "ops")
	ops := make([]op, count)
	for i := range ops {
		ops[i] = op{
			kind:  rapid.SampledFrom([]string{"add", "remove", "touch", "clear"}).Draw(t, fmt.Sprintf("kind-%d", i)),
			index: rapid.IntRange(0, size-1).Draw(t, fmt.Sprintf("index-%d", i)),
			force: rapid.Bool().Draw(t, fmt.Sprintf("force-%d", i)),
		}
	}
	return ops
}

func apply(r *Repository, pool []*item, o op) {
	e := pool[o.index]
	switch o.kind {
	case "add":
		r.Add(e.Key(), e, o.force)
	case "remove":
		r.Remove(e.Key(), false)
	case "touch":
		e.SetLabel(fmt.Sprintf("v%d", len(e.label)))
	case "clear":
		r.Clear()
	}
}

func assertInvariants(t *rapid.T, r *Repository) {
	for key, e := range r.Objects() {
		require.Equal(t, key, e.Base().Key(), "key matches the id of its value")
		require.True(t, r.IsObserving(e), "every member is observed")
	}

	added := r.AddedObjects()
	require.Equal(t, len(added), len(uniqueEntities(added)), "added log has no duplicates")
	updated := r.UpdatedObjects()
	require.Equal(t, len(updated), len(uniqueEntities(updated)), "updated log has no duplicates")
	deleted := r.DeletedObjects()
	require.Equal(t, len(deleted), len(slices.Compact(slices.Sorted(slices.Values(deleted)))), "deleted log has no duplicates")

	for _, key := range deleted {
		require.False(t, r.Contains(key), "a present key is never in the deleted log")
	}
}

func uniqueEntities(es []Entity) map[Entity]bool {
	out := make(map[Entity]bool, len(es))
	for _, e := range es {
		out[e] = true
	}
	return out
}

func TestProperty_RepositoryInvariantsHold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newRepo(repoAID, "R")
		pool := entityPool(t, r)

		for _, o := range drawOps(t, len(pool)) {
			apply(r, pool, o)
			assertInvariants(t, r)
		}
	})
}

func TestProperty_AddWithoutForceNeverOverwrites(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newRepo(repoAID, "R")
		pool := entityPool(t, r)

		for _, o := range drawOps(t, len(pool)) {
			e := pool[o.index]
			before, had := r.Lookup(e.Key())
			ok := r.Add(e.Key(), e, false)
			after, _ := r.Lookup(e.Key())
			if had {
				require.False(t, ok)
				require.Equal(t, before, after)
			} else {
				require.True(t, ok)
				require.Equal(t, Entity(e), after)
			}
		}
	})
}

func TestProperty_RemoveAbsentIsNoop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newRepo(repoAID, "R")
		pool := entityPool(t, r)
		for _, o := range drawOps(t, len(pool)) {
			apply(r, pool, o)
		}
		added, updated, deleted := r.AddedObjects(), r.UpdatedObjects(), r.DeletedObjects()

		require.False(t, r.Remove("absent-key", rapid.Bool().Draw(t, "suppress")))

		require.Equal(t, added, r.AddedObjects())
		require.Equal(t, updated, r.UpdatedObjects())
		require.Equal(t, deleted, r.DeletedObjects())
	})
}

func TestProperty_LoadingOnlySuppressesNotifications(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		quiet := newRepo(repoAID, "quiet")
		loud := newRepo(repoAID, "loud")
		quietPool := entityPool(t, quiet)
		loudPool := make([]*item, len(quietPool))
		for i, e := range quietPool {
			loudPool[i] = newItem(nil, WithID(e.ID()))
		}
		ops := drawOps(t, len(quietPool))

		quiet.SetLoading(true)
		ev := watch(quiet)
		for _, o := range ops {
			apply(quiet, quietPool, o)
			apply(loud, loudPool, o)
		}
		quiet.SetLoading(false)

		require.Zero(t, ev.objects)
		require.Zero(t, ev.added)
		require.Zero(t, ev.updated)
		require.Zero(t, ev.deleted)

		require.Equal(t, loud.Keys(), quiet.Keys())
		require.Equal(t, keysOf(loud.AddedObjects()), keysOf(quiet.AddedObjects()))
		require.Equal(t, keysOf(loud.UpdatedObjects()), keysOf(quiet.UpdatedObjects()))
		require.Equal(t, loud.DeletedObjects(), quiet.DeletedObjects())
	})
}

func TestProperty_UnforwardRemovesExactlySourceMembers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		src := newRepo(repoAID, "src")
		dst := newRepo(repoCID, "dst")
		require.True(t, dst.Forward(src))

		n := rapid.IntRange(0, 6).Draw(t, "sourceMembers")
		m := rapid.IntRange(0, 6).Draw(t, "localMembers")
		for i := 0; i < n; i++ {
			newItem(src)
		}
		local := make([]string, m)
		for i := range local {
			local[i] = newItem(dst).Key()
		}
		if n > 0 && rapid.Bool().Draw(t, "removeOne") {
			src.Remove(src.Keys()[0], false)
		}

		require.True(t, dst.Unforward(src))

		require.ElementsMatch(t, local, dst.Keys())
	})
}

func TestProperty_AvailabilityCascadesOnlyDownward(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newRepo(repoAID, "R")
		n := rapid.IntRange(0, 8).Draw(t, "members")
		members := make([]*item, n)
		for i := range members {
			members[i] = newItem(r)
			members[i].SetAvailable(rapid.Bool().Draw(t, fmt.Sprintf("avail-%d", i)))
		}
		before := make([]bool, n)
		for i, m := range members {
			before[i] = m.Available()
		}

		r.SetAvailable(true)
		for i, m := range members {
			require.Equal(t, before[i], m.Available(), "true does not cascade")
		}

		r.SetAvailable(false)
		for _, m := range members {
			require.False(t, m.Available())
		}

		r.SetAvailable(true)
		for _, m := range members {
			require.False(t, m.Available())
		}
	})
}
