package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Defaults(t *testing.T) {
	r := NewRepository(nil)

	assert.Equal(t, DefaultRepositoryName, r.Name())
	assert.Equal(t, "Repository", r.TypeName())
	assert.Zero(t, r.Len())
	assert.Nil(t, r.RootObject())
	assert.False(t, r.Loading())
}

func TestRepository_AddForceScenario(t *testing.T) {
	r := newRepo(repoAID, "R")
	e1 := newItem(nil, WithID(scopedID(r, 1)))
	e2 := newItem(nil, WithID(scopedID(r, 1)))
	u1 := e1.Key()

	require.True(t, r.Add(u1, e1, false))
	assert.Equal(t, map[string]Entity{u1: e1}, r.Objects())
	assert.Equal(t, []Entity{Entity(e1)}, r.AddedObjects())

	assert.False(t, r.Add(u1, e2, false))
	got, _ := r.Lookup(u1)
	assert.Equal(t, Entity(e1), got, "objects unchanged after refused add")

	require.True(t, r.Add(u1, e2, true))
	got, _ = r.Lookup(u1)
	assert.Equal(t, Entity(e2), got)
	assert.False(t, r.IsObserving(e1), "overwritten occupant is no longer observed")
	assert.True(t, r.IsObserving(e2))
	assert.Contains(t, r.AddedObjects(), Entity(e2))
	assert.Contains(t, r.AddedObjects(), Entity(e1), "past log keeps the earlier add")
}

func TestRepository_AddSameEntityTwiceFails(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(r)
	ev := watch(r)

	assert.False(t, r.Add(e.Key(), e, false))

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []Entity{Entity(e)}, r.AddedObjects())
	assert.Zero(t, ev.objects)
	assert.Zero(t, ev.added)
}

func TestRepository_AddRejectsInvalidInput(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(nil)

	assert.False(t, r.Add("k", nil, false), "nil entity")
	assert.False(t, r.Add(r.Key(), r, true), "repository cannot contain itself")
	assert.False(t, r.Add("not-the-id", e, false), "key must match the id")
	assert.Zero(t, r.Len())
}

func TestRepository_AddNotifications(t *testing.T) {
	r := newRepo(repoAID, "R")
	ev := watch(r)

	e := newItem(r)

	assert.Equal(t, []string{e.Key()}, ev.addedIDs)
	assert.Equal(t, 1, ev.objects)
	assert.Equal(t, 1, ev.added)
}

func TestRepository_AddClearsDeletedEntry(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(r)
	key := e.Key()
	require.True(t, r.Remove(key, false))
	require.Equal(t, []string{key}, r.DeletedObjects())

	require.True(t, r.Add(key, e, false))

	assert.Empty(t, r.DeletedObjects())
}

func TestRepository_RemoveAbsentLeavesLogsUnchanged(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(r)
	e.SetLabel("x")
	ev := watch(r)

	assert.False(t, r.Remove("missing", false))

	assert.Equal(t, []Entity{Entity(e)}, r.AddedObjects())
	assert.Equal(t, []Entity{Entity(e)}, r.UpdatedObjects())
	assert.Empty(t, r.DeletedObjects())
	assert.Equal(t, events{}, *ev)
}

func TestRepository_Remove(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(r)
	e.SetLabel("x")
	key := e.Key()
	ev := watch(r)

	require.True(t, r.Remove(key, false))

	assert.False(t, r.Contains(key))
	assert.False(t, r.IsObserving(e))
	assert.Empty(t, r.AddedObjects(), "dropped silently from pending logs")
	assert.Empty(t, r.UpdatedObjects())
	assert.Equal(t, []string{key}, r.DeletedObjects())
	assert.Equal(t, []string{key}, ev.deleteIDs)
	assert.Equal(t, 1, ev.objects)
	assert.Equal(t, 1, ev.deleted)
	assert.Zero(t, ev.added)
	assert.Zero(t, ev.updated)
}

func TestRepository_RemoveDetachesMember(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(r)
	var fields []string
	e.FieldChanged.Connect(t, func(f string) { fields = append(fields, f) })

	require.True(t, r.Remove(e.Key(), false))
	assert.Nil(t, e.Repository())
	assert.Equal(t, []string{FieldRepository}, fields)

	require.True(t, e.AttachTo(r))
	assert.True(t, r.Contains(e.Key()), "AttachTo registers again")
	assert.Same(t, r, e.Repository())
}

func TestRepository_RemoveSuppressed(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(r)
	ev := watch(r)

	require.True(t, r.Remove(e.Key(), true))

	assert.Equal(t, []string{e.Key()}, r.DeletedObjects())
	assert.Equal(t, []string{e.Key()}, ev.deleteIDs, "object deleted always fires")
	assert.Zero(t, ev.objects)
	assert.Zero(t, ev.deleted)
}

func TestRepository_ClearNotifiesOnce(t *testing.T) {
	r := newRepo(repoAID, "R")
	var keys []string
	for n := byte(3); n >= 1; n-- {
		keys = append(keys, newItem(r, WithID(unscopedID(n))).Key())
	}
	ev := watch(r)

	assert.True(t, r.Clear())

	assert.Zero(t, r.Len())
	assert.Equal(t, 1, ev.objects)
	assert.Equal(t, 1, ev.deleted)
	assert.Equal(t, []string{keys[2], keys[1], keys[0]}, ev.deleteIDs, "lowest key first")
	assert.False(t, r.Clear(), "nothing left to remove")
	assert.Equal(t, 1, ev.objects)
}

func TestRepository_ClearWhileHandlerAdds(t *testing.T) {
	r := newRepo(repoAID, "R")
	newItem(r)
	late := newItem(nil)
	once := false
	r.ObjectDeleted.Connect(t, func(string) {
		if !once {
			once = true
			late.AttachTo(r)
		}
	})

	assert.True(t, r.Clear())
	assert.Zero(t, r.Len(), "members added during Clear are removed too")
}

func TestRepository_LoadingSuppressesNotifications(t *testing.T) {
	r := newRepo(repoAID, "R")
	r.SetLoading(true)
	ev := watch(r)

	e := newItem(nil)
	e.AttachTo(r)
	assert.False(t, r.Contains(e.Key()), "RegisterObject accepts without adding while loading")
	assert.Same(t, r, e.Repository())

	require.True(t, r.Add(e.Key(), e, false))
	e.SetLabel("changed")
	other := newItem(nil)
	require.True(t, r.Add(other.Key(), other, false))
	require.True(t, r.Remove(other.Key(), false))

	assert.Zero(t, ev.objects)
	assert.Zero(t, ev.added)
	assert.Zero(t, ev.updated)
	assert.Zero(t, ev.deleted)
	assert.Equal(t, []string{e.Key(), other.Key()}, ev.addedIDs, "object added still fires")

	r.SetLoading(false)

	assert.Equal(t, []string{e.Key()}, r.Keys())
	assert.Equal(t, []Entity{Entity(e)}, r.AddedObjects())
	assert.Equal(t, []Entity{Entity(e)}, r.UpdatedObjects())
	assert.Equal(t, []string{other.Key()}, r.DeletedObjects())
}

func TestRepository_RegisterAndUnregister(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(nil)

	assert.False(t, r.RegisterObject(nil))
	assert.True(t, r.UnregisterObject(nil))
	assert.True(t, r.UnregisterObject(e), "absent entity counts as removed")
	assert.Empty(t, r.DeletedObjects())

	require.True(t, r.RegisterObject(e))
	assert.True(t, r.Contains(e.Key()))
	assert.False(t, r.RegisterObject(e), "duplicate")

	assert.True(t, r.UnregisterObject(e))
	assert.False(t, r.Contains(e.Key()))
}

func TestRepository_UnregisterIgnoresOtherOccupant(t *testing.T) {
	r := newRepo(repoAID, "R")
	e1 := newItem(r, WithID(unscopedID(1)))
	e2 := newItem(nil, WithID(e1.ID()))
	require.True(t, r.Add(e2.Key(), e2, true))

	r.UnregisterObject(e1)

	got, ok := r.Lookup(e2.Key())
	require.True(t, ok)
	assert.Equal(t, Entity(e2), got)
	assert.Nil(t, e1.Repository(), "displaced occupant lost its membership")
}

func TestRepository_ObservationScopedToInterface(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(r)
	ev := watch(r)

	e.SetInternal("impl detail")
	e.SetSecret("private")
	assert.Empty(t, r.UpdatedObjects())

	e.SetLabel("a")
	e.SetLabel("b")
	assert.Equal(t, []Entity{Entity(e)}, r.UpdatedObjects())
	assert.Equal(t, 1, ev.updated, "deduplicated")

	e.SetAvailable(false)
	assert.Equal(t, 1, ev.updated)
}

func TestRepository_ObservationWithoutInterface(t *testing.T) {
	r := newRepo(repoAID, "R")
	p := newPlain(r)

	p.SetHidden("x")
	assert.Empty(t, r.UpdatedObjects())

	p.SetLabel("y")
	assert.Equal(t, []Entity{Entity(p)}, r.UpdatedObjects())
}

func TestRepository_NoDuplicateSubscriptions(t *testing.T) {
	r := newRepo(repoAID, "R")
	e := newItem(r)
	before := e.FieldChanged.Len()

	require.True(t, r.Add(e.Key(), e, true))
	require.True(t, r.Add(e.Key(), e, true))

	assert.Equal(t, before, e.FieldChanged.Len())

	r.Remove(e.Key(), false)
	assert.False(t, r.IsObserving(e))
	e.SetLabel("after removal")
	assert.Empty(t, r.UpdatedObjects())
}

func TestRepository_AvailabilityCascade(t *testing.T) {
	r := newRepo(repoAID, "R")
	a := newItem(r)
	b := newPlain(r)
	outsider := newItem(nil)

	r.SetAvailable(false)

	assert.False(t, a.Available())
	assert.False(t, b.Available())
	assert.True(t, outsider.Available())

	r.SetAvailable(true)

	assert.False(t, a.Available(), "restoring availability does not cascade")
	assert.False(t, b.Available())

	a.SetAvailable(true)
	assert.True(t, a.Available(), "explicit resync re-enables")
}

func TestRepository_TakeChanges(t *testing.T) {
	r := newRepo(repoAID, "R")
	a := newItem(r)
	b := newItem(r)
	a.SetLabel("x")
	r.Remove(b.Key(), false)
	ev := watch(r)

	changes := r.TakeChanges()

	assert.Equal(t, []Entity{Entity(a)}, changes.Added)
	assert.Equal(t, []Entity{Entity(a)}, changes.Updated)
	assert.Equal(t, []string{b.Key()}, changes.Deleted)
	assert.False(t, changes.Empty())
	assert.Equal(t, 1, ev.added)
	assert.Equal(t, 1, ev.updated)
	assert.Equal(t, 1, ev.deleted)

	again := r.TakeChanges()
	assert.True(t, again.Empty())
	assert.Equal(t, 1, ev.added, "draining empty logs is silent")
}

func TestRepository_NameAndRootObject(t *testing.T) {
	outer := newRepo(repoBID, "outer")
	r := NewRepository(outer, WithID(repoAID), WithName("R"))
	root := newItem(r)

	r.SetName("renamed")
	r.SetRootObject(root)

	assert.Equal(t, "renamed", r.Name())
	assert.Equal(t, Entity(root), r.RootObject())
	assert.Equal(t, []Entity{Entity(r)}, outer.UpdatedObjects(), "name and root are observed")
}

func TestRepository_DestroyClearsMemberBackReferences(t *testing.T) {
	r := newRepo(repoAID, "R")
	member := newItem(nil)
	require.True(t, member.AttachTo(r))

	r.Destroy()

	assert.Nil(t, member.Repository())
	assert.False(t, member.IsDestroyed(), "repository does not own its members")
	assert.False(t, r.IsObserving(member))
	assert.Zero(t, r.Len())
}
