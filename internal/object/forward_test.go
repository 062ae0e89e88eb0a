package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForward_MirrorsExistingAndFutureMembers(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	x := newItem(a)
	y := newItem(a)
	ev := watch(b)

	require.True(t, b.Forward(a))

	assert.True(t, b.Contains(x.Key()))
	assert.True(t, b.Contains(y.Key()))
	assert.Equal(t, []*Repository{a}, b.ForwardedRepos())
	assert.Equal(t, 1, ev.forwarded)

	z := newItem(a)

	assert.True(t, b.Contains(z.Key()), "relayed without a direct call to B")
	assert.Same(t, a, z.Repository(), "membership stays with the source")
}

func TestForward_OverwritesLocalEntity(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	require.True(t, b.Forward(a))
	local := newItem(b, WithID(unscopedID(7)))
	require.True(t, b.Contains(local.Key()))

	remote := newItem(nil, WithID(local.ID()))
	require.True(t, remote.AttachTo(a))

	got, _ := b.Lookup(remote.Key())
	assert.Equal(t, Entity(remote), got, "source entity wins with force semantics")
	assert.False(t, b.IsObserving(local))
}

func TestForward_InitialCopyOverwritesLocalEntity(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	remote := newItem(a, WithID(unscopedID(7)))
	local := newItem(nil, WithID(remote.ID()))
	require.True(t, local.AttachTo(b))

	require.True(t, b.Forward(a))

	got, _ := b.Lookup(remote.Key())
	assert.Equal(t, Entity(remote), got)
}

func TestForward_RelaysDeletion(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	x := newItem(a)
	require.True(t, b.Forward(a))

	x.Destroy()

	assert.False(t, b.Contains(x.Key()))
	assert.Equal(t, []string{x.Key()}, b.DeletedObjects())
}

func TestForward_SharesFieldUpdates(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	x := newItem(a)
	require.True(t, b.Forward(a))

	x.SetLabel("seen by both")

	assert.Equal(t, []Entity{Entity(x)}, a.UpdatedObjects())
	assert.Equal(t, []Entity{Entity(x)}, b.UpdatedObjects())
}

func TestForward_Guards(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")

	assert.False(t, b.Forward(nil))
	assert.False(t, b.Forward(b))
	require.True(t, b.Forward(a))
	assert.False(t, b.Forward(a), "already forwarded")
	assert.Len(t, b.ForwardedRepos(), 1)

	assert.False(t, b.Unforward(nil))
	c := newRepo(repoCID, "C")
	assert.False(t, b.Unforward(c), "not forwarded")
}

func TestUnforward_RemovesExactlySourceMembers(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	x := newItem(a)
	require.True(t, b.Forward(a))
	own := newItem(b)
	y := newItem(a)
	ev := watch(b)

	require.True(t, b.Unforward(a))

	assert.Equal(t, []string{own.Key()}, b.Keys())
	assert.ElementsMatch(t, []string{x.Key(), y.Key()}, ev.deleteIDs)
	assert.Empty(t, b.ForwardedRepos())
	assert.Equal(t, 1, ev.forwarded)
	assert.Equal(t, 2, a.Len(), "source is untouched")

	newItem(a)
	assert.Equal(t, 1, b.Len(), "no longer relayed")
}

func TestUnforward_KeepsLocalEntitySharingAKey(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	remote := newItem(a, WithID(unscopedID(5)))
	require.True(t, b.Forward(a))
	local := newItem(nil, WithID(remote.ID()))
	require.True(t, b.Add(local.Key(), local, true))

	require.True(t, b.Unforward(a))

	got, ok := b.Lookup(local.Key())
	require.True(t, ok)
	assert.Equal(t, Entity(local), got)
}

func TestForward_MutualForwardingTerminates(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	require.True(t, a.Forward(b))
	require.True(t, b.Forward(a))

	x := newItem(a)
	y := newItem(b)

	assert.ElementsMatch(t, []string{x.Key(), y.Key()}, a.Keys())
	assert.ElementsMatch(t, []string{x.Key(), y.Key()}, b.Keys())

	x.Destroy()

	assert.Equal(t, []string{y.Key()}, a.Keys())
	assert.Equal(t, []string{y.Key()}, b.Keys())
}

func TestForward_ChainRelays(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	c := newRepo(repoCID, "C")
	require.True(t, b.Forward(a))
	require.True(t, c.Forward(b))

	x := newItem(a)

	assert.True(t, c.Contains(x.Key()))
}

func TestForward_DestroyTearsDownLinks(t *testing.T) {
	a := newRepo(repoAID, "A")
	b := newRepo(repoBID, "B")
	c := newRepo(repoCID, "C")
	newItem(a)
	require.True(t, b.Forward(a))
	require.True(t, c.Forward(b))

	b.Destroy()

	assert.Empty(t, c.ForwardedRepos(), "destinations stop forwarding the destroyed repository")
	assert.Zero(t, a.ObjectAdded.Len(), "no relay callbacks left on the source")
	assert.Zero(t, c.Len())

	newItem(a)
	assert.Zero(t, c.Len())
}
