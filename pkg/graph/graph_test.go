package graph_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/graph"
	"github.com/bayesnet/kernel/pkg/kernelerr"
	"github.com/bayesnet/kernel/pkg/store"
)

func newGraph(t *testing.T) (*graph.Graph, store.ModelID) {
	t.Helper()
	s := store.NewInMemoryStore()
	g := graph.New(s)
	m, err := g.CreateModel("alice", "test-model", false)
	require.NoError(t, err)
	return g, m.ID
}

func TestCreateVariable_TrivialPrior(t *testing.T) {
	g, modelID := newGraph(t)
	n, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, n.CPT, 1)
	require.Equal(t, 0.5, n.CPT[0].Probability)
	require.Empty(t, n.CPT[0].ParentStates)
}

func TestCreateVariable_NonOwnerRejected(t *testing.T) {
	g, modelID := newGraph(t)
	_, err := g.CreateVariable("mallory", modelID, "A", "", 0, 0)
	require.Error(t, err)
	require.True(t, kernelerr.Is(err, kernelerr.NotAuthorized))
}

func TestUpdateVariable_AddParentAcyclicChain(t *testing.T) {
	g, modelID := newGraph(t)
	a, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	b, err := g.CreateVariable("alice", modelID, "B", "", 0, 0)
	require.NoError(t, err)

	bCPT := []cpt.Entry{
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.True}, Probability: 0.8},
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.False}, Probability: 0.2},
	}
	updated, err := g.UpdateVariable("alice", b.ID, graph.Patch{CPT: bCPT})
	require.NoError(t, err)
	require.ElementsMatch(t, []cpt.NodeID{a.ID}, cpt.ParentSet(updated.CPT))
}

func TestUpdateVariable_CycleRejected(t *testing.T) {
	g, modelID := newGraph(t)
	a, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	b, err := g.CreateVariable("alice", modelID, "B", "", 0, 0)
	require.NoError(t, err)
	c, err := g.CreateVariable("alice", modelID, "C", "", 0, 0)
	require.NoError(t, err)

	// A -> B
	_, err = g.UpdateVariable("alice", b.ID, graph.Patch{CPT: []cpt.Entry{
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.True}, Probability: 0.8},
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.False}, Probability: 0.2},
	}})
	require.NoError(t, err)

	// B -> C
	_, err = g.UpdateVariable("alice", c.ID, graph.Patch{CPT: []cpt.Entry{
		{ParentStates: map[cpt.NodeID]cpt.Tri{b.ID: cpt.True}, Probability: 0.9},
		{ParentStates: map[cpt.NodeID]cpt.Tri{b.ID: cpt.False}, Probability: 0.1},
	}})
	require.NoError(t, err)

	// Attempt C -> A: would close the cycle A->B->C->A.
	_, err = g.UpdateVariable("alice", a.ID, graph.Patch{CPT: []cpt.Entry{
		{ParentStates: map[cpt.NodeID]cpt.Tri{c.ID: cpt.True}, Probability: 0.5},
		{ParentStates: map[cpt.NodeID]cpt.Tri{c.ID: cpt.False}, Probability: 0.5},
	}})
	require.Error(t, err)
	require.True(t, kernelerr.Is(err, kernelerr.WouldCreateCycle))

	// State unchanged: A is still a root.
	reread, err := g.GetVariable("alice", a.ID)
	require.NoError(t, err)
	require.Empty(t, cpt.ParentSet(reread.CPT))
}

func TestGraph_AddParentThenRemoveParent(t *testing.T) {
	g, modelID := newGraph(t)
	a, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	b, err := g.CreateVariable("alice", modelID, "B", "", 0, 0)
	require.NoError(t, err)

	updated, err := g.AddParent("alice", a.ID, b.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []cpt.NodeID{a.ID}, cpt.ParentSet(updated.CPT))
	require.Len(t, updated.CPT, 1, "adding a parent to a 1-entry root CPT widens every row with an ANY slot")

	reread, err := g.GetVariable("alice", b.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []cpt.NodeID{a.ID}, cpt.ParentSet(reread.CPT))

	back, err := g.RemoveParent("alice", a.ID, b.ID)
	require.NoError(t, err)
	require.Empty(t, cpt.ParentSet(back.CPT))
	require.Len(t, back.CPT, 1)
	require.Equal(t, 0.5, back.CPT[0].Probability, "dropping the only parent from a single ANY row leaves the original 0.5 prior")
}

func TestGraph_AddParentWouldCreateCycleRejected(t *testing.T) {
	g, modelID := newGraph(t)
	a, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	b, err := g.CreateVariable("alice", modelID, "B", "", 0, 0)
	require.NoError(t, err)

	_, err = g.AddParent("alice", a.ID, b.ID) // A -> B
	require.NoError(t, err)

	_, err = g.AddParent("alice", b.ID, a.ID) // B -> A would close the cycle
	require.Error(t, err)
	require.True(t, kernelerr.Is(err, kernelerr.WouldCreateCycle))

	reread, err := g.GetVariable("alice", a.ID)
	require.NoError(t, err)
	require.Empty(t, cpt.ParentSet(reread.CPT), "rejected AddParent must leave A's CPT untouched")
}

func TestGraph_AddParentConcurrentCallsBothLand(t *testing.T) {
	g, modelID := newGraph(t)
	p1, err := g.CreateVariable("alice", modelID, "P1", "", 0, 0)
	require.NoError(t, err)
	p2, err := g.CreateVariable("alice", modelID, "P2", "", 0, 0)
	require.NoError(t, err)
	child, err := g.CreateVariable("alice", modelID, "Child", "", 0, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = g.AddParent("alice", p1.ID, child.ID) }()
	go func() { defer wg.Done(); _, _ = g.AddParent("alice", p2.ID, child.ID) }()
	wg.Wait()

	reread, err := g.GetVariable("alice", child.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []cpt.NodeID{p1.ID, p2.ID}, cpt.ParentSet(reread.CPT),
		"both concurrent AddParent calls must be reflected — neither a lost update nor a torn CPT")
}

func TestUpdateVariable_SelfParentRejected(t *testing.T) {
	g, modelID := newGraph(t)
	a, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	_, err = g.UpdateVariable("alice", a.ID, graph.Patch{CPT: []cpt.Entry{
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.True}, Probability: 0.5},
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.False}, Probability: 0.5},
	}})
	require.Error(t, err)
	require.True(t, kernelerr.Is(err, kernelerr.SelfParent))
}

func TestRemoveVariable_CPTCollapsesToTrivialPrior(t *testing.T) {
	g, modelID := newGraph(t)
	a, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	b, err := g.CreateVariable("alice", modelID, "B", "", 0, 0)
	require.NoError(t, err)
	_, err = g.UpdateVariable("alice", b.ID, graph.Patch{CPT: []cpt.Entry{
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.True}, Probability: 0.9},
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.False}, Probability: 0.1},
	}})
	require.NoError(t, err)

	var fallbackCalled cpt.NodeID
	g.OnParentRemovalFallback = func(childID cpt.NodeID) { fallbackCalled = childID }

	require.NoError(t, g.RemoveVariable("alice", a.ID))

	reread, err := g.GetVariable("alice", b.ID)
	require.NoError(t, err)
	require.Len(t, reread.CPT, 1)
	require.Equal(t, 0.5, reread.CPT[0].Probability)
	require.Empty(t, cpt.ParentSet(reread.CPT))
	require.Equal(t, b.ID, fallbackCalled)
}

func TestRemoveVariable_IsIdempotent(t *testing.T) {
	g, modelID := newGraph(t)
	a, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	require.NoError(t, g.RemoveVariable("alice", a.ID))
	require.NoError(t, g.RemoveVariable("alice", a.ID))
}

func TestReadAccess_PublicModelAllowsNonOwner(t *testing.T) {
	s := store.NewInMemoryStore()
	g := graph.New(s)
	m, err := g.CreateModel("alice", "public-model", true)
	require.NoError(t, err)
	n, err := g.CreateVariable("alice", m.ID, "A", "", 0, 0)
	require.NoError(t, err)

	_, err = g.GetVariable("mallory", n.ID)
	require.NoError(t, err)
}

func TestReadAccess_PrivateModelRejectsNonOwner(t *testing.T) {
	g, modelID := newGraph(t)
	n, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)

	_, err = g.GetVariable("mallory", n.ID)
	require.Error(t, err)
	require.True(t, kernelerr.Is(err, kernelerr.NotAuthorized))
}

func TestReorderColumns_MustBePermutation(t *testing.T) {
	g, modelID := newGraph(t)
	a, err := g.CreateVariable("alice", modelID, "A", "", 0, 0)
	require.NoError(t, err)
	b, err := g.CreateVariable("alice", modelID, "B", "", 0, 0)
	require.NoError(t, err)
	c, err := g.CreateVariable("alice", modelID, "C", "", 0, 0)
	require.NoError(t, err)

	_, err = g.UpdateVariable("alice", c.ID, graph.Patch{CPT: []cpt.Entry{
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.True, b.ID: cpt.Any}, Probability: 0.9},
		{ParentStates: map[cpt.NodeID]cpt.Tri{a.ID: cpt.False, b.ID: cpt.Any}, Probability: 0.1},
	}})
	require.NoError(t, err)

	updated, err := g.ReorderColumns("alice", c.ID, []cpt.NodeID{b.ID, a.ID})
	require.NoError(t, err)
	require.Equal(t, []cpt.NodeID{b.ID, a.ID}, updated.ColumnOrder)

	_, err = g.ReorderColumns("alice", c.ID, []cpt.NodeID{b.ID})
	require.Error(t, err)
	require.True(t, kernelerr.Is(err, kernelerr.BadColumnOrder))
}
