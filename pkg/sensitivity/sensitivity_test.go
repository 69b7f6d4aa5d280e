package sensitivity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/sampling"
	"github.com/bayesnet/kernel/pkg/sensitivity"
)

func prior(p float64) []cpt.Entry {
	return []cpt.Entry{{ParentStates: map[cpt.NodeID]cpt.Tri{}, Probability: p}}
}

func cond1(parent cpt.NodeID, pTrue, pFalse float64) []cpt.Entry {
	return []cpt.Entry{
		{ParentStates: map[cpt.NodeID]cpt.Tri{parent: cpt.True}, Probability: pTrue},
		{ParentStates: map[cpt.NodeID]cpt.Tri{parent: cpt.False}, Probability: pFalse},
	}
}

func drain(t *testing.T, results <-chan sensitivity.Result, errs <-chan error) []sensitivity.Result {
	t.Helper()
	var out []sensitivity.Result
	for r := range results {
		out = append(out, r)
	}
	if err, ok := <-errs; ok && err != nil {
		t.Fatalf("sensitivity compute failed: %v", err)
	}
	return out
}

// TestSensitivity_PositiveChain exercises §8 scenario 6's positive case:
// A -> B -> C with positive dependencies yields sensitivity(A; C) > 0.
func TestSensitivity_PositiveChain(t *testing.T) {
	a, b, c := cpt.NewNodeID(), cpt.NewNodeID(), cpt.NewNodeID()
	vars := []sampling.Variable{
		{ID: a, CPT: prior(0.5)},
		{ID: b, CPT: cond1(a, 0.9, 0.1)},
		{ID: c, CPT: cond1(b, 0.9, 0.1)},
	}
	results, errs := sensitivity.Compute(vars, c, 75_000)
	out := drain(t, results, errs)

	require.Len(t, out, 2)
	byID := map[cpt.NodeID]float64{}
	for _, r := range out {
		byID[r.Ancestor] = r.Sensitivity
	}
	require.Greater(t, byID[a], 0.0)
	require.Greater(t, byID[b], 0.0)
}

// TestSensitivity_SignFlips exercises §8 scenario 6's negated case:
// reversing P(C|B) flips the sign of sensitivity(A; C).
func TestSensitivity_SignFlips(t *testing.T) {
	a, b, c := cpt.NewNodeID(), cpt.NewNodeID(), cpt.NewNodeID()
	vars := []sampling.Variable{
		{ID: a, CPT: prior(0.5)},
		{ID: b, CPT: cond1(a, 0.9, 0.1)},
		{ID: c, CPT: cond1(b, 0.1, 0.8)},
	}
	results, errs := sensitivity.Compute(vars, c, 75_000)
	out := drain(t, results, errs)

	byID := map[cpt.NodeID]float64{}
	for _, r := range out {
		byID[r.Ancestor] = r.Sensitivity
	}
	require.Less(t, byID[a], 0.0)
}

func TestSensitivity_UnreachableAncestorSkipped(t *testing.T) {
	a, b, isolated := cpt.NewNodeID(), cpt.NewNodeID(), cpt.NewNodeID()
	vars := []sampling.Variable{
		{ID: a, CPT: prior(0.5)},
		{ID: b, CPT: cond1(a, 0.8, 0.2)},
		{ID: isolated, CPT: prior(0.3)},
	}
	results, errs := sensitivity.Compute(vars, b, 50_000)
	out := drain(t, results, errs)
	require.Len(t, out, 1)
	require.Equal(t, a, out[0].Ancestor)
}

func TestAncestors_AscendingOrder(t *testing.T) {
	a, b, c := cpt.NewNodeID(), cpt.NewNodeID(), cpt.NewNodeID()
	vars := []sampling.Variable{
		{ID: a, CPT: prior(0.5)},
		{ID: b, CPT: cond1(a, 0.8, 0.2)},
		{ID: c, CPT: cond1(b, 0.8, 0.2)},
	}
	out := sensitivity.Ancestors(vars, c)
	require.Len(t, out, 2)
	require.True(t, out[0].String() < out[1].String())
}
