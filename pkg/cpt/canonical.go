package cpt

import "sort"

// CanonicalEntry is a deterministically-ordered view of one CPTEntry, used
// by the inference service's probabilistic fingerprint, which needs a
// stable byte representation of a CPT regardless of map iteration order.
// Validate does not use it; it sorts the parent set itself.
type CanonicalEntry struct {
	States      []CanonicalState
	Probability float64
}

// CanonicalState is one (parentID, Tri) pair within a CanonicalEntry.
type CanonicalState struct {
	Parent NodeID
	State  Tri
}

// Canonicalize sorts each entry's parent states by ascending parent id and
// then sorts the entries themselves by their resulting state sequence, so
// two entry lists that are equal as sets produce byte-identical output.
func Canonicalize(entries []Entry) []CanonicalEntry {
	out := make([]CanonicalEntry, len(entries))
	for i, e := range entries {
		states := make([]CanonicalState, 0, len(e.ParentStates))
		for p, t := range e.ParentStates {
			states = append(states, CanonicalState{Parent: p, State: t})
		}
		sort.Slice(states, func(a, b int) bool { return states[a].Parent.String() < states[b].Parent.String() })
		out[i] = CanonicalEntry{States: states, Probability: e.Probability}
	}
	sort.Slice(out, func(i, j int) bool { return lessCanonical(out[i], out[j]) })
	return out
}

func lessCanonical(a, b CanonicalEntry) bool {
	n := len(a.States)
	if len(b.States) < n {
		n = len(b.States)
	}
	for i := 0; i < n; i++ {
		if a.States[i].Parent != b.States[i].Parent {
			return a.States[i].Parent.String() < b.States[i].Parent.String()
		}
		if a.States[i].State != b.States[i].State {
			return a.States[i].State < b.States[i].State
		}
	}
	if len(a.States) != len(b.States) {
		return len(a.States) < len(b.States)
	}
	return a.Probability < b.Probability
}
