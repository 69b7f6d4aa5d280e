package cpt

// AddParent returns a copy of entries with parentID added as an ANY slot to
// every entry. Coverage is preserved automatically: widening every row's
// wildcard set can neither create a gap nor a conflict.
func AddParent(entries []Entry, parentID NodeID) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		states := make(map[NodeID]Tri, len(e.ParentStates)+1)
		for p, t := range e.ParentStates {
			states[p] = t
		}
		states[parentID] = Any
		out[i] = Entry{ParentStates: states, Probability: e.Probability}
	}
	return out
}

// DropParent returns a copy of entries with parentID deleted from every
// entry's parent-state map. The result is NOT guaranteed to still satisfy
// the coverage/non-conflict invariant (two rows that only differed on
// parentID collapse into duplicates); callers must re-validate. On failure
// graph.RemoveVariable falls back to the trivial prior (§4.2), while
// graph.RemoveParent returns the validation error.
func DropParent(entries []Entry, parentID NodeID) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		states := make(map[NodeID]Tri, len(e.ParentStates))
		for p, t := range e.ParentStates {
			if p == parentID {
				continue
			}
			states[p] = t
		}
		out[i] = Entry{ParentStates: states, Probability: e.Probability}
	}
	return out
}

// TrivialPrior is the reset value used whenever a CPT mutation cannot be
// repaired in place (§3 Lifecycle, §4.2 fallback): an unconditional 0.5.
func TrivialPrior() []Entry {
	return []Entry{{ParentStates: map[NodeID]Tri{}, Probability: 0.5}}
}

// SyncColumnOrder preserves the previous display order for parents that
// still exist in the new parent set and appends newly-introduced parents at
// the end, so UIs don't reshuffle columns a user hasn't touched.
func SyncColumnOrder(priorOrder []NodeID, newParentSet []NodeID) []NodeID {
	present := make(map[NodeID]bool, len(newParentSet))
	for _, p := range newParentSet {
		present[p] = true
	}

	out := make([]NodeID, 0, len(newParentSet))
	seen := make(map[NodeID]bool, len(newParentSet))
	for _, p := range priorOrder {
		if present[p] && !seen[p] {
			out = append(out, p)
			seen[p] = true
		}
	}
	for _, p := range newParentSet {
		if !seen[p] {
			out = append(out, p)
			seen[p] = true
		}
	}
	return out
}
