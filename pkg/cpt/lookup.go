package cpt

// Lookup returns P(X=TRUE | parents = assignment) using the
// specificity-max rule: the matching entry with the most non-ANY slots.
// Invariant 4 guarantees exactly one entry matches any given assignment, so
// "the matching entry" and "the most specific matching entry" coincide;
// specificity-max is just how we find it without building an index.
func Lookup(entries []Entry, assignment map[NodeID]bool) (float64, bool) {
	best := -1
	var bestProb float64
	for _, e := range entries {
		if !entryMatches(e, assignment) {
			continue
		}
		if s := specificity(e); s > best {
			best = s
			bestProb = e.Probability
		}
	}
	if best == -1 {
		return 0, false
	}
	return bestProb, true
}

func entryMatches(e Entry, assignment map[NodeID]bool) bool {
	for p, t := range e.ParentStates {
		if t == Any {
			continue
		}
		v, ok := assignment[p]
		if !ok {
			return false
		}
		want := t == True
		if v != want {
			return false
		}
	}
	return true
}
