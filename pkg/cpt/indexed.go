package cpt

import "sort"

// Indexed is the bit-packed form the sampling engine consumes: each parent
// id is assigned a bit position, and each entry becomes a (pattern, mask)
// pair tested against a sample's parent-assignment bit vector. Rows are
// sorted by descending specificity so the first matching row is, by
// invariant 4, the unique match (or the wildcard fallback when a root entry
// is present).
type Indexed struct {
	// Parents maps parent NodeID to its bit position in an assignment word.
	Parents map[NodeID]int
	// ParentOrder is Parents inverted, bit position -> id, for callers that
	// need to walk positions in order.
	ParentOrder []NodeID
	Rows        []IndexedRow
	// Wildcard is the probability of a root CPT's single entry (empty parent
	// set). An all-ANY entry of a CPT that has parents is kept as a
	// zero-mask row in Rows instead.
	Wildcard    float64
	HasWildcard bool
}

// IndexedRow is one compiled rule: bit i of Pattern/Mask corresponds to
// Parents[id]==i. A sample assignment word `a` matches this row iff
// (a & Mask) == Pattern.
type IndexedRow struct {
	Pattern, Mask uint64
	Specificity   int
	Probability   float64
}

// BuildIndexed compiles a validated entry list into its bit-packed form.
// Parent bit positions are assigned in ascending string-id order so the
// mapping is deterministic across calls for the same parent set.
func BuildIndexed(entries []Entry) Indexed {
	parentSet := ParentSet(entries)
	sort.Slice(parentSet, func(i, j int) bool { return parentSet[i].String() < parentSet[j].String() })

	parents := make(map[NodeID]int, len(parentSet))
	for i, p := range parentSet {
		parents[p] = i
	}

	idx := Indexed{Parents: parents, ParentOrder: parentSet}
	rows := make([]IndexedRow, 0, len(entries))
	for _, e := range entries {
		if len(parentSet) == 0 {
			idx.Wildcard = e.Probability
			idx.HasWildcard = true
			continue
		}
		var pattern, mask uint64
		for p, t := range e.ParentStates {
			bit := uint(parents[p])
			switch t {
			case True:
				pattern |= 1 << bit
				mask |= 1 << bit
			case False:
				mask |= 1 << bit
			case Any:
			}
		}
		rows = append(rows, IndexedRow{
			Pattern:     pattern,
			Mask:        mask,
			Specificity: specificity(e),
			Probability: e.Probability,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Specificity > rows[j].Specificity })
	idx.Rows = rows
	return idx
}

// Lookup returns P(X=TRUE | parents) for a bit-packed assignment word, or
// false if no row (and no wildcard) matches — a bug signal for the sampler.
func (idx Indexed) Lookup(assignment uint64) (float64, bool) {
	for _, r := range idx.Rows {
		if assignment&r.Mask == r.Pattern {
			return r.Probability, true
		}
	}
	if idx.HasWildcard {
		return idx.Wildcard, true
	}
	return 0, false
}
