// Package cpt implements the conditional-probability-table rule-table
// representation: wildcard entries, validation of the coverage/non-conflict
// invariants, specificity-ranked lookup, and the bit-packed indexed form the
// sampling engine consumes.
package cpt

import (
	"math"
	"math/bits"
	"sort"
	"strconv"

	"github.com/bayesnet/kernel/pkg/kernelerr"
)

// Tri is a parent slot's required state in a CPTEntry.
type Tri int

const (
	// False requires the parent to be FALSE.
	False Tri = iota
	// True requires the parent to be TRUE.
	True
	// Any is the wildcard: matches both TRUE and FALSE.
	Any
)

// MaxWildcards is the per-entry cap on ANY slots (invariant 5).
const MaxWildcards = 8

// Entry is one rule: a parent-state assignment (with wildcards) paired with
// the probability that the variable is TRUE under that assignment.
type Entry struct {
	ParentStates map[NodeID]Tri
	Probability  float64
}

// ParentSet returns the entry's parent set. All entries of a valid CPT share
// the same set; callers typically take it from entries[0].
func ParentSet(entries []Entry) []NodeID {
	if len(entries) == 0 {
		return nil
	}
	out := make([]NodeID, 0, len(entries[0].ParentStates))
	for id := range entries[0].ParentStates {
		out = append(out, id)
	}
	return out
}

func specificity(e Entry) int {
	n := 0
	for _, t := range e.ParentStates {
		if t != Any {
			n++
		}
	}
	return n
}

// Validate enforces invariants 1-6 of §3: non-empty, consistent parent sets,
// single-entry roots, full coverage with no conflicts, the wildcard cap, and
// probability bounds. It deliberately does not check invariant 7/8
// (acyclicity, self-parenthood) — those belong to the graph model, which has
// the whole-network view this package lacks.
func Validate(op string, entries []Entry) error {
	if len(entries) == 0 {
		return kernelerr.New(op, kernelerr.Empty, "cpt must have at least one entry")
	}

	parentSet := ParentSet(entries)
	sort.Slice(parentSet, func(i, j int) bool { return parentSet[i].String() < parentSet[j].String() })

	for i, e := range entries {
		if len(e.ParentStates) != len(parentSet) {
			return kernelerr.New(op, kernelerr.InconsistentParents, "entry has a different parent count than entry 0")
		}
		for _, p := range parentSet {
			if _, ok := e.ParentStates[p]; !ok {
				return kernelerr.New(op, kernelerr.InconsistentParents, "entry "+strconv.Itoa(i)+" is missing parent "+p.String())
			}
		}
		if e.Probability < 0 || e.Probability > 1 || math.IsNaN(e.Probability) || math.IsInf(e.Probability, 0) {
			return kernelerr.New(op, kernelerr.ProbOutOfRange, "entry "+strconv.Itoa(i)+" probability out of [0,1]")
		}
		if n := specificity(e); len(parentSet)-n > MaxWildcards {
			return kernelerr.New(op, kernelerr.WildcardCap, "entry "+strconv.Itoa(i)+" exceeds the 8-wildcard cap")
		}
	}

	if len(parentSet) == 0 {
		if len(entries) != 1 {
			return kernelerr.New(op, kernelerr.RootMultiEntry, "root variable must have exactly one entry")
		}
		return nil
	}

	return validateCoverage(op, entries, parentSet)
}

// validateCoverage expands wildcards (when the parent count makes that
// cheap) and verifies each assignment is matched exactly once. For larger
// parent sets it falls back to a mask/pattern cover check that requires the
// entries to partition the assignment space (no gaps, no overlaps) —
// equivalent but avoids a 2^|P| enumeration when |P| is large.
func validateCoverage(op string, entries []Entry, parentSet []NodeID) error {
	if len(parentSet) <= 8 {
		return validateByExpansion(op, entries, parentSet)
	}
	return validateBySpecificityCover(op, entries, parentSet)
}

func validateByExpansion(op string, entries []Entry, parentSet []NodeID) error {
	n := len(parentSet)
	total := 1 << uint(n)
	matches := make([]int, total)
	for i := range matches {
		matches[i] = -1
	}

	for idx, e := range entries {
		for a := 0; a < total; a++ {
			if assignmentMatches(a, parentSet, e.ParentStates) {
				if matches[a] != -1 {
					return kernelerr.New(op, kernelerr.Conflict, "multiple entries match one parent assignment")
				}
				matches[a] = idx
			}
		}
	}

	var uncovered []int
	for a, m := range matches {
		if m == -1 {
			uncovered = append(uncovered, a)
		}
	}
	if len(uncovered) > 0 {
		return kernelerr.New(op, kernelerr.Uncovered, "some parent assignments are not covered by any entry")
	}
	return nil
}

func assignmentMatches(assignment int, parentSet []NodeID, states map[NodeID]Tri) bool {
	for i, p := range parentSet {
		bit := (assignment >> uint(i)) & 1
		switch states[p] {
		case True:
			if bit != 1 {
				return false
			}
		case False:
			if bit != 0 {
				return false
			}
		case Any:
			// matches either
		}
	}
	return true
}

// validateBySpecificityCover checks that the entries' (mask,pattern) pairs,
// taken in input order, are pairwise non-overlapping and their
// union is the full assignment space — without materializing 2^|P|
// assignments. Two entries with masks m1,m2 and patterns p1,p2 overlap iff
// (p1 & common) == (p2 & common) where common = m1 & m2. Full coverage is
// checked by summing 2^(n - popcount(mask)) over a maximal independent
// partition; since invariant 4 requires an exact partition (not just a
// cover), pairwise-disjoint plus size-sum == 2^n is sufficient and correct.
func validateBySpecificityCover(op string, entries []Entry, parentSet []NodeID) error {
	n := len(parentSet)
	type ranked struct {
		mask, pattern uint64
		pop           int
	}
	rs := make([]ranked, len(entries))
	for i, e := range entries {
		var mask, pattern uint64
		for bi, p := range parentSet {
			switch e.ParentStates[p] {
			case True:
				mask |= 1 << uint(bi)
				pattern |= 1 << uint(bi)
			case False:
				mask |= 1 << uint(bi)
			case Any:
			}
		}
		rs[i] = ranked{mask: mask, pattern: pattern, pop: bits.OnesCount64(mask)}
	}

	var sizeSum uint64
	for i := 0; i < len(rs); i++ {
		sizeSum += 1 << uint(n-rs[i].pop)
		for j := i + 1; j < len(rs); j++ {
			common := rs[i].mask & rs[j].mask
			if (rs[i].pattern & common) == (rs[j].pattern & common) {
				return kernelerr.New(op, kernelerr.Conflict, "entries overlap on a shared parent assignment")
			}
		}
	}
	if sizeSum != 1<<uint(n) {
		return kernelerr.New(op, kernelerr.Uncovered, "entries do not cover the full assignment space")
	}
	return nil
}
