// Package sensitivity implements the causal sensitivity engine (§4.6): for
// a target variable, the effect of do(a=T) vs do(a=F) on the target's
// marginal, for every ancestor a.
package sensitivity

import (
	"sort"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/sampling"
)

// Result is one ancestor's causal sensitivity.
type Result struct {
	Ancestor    cpt.NodeID
	Sensitivity float64
}

// Ancestors returns the transitive parent set of target (excluding target
// itself), traversing parent links the same way graph's reachability check
// does — BFS over "parents of current".
func Ancestors(vars []sampling.Variable, target cpt.NodeID) []cpt.NodeID {
	byID := make(map[cpt.NodeID][]cpt.Entry, len(vars))
	for _, v := range vars {
		byID[v.ID] = v.CPT
	}

	visited := map[cpt.NodeID]bool{target: true}
	queue := []cpt.NodeID{target}
	var out []cpt.NodeID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range cpt.ParentSet(byID[cur]) {
			if visited[p] {
				continue
			}
			visited[p] = true
			out = append(out, p)
			queue = append(queue, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Compute streams one Result per ancestor of target, in ascending-id order
// (§4.6), on results and a single error on errs. Both channels are closed
// when the computation finishes or aborts.
func Compute(vars []sampling.Variable, target cpt.NodeID, samplesPerSide int) (<-chan Result, <-chan error) {
	results := make(chan Result)
	errs := make(chan error, 1)

	go func() {
		defer close(results)
		defer close(errs)

		ancestors := Ancestors(vars, target)
		for _, a := range ancestors {
			trueCase, falseCase, err := sampling.MarginalsWithIntervention(vars, samplesPerSide, a)
			if err != nil {
				errs <- err
				return
			}
			results <- Result{Ancestor: a, Sensitivity: trueCase[target] - falseCase[target]}
		}
	}()

	return results, errs
}
