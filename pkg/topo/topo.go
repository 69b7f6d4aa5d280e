// Package topo implements the topological scheduler (§4.4): a
// deterministic Kahn's-algorithm ordering over a variable set consistent
// with parent→child edges, with cycle and dangling-parent detection.
package topo

import (
	"sort"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/kernelerr"
)

// Input is the minimal shape the scheduler needs from a variable: its id
// and its CPT's parent set.
type Input struct {
	ID  cpt.NodeID
	CPT []cpt.Entry
}

// Sort returns a total order over vars consistent with parent→child edges,
// ties broken by ascending string id for reproducible cache keys (§4.4).
func Sort(op string, vars []Input) ([]cpt.NodeID, error) {
	inDegree := make(map[cpt.NodeID]int, len(vars))
	parentsOf := make(map[cpt.NodeID][]cpt.NodeID, len(vars))
	present := make(map[cpt.NodeID]bool, len(vars))
	childrenOf := make(map[cpt.NodeID][]cpt.NodeID, len(vars))

	for _, v := range vars {
		present[v.ID] = true
	}
	for _, v := range vars {
		parents := cpt.ParentSet(v.CPT)
		for _, p := range parents {
			if !present[p] {
				return nil, kernelerr.New(op, kernelerr.DanglingParent, p.String())
			}
			childrenOf[p] = append(childrenOf[p], v.ID)
		}
		parentsOf[v.ID] = parents
		inDegree[v.ID] = len(parents)
	}

	var queue []cpt.NodeID
	for _, v := range vars {
		if inDegree[v.ID] == 0 {
			queue = append(queue, v.ID)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].String() < queue[j].String() })

	order := make([]cpt.NodeID, 0, len(vars))
	for len(queue) > 0 {
		sort.Slice(queue, func(i, j int) bool { return queue[i].String() < queue[j].String() })
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)

		var freed []cpt.NodeID
		for _, child := range childrenOf[cur] {
			inDegree[child]--
			if inDegree[child] == 0 {
				freed = append(freed, child)
			}
		}
		queue = append(queue, freed...)
	}

	if len(order) != len(vars) {
		residual := make([]cpt.NodeID, 0, len(vars)-len(order))
		emitted := make(map[cpt.NodeID]bool, len(order))
		for _, id := range order {
			emitted[id] = true
		}
		for _, v := range vars {
			if !emitted[v.ID] {
				residual = append(residual, v.ID)
			}
		}
		sort.Slice(residual, func(i, j int) bool { return residual[i].String() < residual[j].String() })
		detail := "cycle among: "
		for i, id := range residual {
			if i > 0 {
				detail += ","
			}
			detail += id.String()
		}
		return nil, kernelerr.New(op, kernelerr.CycleDetected, detail)
	}

	return order, nil
}
