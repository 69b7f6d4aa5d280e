// Package sampling implements the forward ancestral sampling engine (§4.5):
// the performance-critical core that produces marginal probabilities, with
// an optional single-variable do-intervention.
package sampling

import (
	"math/rand/v2"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/kernelerr"
	"github.com/bayesnet/kernel/pkg/topo"
)

// DefaultMarginalSamples is §4.5's default sample count for plain marginal
// queries.
const DefaultMarginalSamples = 1_000_000

// DefaultInterventionSamples is §4.5's default per-side sample count for
// sensitivity queries.
const DefaultInterventionSamples = 75_000

// Variable is the minimal shape the sampler needs: an id and its CPT.
type Variable struct {
	ID  cpt.NodeID
	CPT []cpt.Entry
}

// compiled is the per-variable indexed form built once per invocation.
type compiled struct {
	id     cpt.NodeID
	idx    cpt.Indexed
	isRoot bool
}

// Intervention pins a single variable to a fixed value for the duration of
// a sampling pass, implementing Pearl's do(·) (§4.6) without mutating the
// graph.
type Intervention struct {
	Node  cpt.NodeID
	Value bool
}

// Marginals runs N forward-sampling passes over vars and returns
// P(v=TRUE) for every v, optionally pinned by a single intervention.
func Marginals(vars []Variable, n int, intervention *Intervention) (map[cpt.NodeID]float64, error) {
	const op = "sampling.Marginals"
	if len(vars) == 0 {
		return nil, kernelerr.New(op, kernelerr.EmptyNetwork, "no variables to sample")
	}
	if n <= 0 {
		return nil, kernelerr.New(op, kernelerr.NonPositiveSamples, "sample count must be positive")
	}

	order, err := topoOrder(op, vars)
	if err != nil {
		return nil, err
	}

	byID := make(map[cpt.NodeID][]cpt.Entry, len(vars))
	for _, v := range vars {
		byID[v.ID] = v.CPT
	}

	plan := make([]compiled, len(order))
	for i, id := range order {
		idx := cpt.BuildIndexed(byID[id])
		plan[i] = compiled{id: id, idx: idx, isRoot: len(idx.Parents) == 0}
	}

	var pinned cpt.NodeID
	var pinnedVal bool
	hasPin := intervention != nil
	if hasPin {
		pinned = intervention.Node
		pinnedVal = intervention.Value
	}

	counts := make(map[cpt.NodeID]int, len(vars))
	values := make(map[cpt.NodeID]bool, len(vars))

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	for i := 0; i < n; i++ {
		for _, c := range plan {
			if hasPin && c.id == pinned {
				values[c.id] = pinnedVal
			} else if c.isRoot {
				p, ok := c.idx.Lookup(0)
				if !ok {
					return nil, kernelerr.New(op, kernelerr.CPTLookupFailed, c.id.String())
				}
				values[c.id] = rng.Float64() < p
			} else {
				var word uint64
				for parent, bit := range c.idx.Parents {
					v, ok := values[parent]
					if !ok {
						return nil, kernelerr.New(op, kernelerr.OrderBroken, "parent "+parent.String()+" sampled after child "+c.id.String())
					}
					if v {
						word |= 1 << uint(bit)
					}
				}
				p, ok := c.idx.Lookup(word)
				if !ok {
					return nil, kernelerr.New(op, kernelerr.CPTLookupFailed, c.id.String())
				}
				values[c.id] = rng.Float64() < p
			}
			if values[c.id] {
				counts[c.id]++
			}
		}
	}

	out := make(map[cpt.NodeID]float64, len(vars))
	for id, cnt := range counts {
		out[id] = float64(cnt) / float64(n)
	}
	for _, v := range vars {
		if _, ok := out[v.ID]; !ok {
			out[v.ID] = 0
		}
	}
	return out, nil
}

// MarginalsWithIntervention runs the marginals pass twice — once with
// node pinned TRUE, once FALSE (§4.5 "Intervention mode"). Each pass is a
// full Marginals call: the topological sort and the indexed CPTs are built
// separately for each side, and nothing is shared between the two runs.
func MarginalsWithIntervention(vars []Variable, n int, node cpt.NodeID) (trueCase, falseCase map[cpt.NodeID]float64, err error) {
	trueCase, err = Marginals(vars, n, &Intervention{Node: node, Value: true})
	if err != nil {
		return nil, nil, err
	}
	falseCase, err = Marginals(vars, n, &Intervention{Node: node, Value: false})
	if err != nil {
		return nil, nil, err
	}
	return trueCase, falseCase, nil
}

func topoOrder(op string, vars []Variable) ([]cpt.NodeID, error) {
	inputs := make([]topo.Input, len(vars))
	for i, v := range vars {
		inputs[i] = topo.Input{ID: v.ID, CPT: v.CPT}
	}
	return topo.Sort(op, inputs)
}
