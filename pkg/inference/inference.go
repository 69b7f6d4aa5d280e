// Package inference implements the stateless facade (§4.7) that combines
// the topological scheduler, sampling engine, and sensitivity engine with
// two bounded LRU caches keyed by the probabilistic fingerprint, plus
// request-id-based cancellation.
package inference

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/kernelerr"
	"github.com/bayesnet/kernel/pkg/sampling"
	"github.com/bayesnet/kernel/pkg/sensitivity"
	"github.com/bayesnet/kernel/pkg/topo"
)

// MaxCacheEntries is §4.7's per-cache size bound.
const MaxCacheEntries = 100

// marginalsCacheKey distinguishes plain-marginals, do(a=T), and do(a=F)
// cache slots for the same network fingerprint.
type marginalsCacheKey struct {
	fp   Fingerprint
	node cpt.NodeID
	tag  string // "", "true", "false"
}

// RequestID is an opaque caller-supplied token used to discard stale
// results from abandoned requests (§4.7 Cancellation, §5).
type RequestID uint64

// Service is the stateless inference facade. It holds no network state of
// its own — every call takes an explicit snapshot — except the two bounded
// LRU caches, which are its only process-wide mutable state (§5).
type Service struct {
	marginalsCache   *lru.Cache[marginalsCacheKey, map[cpt.NodeID]float64]
	sensitivityCache *lru.Cache[string, []sensitivity.Result]

	mu        sync.Mutex
	latestReq map[string]RequestID // conceptual slot -> latest request id
}

// New builds a Service with the §4.7 cache bounds.
func New() *Service {
	mc, err := lru.New[marginalsCacheKey, map[cpt.NodeID]float64](MaxCacheEntries)
	if err != nil {
		panic(err) // MaxCacheEntries is a positive constant; lru.New only errors on size<=0
	}
	sc, err := lru.New[string, []sensitivity.Result](MaxCacheEntries)
	if err != nil {
		panic(err)
	}
	return &Service{
		marginalsCache:   mc,
		sensitivityCache: sc,
		latestReq:        make(map[string]RequestID),
	}
}

// Begin registers reqID as the latest request for slot, superseding any
// earlier one. Callers check IsStale after any blocking work (sampling)
// completes and before publishing a result.
func (s *Service) Begin(slot string, reqID RequestID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestReq[slot] = reqID
}

// IsStale reports whether reqID has been superseded by a later Begin call
// on the same slot — the late-result-discard rule of §4.7/§5.
func (s *Service) IsStale(slot string, reqID RequestID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestReq[slot] != reqID
}

func toSamplingVars(vars []Node) []sampling.Variable {
	out := make([]sampling.Variable, len(vars))
	for i, v := range vars {
		out[i] = sampling.Variable{ID: v.ID, CPT: v.CPT}
	}
	return out
}

// ComputeMarginals returns P(v=TRUE) for every v in vars, consulting and
// populating the marginals cache keyed by fingerprint.
func (s *Service) ComputeMarginals(vars []Node, n int) (map[cpt.NodeID]float64, error) {
	fp := Compute(vars)
	key := marginalsCacheKey{fp: fp}
	if cached, ok := s.marginalsCache.Get(key); ok {
		return cached, nil
	}

	out, err := sampling.Marginals(toSamplingVars(vars), n, nil)
	if err != nil {
		return nil, err
	}
	s.marginalsCache.Add(key, out)
	return out, nil
}

// ComputeMarginalsWithIntervention returns (P(·|do(node=T)), P(·|do(node=F)))
// for every variable, caching each side under its own tagged key.
func (s *Service) ComputeMarginalsWithIntervention(vars []Node, n int, node cpt.NodeID) (trueCase, falseCase map[cpt.NodeID]float64, err error) {
	fp := Compute(vars)
	trueKey := marginalsCacheKey{fp: fp, node: node, tag: "true"}
	falseKey := marginalsCacheKey{fp: fp, node: node, tag: "false"}

	trueCached, trueOK := s.marginalsCache.Get(trueKey)
	falseCached, falseOK := s.marginalsCache.Get(falseKey)
	if trueOK && falseOK {
		return trueCached, falseCached, nil
	}

	trueCase, falseCase, err = sampling.MarginalsWithIntervention(toSamplingVars(vars), n, node)
	if err != nil {
		return nil, nil, err
	}
	s.marginalsCache.Add(trueKey, trueCase)
	s.marginalsCache.Add(falseKey, falseCase)
	return trueCase, falseCase, nil
}

// ComputeSensitivity streams one (ancestor, sensitivity) pair per ancestor
// of target, in ascending-id order, caching the completed result set under
// `fingerprint:target`. A request that errors mid-stream invalidates
// nothing (§7: "inference errors ... invalidate the cache entry that would
// have been created" — i.e. it is simply never written).
func (s *Service) ComputeSensitivity(vars []Node, target cpt.NodeID, samplesPerSide int) (<-chan sensitivity.Result, <-chan error) {
	fp := Compute(vars)
	key := fmt.Sprintf("%d:%s", fp, target.String())

	results := make(chan sensitivity.Result)
	errs := make(chan error, 1)

	if cached, ok := s.sensitivityCache.Get(key); ok {
		go func() {
			defer close(results)
			defer close(errs)
			for _, r := range cached {
				results <- r
			}
		}()
		return results, errs
	}

	go func() {
		defer close(results)
		defer close(errs)

		srcResults, srcErrs := sensitivity.Compute(toSamplingVars(vars), target, samplesPerSide)
		var collected []sensitivity.Result
		for r := range srcResults {
			collected = append(collected, r)
			results <- r
		}
		if err, ok := <-srcErrs; ok && err != nil {
			errs <- err
			return
		}
		s.sensitivityCache.Add(key, collected)
	}()

	return results, errs
}

// requestCounter is a process-wide monotonic counter embedders may use to
// mint RequestIDs; it is not required (callers may supply their own
// scheme) but saves every embedder from reinventing one.
var requestCounter atomic.Uint64

// NextRequestID mints a fresh, process-unique RequestID.
func NextRequestID() RequestID {
	return RequestID(requestCounter.Add(1))
}

// ValidateSnapshot runs §4.5's preconditions (non-empty, all CPTs valid,
// topologically sortable) before a caller hands vars to the sampling
// engine, so validation failures surface with the same kernelerr kinds
// used elsewhere rather than a bare sampling-internal error.
func ValidateSnapshot(op string, vars []Node) error {
	if len(vars) == 0 {
		return kernelerr.New(op, kernelerr.EmptyNetwork, "no variables in snapshot")
	}
	inputs := make([]topo.Input, len(vars))
	for i, v := range vars {
		if err := cpt.Validate(op, v.CPT); err != nil {
			return err
		}
		inputs[i] = topo.Input{ID: v.ID, CPT: v.CPT}
	}
	if _, err := topo.Sort(op, inputs); err != nil {
		return err
	}
	return nil
}
