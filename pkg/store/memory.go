package store

import (
	"fmt"
	"maps"
	"sync"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/kernelerr"
)

// InMemoryStore is a reference Store implementation: map-of-maps records
// plus hand-maintained secondary indexes, guarded by one mutex held for the
// full duration of each Tx. It is scaffolding for the Store contract and
// for tests, not a production persistence layer — §1 keeps real persistence
// out of the kernel's scope. Because every Tx serializes behind the same
// single lock, there is never a real write-write conflict for this adapter
// to detect: it provides atomicity and snapshot isolation by mutual
// exclusion, not by optimistic concurrency control. A production backend
// (the external transactional store §1/§4.3 actually assume) would instead
// admit concurrent transactions and reject conflicting ones with a
// retryable error, per §4.3/§7.6 — that behavior belongs to that backend,
// not to this reference adapter.
type InMemoryStore struct {
	mu sync.Mutex

	models    map[ModelID]Model
	variables map[cpt.NodeID]Variable

	byModel map[ModelID]map[cpt.NodeID]bool
	byOwner map[string]map[ModelID]bool
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		models:    make(map[ModelID]Model),
		variables: make(map[cpt.NodeID]Variable),
		byModel:   make(map[ModelID]map[cpt.NodeID]bool),
		byOwner:   make(map[string]map[ModelID]bool),
	}
}

func (s *InMemoryStore) GetModel(id ModelID) (Model, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getModel(id)
}

func (s *InMemoryStore) InsertModel(m Model) (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertModel(m)
}

func (s *InMemoryStore) PatchModel(id ModelID, patch func(*Model)) (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patchModel(id, patch)
}

func (s *InMemoryStore) DeleteModel(id ModelID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteModel(id)
}

func (s *InMemoryStore) GetVariable(id cpt.NodeID) (Variable, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getVariable(id)
}

func (s *InMemoryStore) InsertVariable(v Variable) (Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertVariable(v)
}

func (s *InMemoryStore) PatchVariable(id cpt.NodeID, patch func(*Variable)) (Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patchVariable(id, patch)
}

func (s *InMemoryStore) DeleteVariable(id cpt.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteVariable(id)
}

func (s *InMemoryStore) VariablesByModel(modelID ModelID) ([]Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variablesByModel(modelID)
}

func (s *InMemoryStore) ModelsByOwner(ownerID string) ([]Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelsByOwner(ownerID)
}

func (s *InMemoryStore) ModelsByPublic() ([]Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelsByPublic()
}

// Tx holds s.mu for fn's entire duration and runs fn against a txStore that
// reaches the same underlying maps without re-acquiring the lock — so every
// read and write fn performs observes one consistent snapshot and commits
// atomically with respect to every other Tx or top-level call, per §4.3.
// This is real mutual exclusion across the whole closure, not per-call
// locking: two concurrent Tx calls on this store are fully linearized, one
// blocking until the other's closure returns. If fn returns an error, every
// write it made is undone before Tx returns.
func (s *InMemoryStore) Tx(fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	models, variables := maps.Clone(s.models), maps.Clone(s.variables)
	byModel := make(map[ModelID]map[cpt.NodeID]bool, len(s.byModel))
	for k, v := range s.byModel {
		byModel[k] = maps.Clone(v)
	}
	byOwner := make(map[string]map[ModelID]bool, len(s.byOwner))
	for k, v := range s.byOwner {
		byOwner[k] = maps.Clone(v)
	}
	if err := fn(&txStore{s}); err != nil {
		s.models, s.variables, s.byModel, s.byOwner = models, variables, byModel, byOwner
		return err
	}
	return nil
}

// txStore re-exposes InMemoryStore's operations without taking s.mu, since
// it is only ever reachable from inside the closure Tx already holds the
// lock across. A nested Tx call (an embedder composing operations that
// each open their own Tx) reuses the same already-held lock rather than
// deadlocking on it.
type txStore struct {
	s *InMemoryStore
}

func (t *txStore) GetModel(id ModelID) (Model, bool, error) { return t.s.getModel(id) }
func (t *txStore) InsertModel(m Model) (Model, error)        { return t.s.insertModel(m) }
func (t *txStore) PatchModel(id ModelID, patch func(*Model)) (Model, error) {
	return t.s.patchModel(id, patch)
}
func (t *txStore) DeleteModel(id ModelID) error { return t.s.deleteModel(id) }

func (t *txStore) GetVariable(id cpt.NodeID) (Variable, bool, error) { return t.s.getVariable(id) }
func (t *txStore) InsertVariable(v Variable) (Variable, error)       { return t.s.insertVariable(v) }
func (t *txStore) PatchVariable(id cpt.NodeID, patch func(*Variable)) (Variable, error) {
	return t.s.patchVariable(id, patch)
}
func (t *txStore) DeleteVariable(id cpt.NodeID) error { return t.s.deleteVariable(id) }

func (t *txStore) VariablesByModel(modelID ModelID) ([]Variable, error) {
	return t.s.variablesByModel(modelID)
}
func (t *txStore) ModelsByOwner(ownerID string) ([]Model, error) { return t.s.modelsByOwner(ownerID) }
func (t *txStore) ModelsByPublic() ([]Model, error)              { return t.s.modelsByPublic() }

func (t *txStore) Tx(fn func(Store) error) error { return fn(t) }

// The methods below assume s.mu is already held by the caller (either a
// top-level method above or a txStore forwarding from inside Tx).

func (s *InMemoryStore) getModel(id ModelID) (Model, bool, error) {
	m, ok := s.models[id]
	return m, ok, nil
}

func (s *InMemoryStore) insertModel(m Model) (Model, error) {
	s.models[m.ID] = m
	if s.byOwner[m.OwnerID] == nil {
		s.byOwner[m.OwnerID] = make(map[ModelID]bool)
	}
	s.byOwner[m.OwnerID][m.ID] = true
	return m, nil
}

func (s *InMemoryStore) patchModel(id ModelID, patch func(*Model)) (Model, error) {
	m, ok := s.models[id]
	if !ok {
		return Model{}, kernelerr.New("store.PatchModel", kernelerr.ModelNotFound, fmt.Sprintf("model not found: %s", id))
	}
	patch(&m)
	s.models[id] = m
	return m, nil
}

func (s *InMemoryStore) deleteModel(id ModelID) error {
	m, ok := s.models[id]
	if !ok {
		return nil // idempotent delete (§7.2)
	}
	for vid := range s.byModel[id] {
		delete(s.variables, vid)
	}
	delete(s.byModel, id)
	delete(s.models, id)
	if s.byOwner[m.OwnerID] != nil {
		delete(s.byOwner[m.OwnerID], id)
	}
	return nil
}

func (s *InMemoryStore) getVariable(id cpt.NodeID) (Variable, bool, error) {
	v, ok := s.variables[id]
	return v, ok, nil
}

func (s *InMemoryStore) insertVariable(v Variable) (Variable, error) {
	s.variables[v.ID] = v
	if s.byModel[v.ModelID] == nil {
		s.byModel[v.ModelID] = make(map[cpt.NodeID]bool)
	}
	s.byModel[v.ModelID][v.ID] = true
	return v, nil
}

func (s *InMemoryStore) patchVariable(id cpt.NodeID, patch func(*Variable)) (Variable, error) {
	v, ok := s.variables[id]
	if !ok {
		return Variable{}, kernelerr.New("store.PatchVariable", kernelerr.VariableNotFound, fmt.Sprintf("variable not found: %s", id))
	}
	patch(&v)
	s.variables[id] = v
	return v, nil
}

func (s *InMemoryStore) deleteVariable(id cpt.NodeID) error {
	v, ok := s.variables[id]
	if !ok {
		return nil
	}
	if s.byModel[v.ModelID] != nil {
		delete(s.byModel[v.ModelID], id)
	}
	delete(s.variables, id)
	return nil
}

func (s *InMemoryStore) variablesByModel(modelID ModelID) ([]Variable, error) {
	ids := s.byModel[modelID]
	out := make([]Variable, 0, len(ids))
	for id := range ids {
		out = append(out, s.variables[id])
	}
	return out, nil
}

func (s *InMemoryStore) modelsByOwner(ownerID string) ([]Model, error) {
	ids := s.byOwner[ownerID]
	out := make([]Model, 0, len(ids))
	for id := range ids {
		out = append(out, s.models[id])
	}
	return out, nil
}

func (s *InMemoryStore) modelsByPublic() ([]Model, error) {
	out := make([]Model, 0)
	for _, m := range s.models {
		if m.Public {
			out = append(out, m)
		}
	}
	return out, nil
}
