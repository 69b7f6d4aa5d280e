// Package graph implements the graph model (§4.2): variables, parent
// relationships carried inside CPTs, DAG-preserving mutations, and
// owner-scoped authorization. Every public operation runs inside a single
// store transaction.
package graph

import (
	"log/slog"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/kernelerr"
	"github.com/bayesnet/kernel/pkg/store"
)

// Node is the kernel's public view of a variable: everything graph/
// sampling/sensitivity need, independent of the store's wire shape.
type Node struct {
	ID          cpt.NodeID
	ModelID     store.ModelID
	Title       string
	Description string
	X, Y        float64
	CPT         []cpt.Entry
	ColumnOrder []cpt.NodeID
}

// Patch describes a partial update to a variable; nil fields are left
// untouched (§4.2 "patch fields are any subset of {title, desc, x, y, cpt}").
type Patch struct {
	Title       *string
	Description *string
	X, Y        *float64
	CPT         []cpt.Entry // nil means "no CPT change"
}

// Graph is the kernel's mutation/read surface over a Store, scoped per
// caller by principal id (§4.2 Authorization).
type Graph struct {
	store store.Store

	// OnParentRemovalFallback, when non-nil, is invoked after a
	// remove_variable-triggered CPT reset (§4.2, §9 Open Question 2) so an
	// embedder can surface its own telemetry. Default is nil (silent,
	// matching the source's behavior).
	OnParentRemovalFallback func(childID cpt.NodeID)
}

// New builds a Graph over the given store.
func New(s store.Store) *Graph {
	return &Graph{store: s}
}

func nodeFromVariable(v store.Variable) Node {
	return Node{
		ID:          v.ID,
		ModelID:     v.ModelID,
		Title:       v.Title,
		Description: v.Description,
		X:           v.X,
		Y:           v.Y,
		CPT:         v.CPT,
		ColumnOrder: v.ColumnOrder,
	}
}

// requireOwner enforces §4.2's mutation-side authorization: the caller must
// own the containing model. It fails before any state is read or written by
// the caller's intended mutation.
func (g *Graph) requireOwner(op string, m store.Model, principal string) error {
	if m.OwnerID != principal {
		return kernelerr.New(op, kernelerr.NotAuthorized, "principal does not own this model")
	}
	return nil
}

// requireReadable enforces the read-side rule: owner, or the model is
// public.
func (g *Graph) requireReadable(op string, m store.Model, principal string) error {
	if m.OwnerID == principal || m.Public {
		return nil
	}
	return kernelerr.New(op, kernelerr.NotAuthorized, "principal cannot read this model")
}

// getModel and getVariable always read through an explicit store.Store
// (the transaction-scoped `s` inside a Tx closure, or g.store for
// read-only operations that open no transaction) so every read inside a
// mutation observes the same snapshot the transaction committed against,
// rather than reaching past it back to g.store.
func (g *Graph) getModel(op string, s store.Store, modelID store.ModelID) (store.Model, error) {
	m, ok, err := s.GetModel(modelID)
	if err != nil {
		return store.Model{}, err
	}
	if !ok {
		return store.Model{}, kernelerr.New(op, kernelerr.ModelNotFound, modelID.String())
	}
	return m, nil
}

func (g *Graph) getVariable(op string, s store.Store, id cpt.NodeID) (store.Variable, error) {
	v, ok, err := s.GetVariable(id)
	if err != nil {
		return store.Variable{}, err
	}
	if !ok {
		return store.Variable{}, kernelerr.New(op, kernelerr.VariableNotFound, id.String())
	}
	return v, nil
}

// CreateVariable inserts a new variable with the trivial prior {∅ → 0.5}.
func (g *Graph) CreateVariable(principal string, modelID store.ModelID, title, desc string, x, y float64) (Node, error) {
	const op = "graph.CreateVariable"
	var created Node
	err := g.store.Tx(func(s store.Store) error {
		m, err := g.getModel(op, s, modelID)
		if err != nil {
			return err
		}
		if err := g.requireOwner(op, m, principal); err != nil {
			return err
		}
		v := store.Variable{
			ID:          cpt.NewNodeID(),
			ModelID:     modelID,
			Title:       title,
			Description: desc,
			X:           x,
			Y:           y,
			CPT:         cpt.TrivialPrior(),
		}
		v, err = s.InsertVariable(v)
		if err != nil {
			return err
		}
		created = nodeFromVariable(v)
		return nil
	})
	return created, err
}

// GetVariable reads one variable, enforcing the read-side authorization
// rule (owner or public model).
func (g *Graph) GetVariable(principal string, id cpt.NodeID) (Node, error) {
	const op = "graph.GetVariable"
	v, err := g.getVariable(op, g.store, id)
	if err != nil {
		return Node{}, err
	}
	m, err := g.getModel(op, g.store, v.ModelID)
	if err != nil {
		return Node{}, err
	}
	if err := g.requireReadable(op, m, principal); err != nil {
		return Node{}, err
	}
	return nodeFromVariable(v), nil
}

// ListVariables returns every variable owned by modelID, enforcing the
// read-side rule once against the model.
func (g *Graph) ListVariables(principal string, modelID store.ModelID) ([]Node, error) {
	const op = "graph.ListVariables"
	m, err := g.getModel(op, g.store, modelID)
	if err != nil {
		return nil, err
	}
	if err := g.requireReadable(op, m, principal); err != nil {
		return nil, err
	}
	vs, err := g.store.VariablesByModel(modelID)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(vs))
	for _, v := range vs {
		out = append(out, nodeFromVariable(v))
	}
	return out, nil
}

// UpdateVariable applies patch to id, running full CPT validation, cycle
// detection on newly-added parents only, and column-order resync when a
// new CPT is supplied (§4.2).
func (g *Graph) UpdateVariable(principal string, id cpt.NodeID, patch Patch) (Node, error) {
	const op = "graph.UpdateVariable"
	var updated Node
	err := g.store.Tx(func(s store.Store) error {
		v, err := g.getVariable(op, s, id)
		if err != nil {
			return err
		}
		m, err := g.getModel(op, s, v.ModelID)
		if err != nil {
			return err
		}
		if err := g.requireOwner(op, m, principal); err != nil {
			return err
		}

		if patch.CPT != nil {
			if err := g.applyCPTPatch(op, s, &v, patch.CPT); err != nil {
				return err
			}
		}

		v2, err := s.PatchVariable(id, func(vv *store.Variable) {
			if patch.Title != nil {
				vv.Title = *patch.Title
			}
			if patch.Description != nil {
				vv.Description = *patch.Description
			}
			if patch.X != nil {
				vv.X = *patch.X
			}
			if patch.Y != nil {
				vv.Y = *patch.Y
			}
			if patch.CPT != nil {
				vv.CPT = v.CPT
				vv.ColumnOrder = v.ColumnOrder
			}
		})
		if err != nil {
			return err
		}
		updated = nodeFromVariable(v2)
		return nil
	})
	return updated, err
}

// applyCPTPatch runs §4.2 steps 1-5 against the in-flight variable v
// (mutated in place on success) before the enclosing transaction commits.
func (g *Graph) applyCPTPatch(op string, s store.Store, v *store.Variable, newCPT []cpt.Entry) error {
	if err := cpt.Validate(op, newCPT); err != nil {
		return err
	}

	newParents := cpt.ParentSet(newCPT)
	for _, p := range newParents {
		if p == v.ID {
			return kernelerr.New(op, kernelerr.SelfParent, "a variable cannot be its own parent")
		}
	}

	oldParents := make(map[cpt.NodeID]bool)
	for _, p := range cpt.ParentSet(v.CPT) {
		oldParents[p] = true
	}

	for _, p := range newParents {
		parentVar, ok, err := s.GetVariable(p)
		if err != nil {
			return err
		}
		if !ok {
			return kernelerr.New(op, kernelerr.DanglingParent, p.String())
		}
		if parentVar.ModelID != v.ModelID {
			return kernelerr.New(op, kernelerr.DanglingParent, "parent "+p.String()+" belongs to a different model")
		}

		if oldParents[p] {
			continue // already present: cannot be re-introducing a cycle
		}
		cyclic, err := g.reachable(s, v.ModelID, p, v.ID)
		if err != nil {
			return err
		}
		if cyclic {
			return kernelerr.New(op, kernelerr.WouldCreateCycle, "adding parent "+p.String()+" would create a cycle")
		}
	}

	v.CPT = newCPT
	v.ColumnOrder = cpt.SyncColumnOrder(v.ColumnOrder, newParents)
	return nil
}

// reachable runs §4.2's cycle check: BFS from `from` (the newly-proposed
// parent) expanding "parents of current" at each step. If `target` (the
// child being updated) is ever visited, target is already an ancestor of
// `from`, so adding target→...→from→target would close a cycle.
func (g *Graph) reachable(s store.Store, modelID store.ModelID, from, target cpt.NodeID) (bool, error) {
	visited := map[cpt.NodeID]bool{from: true}
	queue := []cpt.NodeID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true, nil
		}
		v, ok, err := s.GetVariable(cur)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		for _, p := range cpt.ParentSet(v.CPT) {
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false, nil
}

// RemoveVariable deletes id, sweeping every sibling CPT that references it
// and falling back to the trivial prior on any sweep that breaks coverage
// (§4.2, §9 Open Question 2).
func (g *Graph) RemoveVariable(principal string, id cpt.NodeID) error {
	const op = "graph.RemoveVariable"
	return g.store.Tx(func(s store.Store) error {
		v, ok, err := s.GetVariable(id)
		if err != nil {
			return err
		}
		if !ok {
			return nil // idempotent delete (§7.2)
		}
		m, err := g.getModel(op, s, v.ModelID)
		if err != nil {
			return err
		}
		if err := g.requireOwner(op, m, principal); err != nil {
			return err
		}

		siblings, err := s.VariablesByModel(v.ModelID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			if sib.ID == id {
				continue
			}
			if !containsParent(sib.CPT, id) {
				continue
			}
			fixed := cpt.DropParent(sib.CPT, id)
			if err := cpt.Validate(op, fixed); err != nil {
				fixed = cpt.TrivialPrior()
				slog.Warn("cpt repair fallback to trivial prior after parent removal",
					"child", sib.ID.String(), "removed_parent", id.String())
				if g.OnParentRemovalFallback != nil {
					g.OnParentRemovalFallback(sib.ID)
				}
			}
			newOrder := cpt.SyncColumnOrder(sib.ColumnOrder, cpt.ParentSet(fixed))
			if _, err := s.PatchVariable(sib.ID, func(vv *store.Variable) {
				vv.CPT = fixed
				vv.ColumnOrder = newOrder
			}); err != nil {
				return err
			}
		}

		if m.OutputNode != nil && *m.OutputNode == id {
			if _, err := s.PatchModel(m.ID, func(mm *store.Model) { mm.OutputNode = nil }); err != nil {
				return err
			}
		}

		return s.DeleteVariable(id)
	})
}

func containsParent(entries []cpt.Entry, id cpt.NodeID) bool {
	for _, p := range cpt.ParentSet(entries) {
		if p == id {
			return true
		}
	}
	return false
}

// AddParent is sugar over a CPT patch that widens childID's CPT with
// parentID as a new ANY slot via cpt.AddParent. Unlike a naive
// read-then-UpdateVariable composition, the read of childID's current CPT,
// the transform, validation, and the commit all happen inside the same
// store transaction (§4.2 "each runs inside a single store transaction"),
// so two concurrent AddParent calls against the same child are linearized
// by the store rather than racing on a stale externally-read CPT.
func (g *Graph) AddParent(principal string, parentID, childID cpt.NodeID) (Node, error) {
	const op = "graph.AddParent"
	return g.updateCPT(op, principal, childID, func(current []cpt.Entry) []cpt.Entry {
		return cpt.AddParent(current, parentID)
	})
}

// RemoveParent is sugar over a CPT patch that drops parentID from
// childID's CPT via cpt.DropParent, read-transformed-and-committed inside
// one transaction for the same reason as AddParent. If the resulting CPT
// fails validation the caller sees that error directly (unlike
// RemoveVariable's silent fallback, which only applies to whole-variable
// deletion) — an explicit RemoveParent call is a user action the embedder
// should be able to report back as a validation failure rather than
// silently discard.
func (g *Graph) RemoveParent(principal string, parentID, childID cpt.NodeID) (Node, error) {
	const op = "graph.RemoveParent"
	return g.updateCPT(op, principal, childID, func(current []cpt.Entry) []cpt.Entry {
		return cpt.DropParent(current, parentID)
	})
}

// updateCPT reads id's current variable, applies transform to its CPT, and
// commits the result — all inside one g.store.Tx — so the read the
// transform is based on can never go stale between being observed and
// being written. AddParent/RemoveParent are both transform-only callers;
// UpdateVariable's own CPT-patch path accepts an already-complete
// replacement CPT from the caller instead, since there the caller (not a
// prior read of the child) is the source of truth for the new CPT.
func (g *Graph) updateCPT(op, principal string, id cpt.NodeID, transform func(current []cpt.Entry) []cpt.Entry) (Node, error) {
	var updated Node
	err := g.store.Tx(func(s store.Store) error {
		v, err := g.getVariable(op, s, id)
		if err != nil {
			return err
		}
		m, err := g.getModel(op, s, v.ModelID)
		if err != nil {
			return err
		}
		if err := g.requireOwner(op, m, principal); err != nil {
			return err
		}

		newCPT := transform(v.CPT)
		if err := g.applyCPTPatch(op, s, &v, newCPT); err != nil {
			return err
		}

		v2, err := s.PatchVariable(id, func(vv *store.Variable) {
			vv.CPT = v.CPT
			vv.ColumnOrder = v.ColumnOrder
		})
		if err != nil {
			return err
		}
		updated = nodeFromVariable(v2)
		return nil
	})
	return updated, err
}

// ReorderColumns updates a variable's display column order without
// touching its CPT, for networks where only the UI layout changed (§C.4 of
// SPEC_FULL.md).
func (g *Graph) ReorderColumns(principal string, id cpt.NodeID, order []cpt.NodeID) (Node, error) {
	const op = "graph.ReorderColumns"
	var updated Node
	err := g.store.Tx(func(s store.Store) error {
		v, err := g.getVariable(op, s, id)
		if err != nil {
			return err
		}
		m, err := g.getModel(op, s, v.ModelID)
		if err != nil {
			return err
		}
		if err := g.requireOwner(op, m, principal); err != nil {
			return err
		}
		parentSet := cpt.ParentSet(v.CPT)
		wantSet := make(map[cpt.NodeID]bool, len(order))
		for _, p := range order {
			wantSet[p] = true
		}
		haveSet := make(map[cpt.NodeID]bool, len(parentSet))
		for _, p := range parentSet {
			haveSet[p] = true
		}
		if len(order) != len(parentSet) || len(wantSet) != len(haveSet) {
			return kernelerr.New(op, kernelerr.BadColumnOrder, "column order must be a permutation of the parent set")
		}
		for p := range wantSet {
			if !haveSet[p] {
				return kernelerr.New(op, kernelerr.BadColumnOrder, "column order references a non-parent id")
			}
		}
		v2, err := s.PatchVariable(id, func(vv *store.Variable) { vv.ColumnOrder = order })
		if err != nil {
			return err
		}
		updated = nodeFromVariable(v2)
		return nil
	})
	return updated, err
}

// CreateModel inserts a new, empty model owned by principal.
func (g *Graph) CreateModel(principal, name string, public bool) (store.Model, error) {
	m := store.Model{ID: cpt.NewNodeID(), OwnerID: principal, Name: name, Public: public}
	return g.store.InsertModel(m)
}

// RemoveModel deletes a model and every variable it owns (§3 Lifecycle).
func (g *Graph) RemoveModel(principal string, modelID store.ModelID) error {
	const op = "graph.RemoveModel"
	return g.store.Tx(func(s store.Store) error {
		m, ok, err := s.GetModel(modelID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := g.requireOwner(op, m, principal); err != nil {
			return err
		}
		return s.DeleteModel(modelID)
	})
}
