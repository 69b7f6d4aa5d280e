// Package store defines the narrow transactional contract the kernel
// requires from a persistence backend (§6), plus an in-memory reference
// adapter used by tests.
package store

import (
	"github.com/bayesnet/kernel/pkg/cpt"
)

// Model is the persisted record for a named network container.
type Model struct {
	ID         ModelID
	OwnerID    string
	Name       string
	Public     bool
	OutputNode *cpt.NodeID
}

// ModelID identifies a Model.
type ModelID = cpt.NodeID

// Variable is the persisted record for one network node.
type Variable struct {
	ID          cpt.NodeID
	ModelID     ModelID
	Title       string
	Description string
	X, Y        float64
	CPT         []cpt.Entry
	ColumnOrder []cpt.NodeID
}

// Store is the contract the graph model needs from any persistence
// backend: get/insert/patch/delete by id, plus the three named secondary
// indexes from §6. Every method that mutates or reads for a public
// operation is expected to observe one snapshot and commit atomically. A
// real backend enforces this with its own transaction/OCC primitive — e.g.
// rejecting a write whose observed row version is stale and surfacing a
// retryable transient error to the embedder (§4.3, §7.6) — which is a
// property of that backend, not something this interface's signatures
// carry; the kernel itself holds no locks and does not model row versions.
type Store interface {
	GetModel(id ModelID) (Model, bool, error)
	InsertModel(m Model) (Model, error)
	PatchModel(id ModelID, patch func(*Model)) (Model, error)
	DeleteModel(id ModelID) error

	GetVariable(id cpt.NodeID) (Variable, bool, error)
	InsertVariable(v Variable) (Variable, error)
	PatchVariable(id cpt.NodeID, patch func(*Variable)) (Variable, error)
	DeleteVariable(id cpt.NodeID) error

	// VariablesByModel is the `variables.by_model` index.
	VariablesByModel(modelID ModelID) ([]Variable, error)
	// ModelsByOwner is the `models.by_owner` index.
	ModelsByOwner(ownerID string) ([]Model, error)
	// ModelsByPublic is the `models.by_public` index.
	ModelsByPublic() ([]Model, error)

	// Tx runs fn inside one transaction: all reads/writes fn performs
	// observe the same snapshot and commit atomically, or none do. The
	// in-memory adapter implements this with a single global lock; a real
	// backend would use its own transaction primitive.
	Tx(fn func(Store) error) error
}
