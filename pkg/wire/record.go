// Package wire implements the §6 on-wire JSON shapes: the canonical
// variable record and the worker message protocol used when inference is
// offloaded across a process/thread boundary.
package wire

import (
	"encoding/json"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/graph"
	"github.com/bayesnet/kernel/pkg/store"
)

// TriState is a parent slot's on-wire encoding: true, false, or null (ANY).
type TriState = *bool

// CPTEntryRecord is one wire-shaped CPT row. parentStates values are
// *bool so encoding/json naturally emits `null` for ANY (§6).
type CPTEntryRecord struct {
	ParentStates map[string]*bool `json:"parentStates"`
	Probability  float64          `json:"probability"`
}

// VariableRecord is the canonical §6 on-wire variable shape.
type VariableRecord struct {
	ID          string           `json:"id"`
	ModelID     string           `json:"modelId"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	CPTEntries  []CPTEntryRecord `json:"cptEntries"`
	ColumnOrder []string         `json:"columnOrder,omitempty"`
}

// ModelRecord is the on-wire shape for a Model's metadata.
type ModelRecord struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"ownerId"`
	Name       string  `json:"name"`
	Public     bool    `json:"public"`
	OutputNode *string `json:"outputNode,omitempty"`
}

// NetworkRecord bundles a model and its variables — the shape
// cmd/bayesctl loads from a file and the kernel's snapshot boundary
// consumes.
type NetworkRecord struct {
	Model     ModelRecord      `json:"model"`
	Variables []VariableRecord `json:"variables"`
}

// FromNode converts a graph.Node to its wire shape.
func FromNode(n graph.Node) VariableRecord {
	entries := make([]CPTEntryRecord, len(n.CPT))
	for i, e := range n.CPT {
		states := make(map[string]*bool, len(e.ParentStates))
		for p, t := range e.ParentStates {
			states[p.String()] = triToPtr(t)
		}
		entries[i] = CPTEntryRecord{ParentStates: states, Probability: e.Probability}
	}
	order := make([]string, len(n.ColumnOrder))
	for i, id := range n.ColumnOrder {
		order[i] = id.String()
	}
	return VariableRecord{
		ID:          n.ID.String(),
		ModelID:     n.ModelID.String(),
		Title:       n.Title,
		Description: n.Description,
		X:           n.X,
		Y:           n.Y,
		CPTEntries:  entries,
		ColumnOrder: order,
	}
}

// ToEntries converts a wire CPT back into cpt.Entry values.
func ToEntries(records []CPTEntryRecord) ([]cpt.Entry, error) {
	out := make([]cpt.Entry, len(records))
	for i, r := range records {
		states := make(map[cpt.NodeID]cpt.Tri, len(r.ParentStates))
		for idStr, tri := range r.ParentStates {
			id, err := parseID(idStr)
			if err != nil {
				return nil, err
			}
			states[id] = ptrToTri(tri)
		}
		out[i] = cpt.Entry{ParentStates: states, Probability: r.Probability}
	}
	return out, nil
}

// ToVariable converts a wire record into a store.Variable. The
// cmd/bayesctl embedder uses it to read a NetworkRecord file, keeping only
// each variable's id and CPT.
func ToVariable(r VariableRecord) (store.Variable, error) {
	id, err := parseID(r.ID)
	if err != nil {
		return store.Variable{}, err
	}
	modelID, err := parseID(r.ModelID)
	if err != nil {
		return store.Variable{}, err
	}
	entries, err := ToEntries(r.CPTEntries)
	if err != nil {
		return store.Variable{}, err
	}
	order := make([]cpt.NodeID, len(r.ColumnOrder))
	for i, idStr := range r.ColumnOrder {
		oid, err := parseID(idStr)
		if err != nil {
			return store.Variable{}, err
		}
		order[i] = oid
	}
	return store.Variable{
		ID:          id,
		ModelID:     modelID,
		Title:       r.Title,
		Description: r.Description,
		X:           r.X,
		Y:           r.Y,
		CPT:         entries,
		ColumnOrder: order,
	}, nil
}

func triToPtr(t cpt.Tri) *bool {
	switch t {
	case cpt.True:
		v := true
		return &v
	case cpt.False:
		v := false
		return &v
	default:
		return nil
	}
}

func ptrToTri(p *bool) cpt.Tri {
	if p == nil {
		return cpt.Any
	}
	if *p {
		return cpt.True
	}
	return cpt.False
}

func parseID(s string) (cpt.NodeID, error) {
	return cpt.ParseNodeID(s)
}

// MarshalNetwork renders a NetworkRecord as indented JSON, matching the
// teacher's printing.go debug-marshal idiom.
func MarshalNetwork(nr NetworkRecord) ([]byte, error) {
	return json.MarshalIndent(nr, "", "  ")
}

// UnmarshalNetwork parses a NetworkRecord from JSON bytes.
func UnmarshalNetwork(data []byte) (NetworkRecord, error) {
	var nr NetworkRecord
	if err := json.Unmarshal(data, &nr); err != nil {
		return NetworkRecord{}, err
	}
	return nr, nil
}
