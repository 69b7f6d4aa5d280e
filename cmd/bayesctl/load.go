package main

import (
	"fmt"
	"os"

	"github.com/bayesnet/kernel/pkg/inference"
	"github.com/bayesnet/kernel/pkg/wire"
)

// loadNetwork reads a §6 NetworkRecord file and converts it directly to
// the inference package's snapshot shape. bayesctl is a read-only
// embedder — it never mutates the loaded network — so it skips the
// graph/store layer entirely rather than round-tripping through an
// InMemoryStore just to read it back.
func loadNetwork(path string) ([]inference.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}
	nr, err := wire.UnmarshalNetwork(data)
	if err != nil {
		return nil, fmt.Errorf("parsing network file: %w", err)
	}

	out := make([]inference.Node, len(nr.Variables))
	for i, vr := range nr.Variables {
		v, err := wire.ToVariable(vr)
		if err != nil {
			return nil, fmt.Errorf("parsing variable %q: %w", vr.ID, err)
		}
		out[i] = inference.Node{ID: v.ID, CPT: v.CPT}
	}

	if err := inference.ValidateSnapshot("bayesctl.loadNetwork", out); err != nil {
		return nil, err
	}
	return out, nil
}
