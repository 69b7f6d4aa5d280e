package inference

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
	"sort"

	"github.com/bayesnet/kernel/pkg/cpt"
)

// Fingerprint is the §4.7 probabilistic fingerprint: a hash over the
// sorted-by-id sequence of (node_id, canonical CPT), grounded on the
// teacher's lineage-hashing discipline (FNV-1a over little-endian-packed
// primitives, sorted first for order independence). Coordinate and title
// changes never touch this hash.
type Fingerprint uint64

// Node is the minimal shape Fingerprint needs: an id and its CPT.
type Node struct {
	ID  cpt.NodeID
	CPT []cpt.Entry
}

// Compute hashes vars' probabilistic content only.
func Compute(vars []Node) Fingerprint {
	h := fnv.New64a()

	ids := make([]cpt.NodeID, len(vars))
	byID := make(map[cpt.NodeID][]cpt.Entry, len(vars))
	for i, v := range vars {
		ids[i] = v.ID
		byID[v.ID] = v.CPT
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		writeString(h, id.String())
		for _, ce := range cpt.Canonicalize(byID[id]) {
			for _, s := range ce.States {
				writeString(h, s.Parent.String())
				writeInt(h, int(s.State))
			}
			writeFloat(h, ce.Probability)
		}
		writeString(h, "|") // variable boundary
	}

	return Fingerprint(h.Sum64())
}

func writeInt(h hash.Hash64, v int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, _ = h.Write(buf[:])
}

func writeFloat(h hash.Hash64, f float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	_, _ = h.Write(buf[:])
}

func writeString(h hash.Hash64, s string) {
	_, _ = h.Write([]byte(s))
	_, _ = h.Write([]byte{0})
}
