package cpt

import "github.com/google/uuid"

// NodeID identifies a variable. It round-trips to the on-wire opaque string
// via uuid.UUID's TextMarshaler/TextUnmarshaler.
type NodeID = uuid.UUID

// NewNodeID mints a fresh identifier.
func NewNodeID() NodeID { return uuid.New() }

// ParseNodeID parses the on-wire opaque string form of a NodeID (§6).
func ParseNodeID(s string) (NodeID, error) { return uuid.Parse(s) }
