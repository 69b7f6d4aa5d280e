package wire

import "github.com/bayesnet/kernel/pkg/cpt"

// MessageType discriminates worker request/response envelopes (§6).
type MessageType string

const (
	MsgComputeMarginals   MessageType = "COMPUTE_MARGINALS"
	MsgComputeSensitivity MessageType = "COMPUTE_SENSITIVITY"
	MsgMarginalsResult    MessageType = "MARGINALS_RESULT"
	MsgSensitivityResult  MessageType = "SENSITIVITY_RESULT"
	MsgError              MessageType = "ERROR"
)

// ComputeMarginalsRequest asks the inference worker to compute marginals
// over nodes, optionally under a single-node intervention.
type ComputeMarginalsRequest struct {
	Type               MessageType      `json:"type"`
	RequestID          string           `json:"requestId"`
	Nodes              []VariableRecord `json:"nodes"`
	InterventionNodeID *string          `json:"interventionNodeId,omitempty"`
}

// ComputeSensitivityRequest asks the inference worker to stream
// per-ancestor sensitivities for target.
type ComputeSensitivityRequest struct {
	Type      MessageType      `json:"type"`
	RequestID string           `json:"requestId"`
	Nodes     []VariableRecord `json:"nodes"`
	Target    string           `json:"target"`
}

// InterventionResult is the paired do(a=T)/do(a=F) marginals shape.
type InterventionResult struct {
	TrueCase  map[string]float64 `json:"trueCase"`
	FalseCase map[string]float64 `json:"falseCase"`
}

// MarginalsResponse carries either Probabilities (plain marginals mode) or
// InterventionResult (intervention mode), matching §6's two response
// shapes under the same MARGINALS_RESULT type tag.
type MarginalsResponse struct {
	Type               MessageType         `json:"type"`
	RequestID          string              `json:"requestId"`
	Probabilities      map[string]float64  `json:"probabilities,omitempty"`
	InterventionResult *InterventionResult `json:"interventionResult,omitempty"`
}

// SensitivityResultMessage carries one incremental (ancestor, sensitivity)
// pair, matching §4.6's "emits results incrementally" streaming contract.
type SensitivityResultMessage struct {
	Type        MessageType `json:"type"`
	RequestID   string      `json:"requestId"`
	AncestorID  string      `json:"ancestorId"`
	Sensitivity float64     `json:"sensitivity"`
	Done        bool        `json:"done"`
}

// ErrorResponse carries a failed request's kernelerr kind and detail.
type ErrorResponse struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"requestId"`
	Error     string      `json:"error"`
}

// NodeIDsFromStrings parses a slice of on-wire id strings into cpt.NodeID.
func NodeIDsFromStrings(ss []string) ([]cpt.NodeID, error) {
	out := make([]cpt.NodeID, len(ss))
	for i, s := range ss {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
